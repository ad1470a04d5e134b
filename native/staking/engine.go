package staking

import (
	"fmt"
	"log/slog"
	"time"

	"lstaking/core/events"
	"lstaking/crypto"
	nativecommon "lstaking/native/common"
)

const moduleName = "staking"

type engineState interface {
	GetGlobalConfig(addr crypto.Address) (*GlobalConfig, error)
	PutGlobalConfig(addr crypto.Address, cfg *GlobalConfig) error
	GetPool(addr crypto.Address) (*Pool, error)
	PutPool(addr crypto.Address, pool *Pool) error
	GetUserLedger(addr crypto.Address) (*UserLedger, error)
	PutUserLedger(addr crypto.Address, ledger *UserLedger) error
	GetOracle(addr crypto.Address) (*OracleRecord, error)
	PutOracle(addr crypto.Address, record *OracleRecord) error
}

// AssetLedger moves value on behalf of the engine. Vaults, the treasury and
// LST mints are plain addresses inside it.
type AssetLedger interface {
	Balance(asset, owner crypto.Address) (uint64, error)
	Transfer(asset, from, to crypto.Address, amount uint64) error
	Mint(asset, to crypto.Address, amount uint64) error
	Burn(asset, from crypto.Address, amount uint64) error
}

// Clock supplies unix timestamps in seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// SlashingDetector reports whether a slashing event has been observed for a
// pool. It is only consulted when the pool has slashing enabled.
type SlashingDetector interface {
	SlashingDetected(pool crypto.Address, p *Pool) bool
}

// Engine applies staking operations to the configured state. It holds no
// locks; callers serialise invocations and own the transaction boundary.
type Engine struct {
	state    engineState
	ledger   AssetLedger
	emitter  events.Emitter
	clock    Clock
	derive   Deriver
	pauses   nativecommon.PauseView
	slashing SlashingDetector
	logger   *slog.Logger
}

// NewEngine constructs an engine for program. State and the asset ledger
// must be wired before use.
func NewEngine(program crypto.Address) *Engine {
	return &Engine{
		derive:  Deriver{Program: program},
		clock:   SystemClock{},
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the asset ledger used for transfers, mints and burns.
func (e *Engine) SetLedger(ledger AssetLedger) {
	if e == nil {
		return
	}
	e.ledger = ledger
}

// SetEmitter configures the event emitter. Passing nil discards events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetClock(clock Clock) {
	if e == nil {
		return
	}
	e.clock = clock
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetSlashingDetector(d SlashingDetector) {
	if e == nil {
		return
	}
	e.slashing = d
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Deriver exposes the address derivation used by the engine.
func (e *Engine) Deriver() Deriver { return e.derive }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.clock == nil {
		return errNilClock
	}
	return nil
}

// guard rejects mutating calls while the module is paused by the operator.
func (e *Engine) guard() error {
	if err := e.ready(); err != nil {
		return err
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) now() int64 { return e.clock.Now() }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// loadGlobal verifies acc.GlobalConfig against acc.Authority and loads it.
func (e *Engine) loadGlobal(acc Accounts) (*GlobalConfig, error) {
	if _, err := expect("global config", acc.GlobalConfig, func() (crypto.Address, uint8, error) {
		return e.derive.GlobalConfig(acc.Authority)
	}); err != nil {
		return nil, err
	}
	cfg, err := e.state.GetGlobalConfig(acc.GlobalConfig)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: global config %s", ErrNotInitialized, acc.GlobalConfig)
	}
	return cfg, nil
}

// loadPool verifies acc.Pool against the creator and pool id and loads it.
func (e *Engine) loadPool(acc Accounts, poolID uint64) (*Pool, error) {
	if _, err := expect("pool", acc.Pool, func() (crypto.Address, uint8, error) {
		return e.derive.Pool(acc.Creator, poolID)
	}); err != nil {
		return nil, err
	}
	pool, err := e.state.GetPool(acc.Pool)
	if err != nil {
		return nil, err
	}
	if pool == nil || pool.PoolID != poolID {
		return nil, fmt.Errorf("%w: pool %d at %s", ErrPoolNotFound, poolID, acc.Pool)
	}
	return pool, nil
}

// loadPoolInConfig also checks that the pool belongs to acc.GlobalConfig.
func (e *Engine) loadPoolInConfig(acc Accounts, poolID uint64) (*Pool, error) {
	pool, err := e.loadPool(acc, poolID)
	if err != nil {
		return nil, err
	}
	if err := same("global config", acc.GlobalConfig, pool.GlobalConfig); err != nil {
		return nil, err
	}
	return pool, nil
}

// loadLedger verifies acc.UserLedger for signer and loads it. Only the
// ledger owner may mutate it.
func (e *Engine) loadLedger(acc Accounts, signer crypto.Address) (*UserLedger, error) {
	if _, err := expect("user ledger", acc.UserLedger, func() (crypto.Address, uint8, error) {
		return e.derive.UserLedger(signer, acc.GlobalConfig)
	}); err != nil {
		return nil, err
	}
	ledger, err := e.state.GetUserLedger(acc.UserLedger)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: user ledger %s", ErrNotInitialized, acc.UserLedger)
	}
	if ledger.Owner != signer {
		return nil, fmt.Errorf("%w: ledger owned by %s", ErrUnauthorized, ledger.Owner)
	}
	return ledger, nil
}

func (e *Engine) balance(asset, owner crypto.Address) (Amount, error) {
	bal, err := e.ledger.Balance(asset, owner)
	if err != nil {
		return 0, err
	}
	return Amount(bal), nil
}

func (e *Engine) requireBalance(asset, owner crypto.Address, amount Amount, onShort error) error {
	bal, err := e.balance(asset, owner)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", onShort, owner, bal, amount)
	}
	return nil
}

func (e *Engine) transfer(asset, from, to crypto.Address, amount Amount) error {
	if amount == 0 {
		return nil
	}
	if err := e.ledger.Transfer(asset, from, to, uint64(amount)); err != nil {
		return fmt.Errorf("staking: transfer %d of %s: %w", amount, asset, err)
	}
	return nil
}

func (e *Engine) mint(asset, to crypto.Address, amount Amount) error {
	if amount == 0 {
		return nil
	}
	if err := e.ledger.Mint(asset, to, uint64(amount)); err != nil {
		return fmt.Errorf("staking: mint %d of %s: %w", amount, asset, err)
	}
	return nil
}

func (e *Engine) burn(asset, from crypto.Address, amount Amount) error {
	if amount == 0 {
		return nil
	}
	if err := e.ledger.Burn(asset, from, uint64(amount)); err != nil {
		return fmt.Errorf("staking: burn %d of %s: %w", amount, asset, err)
	}
	return nil
}

func (e *Engine) savePoolAndLedger(acc Accounts, pool *Pool, ledger *UserLedger) error {
	if err := e.state.PutPool(acc.Pool, pool); err != nil {
		return err
	}
	return e.state.PutUserLedger(acc.UserLedger, ledger)
}

// Pool loads a committed pool without verification, for queries.
func (e *Engine) Pool(addr crypto.Address) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.state.GetPool(addr)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// UserLedger loads a user ledger without verification, for queries.
func (e *Engine) UserLedger(addr crypto.Address) (*UserLedger, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ledger, err := e.state.GetUserLedger(addr)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, ErrNotInitialized
	}
	return ledger, nil
}

// PendingRewards previews what ClaimRewards would pay for poolID at the
// current time, without mutating state.
func (e *Engine) PendingRewards(ledgerAddr, poolAddr crypto.Address, poolID uint64) (Amount, error) {
	ledger, err := e.UserLedger(ledgerAddr)
	if err != nil {
		return 0, err
	}
	pool, err := e.Pool(poolAddr)
	if err != nil {
		return 0, err
	}
	pos, err := ledger.Position(poolID)
	if err != nil {
		return 0, err
	}
	now := e.now()
	pool.Refresh(now)
	return PositionRateRewards(pos, pool, now).Add(pos.PendingRewards), nil
}
