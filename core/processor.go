package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lstaking/core/state"
	"lstaking/core/types"
	"lstaking/crypto"
	"lstaking/native/bank"
	nativecommon "lstaking/native/common"
	"lstaking/native/staking"
	"lstaking/observability/metrics"
)

var (
	ErrInvalidChainID = errors.New("core: transaction chain id mismatch")
	ErrNonceMismatch  = errors.New("core: unexpected transaction nonce")
	ErrNilTransaction = errors.New("core: nil transaction")
)

// Receipt describes a committed instruction.
type Receipt struct {
	Signer crypto.Address `json:"signer"`
	Nonce  uint64         `json:"nonce"`
	Op     string         `json:"op"`
	Result any            `json:"result,omitempty"`
	Events []*types.Event `json:"events"`
}

// Processor applies signed staking transactions against the state manager.
// Each transaction runs inside its own state.Tx and is committed only when
// the instruction succeeds, so a rejected transaction leaves nothing behind.
type Processor struct {
	mu       sync.Mutex
	state    *state.Manager
	program  crypto.Address
	chainID  uint64
	pauses   nativecommon.PauseView
	quota    nativecommon.Quota
	counters map[crypto.Address]nativecommon.QuotaNow
	clock    staking.Clock
	slashing staking.SlashingDetector
	logger   *slog.Logger
	metrics  *metrics.StakingMetrics
	tracer   trace.Tracer
}

// NewProcessor wires a processor for program on chainID.
func NewProcessor(manager *state.Manager, program crypto.Address, chainID uint64) *Processor {
	return &Processor{
		state:    manager,
		program:  program,
		chainID:  chainID,
		counters: make(map[crypto.Address]nativecommon.QuotaNow),
		clock:    staking.SystemClock{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("lstaking/core"),
	}
}

func (p *Processor) SetPauses(view nativecommon.PauseView) {
	if p == nil {
		return
	}
	p.pauses = view
}

func (p *Processor) SetQuota(q nativecommon.Quota) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quota = q
	p.counters = make(map[crypto.Address]nativecommon.QuotaNow)
}

func (p *Processor) SetClock(clock staking.Clock) {
	if p == nil || clock == nil {
		return
	}
	p.clock = clock
}

func (p *Processor) SetSlashingDetector(d staking.SlashingDetector) {
	if p == nil {
		return
	}
	p.slashing = d
}

func (p *Processor) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	p.logger = logger
}

func (p *Processor) SetMetrics(m *metrics.StakingMetrics) {
	if p == nil {
		return
	}
	p.metrics = m
}

// Program returns the address records are derived under.
func (p *Processor) Program() crypto.Address { return p.program }

// ChainID returns the chain id transactions must carry.
func (p *Processor) ChainID() uint64 { return p.chainID }

func (p *Processor) engine(tx *state.Tx) *staking.Engine {
	engine := staking.NewEngine(p.program)
	engine.SetState(tx)
	engine.SetLedger(bank.NewLedger(tx))
	engine.SetEmitter(tx)
	engine.SetClock(p.clock)
	engine.SetPauses(p.pauses)
	engine.SetSlashingDetector(p.slashing)
	engine.SetLogger(p.logger)
	return engine
}

// Execute verifies and applies tx. Invocations are serialised.
func (p *Processor) Execute(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	_, span := p.tracer.Start(ctx, "staking.execute")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	receipt, err := p.execute(tx)
	op := "unknown"
	if receipt != nil {
		op = receipt.Op
	}
	span.SetAttributes(attribute.String("staking.op", op))
	if err != nil {
		code := staking.ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObserveOperation(op, "rejected", time.Since(start))
		p.metrics.ObserveRejected(strconv.FormatUint(uint64(code), 10))
		p.logger.Debug("staking instruction rejected", "op", op, "code", uint32(code), "error", err)
		return nil, err
	}
	p.metrics.ObserveOperation(op, "ok", time.Since(start))
	p.metrics.AddEvents(len(receipt.Events))
	p.logger.Debug("staking instruction applied", "op", op, "signer", receipt.Signer.String(),
		"nonce", receipt.Nonce, "events", len(receipt.Events))
	return receipt, nil
}

func (p *Processor) execute(tx *types.Transaction) (*Receipt, error) {
	if tx.ChainID != p.chainID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidChainID, tx.ChainID, p.chainID)
	}
	signer, err := tx.From()
	if err != nil {
		if types.IsMissingSignature(err) {
			return nil, staking.ErrMissingSignature
		}
		return nil, fmt.Errorf("%w: %v", staking.ErrMissingSignature, err)
	}
	if len(tx.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", staking.ErrInvalidInstruction)
	}
	receipt := &Receipt{Signer: signer, Nonce: tx.Nonce, Op: staking.Opcode(tx.Data[0]).String()}

	ins, err := staking.DecodeInstruction(tx.Data)
	if err != nil {
		return receipt, err
	}
	acc, err := staking.BindAccounts(ins.Op, tx.Accounts)
	if err != nil {
		return receipt, err
	}

	window := p.quota.Window(p.clock.Now())
	counters, err := nativecommon.CheckQuota(p.quota, window, p.counters[signer], 1, quotaAmount(ins))
	if err != nil {
		return receipt, err
	}

	stx := p.state.Begin()
	defer stx.Discard()

	expected, err := stx.Nonce(signer)
	if err != nil {
		return receipt, err
	}
	if tx.Nonce != expected {
		return receipt, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce, expected)
	}

	result, err := p.dispatch(p.engine(stx), signer, ins, acc)
	if err != nil {
		return receipt, err
	}
	if err := stx.SetNonce(signer, expected+1); err != nil {
		return receipt, err
	}
	evts, err := stx.Commit()
	if err != nil {
		return receipt, err
	}
	p.counters[signer] = counters
	p.observeResult(ins, result)
	receipt.Result = result
	receipt.Events = evts
	return receipt, nil
}

func quotaAmount(ins staking.Instruction) uint64 {
	switch ins.Op {
	case staking.OpStake, staking.OpIncreaseStake, staking.OpUnstake, staking.OpFundRewardVault:
		return uint64(ins.Amount)
	}
	return 0
}

func (p *Processor) dispatch(e *staking.Engine, signer crypto.Address, ins staking.Instruction, acc staking.Accounts) (any, error) {
	switch ins.Op {
	case staking.OpInitGlobalConfig:
		return nil, e.InitGlobalConfig(signer, acc, ins.Global)
	case staking.OpUpdateAuthority:
		return nil, e.UpdateAuthority(signer, acc, ins.Address)
	case staking.OpUpdateProtocolFee:
		return nil, e.UpdateProtocolFee(signer, acc, ins.FeeBps)
	case staking.OpSetGlobalEmergencyPause:
		return nil, e.SetGlobalEmergencyPause(signer, acc, ins.Flag)
	case staking.OpCreatePool:
		return nil, e.CreatePool(signer, acc, ins.Pool)
	case staking.OpUpdatePoolConfig:
		return nil, e.UpdatePoolConfig(signer, acc, ins.Update)
	case staking.OpPausePool:
		return nil, e.PausePool(signer, acc, ins.PoolID)
	case staking.OpResumePool:
		return nil, e.ResumePool(signer, acc, ins.PoolID)
	case staking.OpFundRewardVault:
		return nil, e.FundRewardVault(signer, acc, ins.PoolID, ins.Amount)
	case staking.OpInitUserLedger:
		return nil, e.InitUserLedger(signer, acc)
	case staking.OpStake:
		slot, err := e.Stake(signer, acc, ins.PoolID, ins.Amount)
		if err != nil {
			return nil, err
		}
		return map[string]int{"slot": slot}, nil
	case staking.OpIncreaseStake:
		return nil, e.IncreaseStake(signer, acc, ins.PoolID, ins.Amount)
	case staking.OpUnstake:
		return e.Unstake(signer, acc, ins.PoolID, ins.Amount)
	case staking.OpClaimRewards:
		return e.ClaimRewards(signer, acc, ins.PoolID)
	case staking.OpClaimAllRewards:
		return e.ClaimAllRewards(signer, acc)
	case staking.OpExecuteAutoCompound:
		return e.ExecuteAutoCompound(signer, acc, ins.PoolID)
	case staking.OpEnableAutoCompound:
		return nil, e.EnableAutoCompound(signer, acc, ins.PoolID, ins.FrequencyHours, ins.MinAmount)
	case staking.OpDisableAutoCompound:
		return nil, e.DisableAutoCompound(signer, acc, ins.PoolID)
	case staking.OpEmergencyWithdraw:
		return e.EmergencyWithdraw(signer, acc, ins.PoolID)
	case staking.OpInitOracle:
		return nil, e.InitOracle(signer, acc, ins.UpdateFrequency, ins.Price)
	case staking.OpUpdateOraclePrice:
		return nil, e.UpdateOraclePrice(signer, acc, ins.Price)
	}
	return nil, fmt.Errorf("%w: unknown discriminator %d", staking.ErrInvalidInstruction, uint8(ins.Op))
}

func (p *Processor) observeResult(ins staking.Instruction, result any) {
	switch res := result.(type) {
	case staking.ClaimResult:
		p.metrics.AddFees(uint64(res.Fee))
	case staking.CompoundResult:
		p.metrics.AddFees(uint64(res.Fee))
		p.metrics.AddStaked(uint64(res.Compounded))
	case staking.UnstakeResult:
		p.metrics.AddUnstaked(uint64(res.Returned))
		p.metrics.AddPenalty("unapplied", uint64(res.UnappliedPenalty))
		p.metrics.AddFees(uint64(res.Rewards.Fee))
	case staking.EmergencyResult:
		p.metrics.AddUnstaked(uint64(res.Returned))
		p.metrics.AddPenalty("emergency", uint64(res.Penalty))
		p.metrics.AddFees(uint64(res.Rewards.Fee))
	}
	if ins.Op == staking.OpStake || ins.Op == staking.OpIncreaseStake {
		p.metrics.AddStaked(uint64(ins.Amount))
	}
}
