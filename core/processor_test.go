package core

import (
	"context"
	"errors"
	"testing"

	"lstaking/core/events"
	"lstaking/core/state"
	"lstaking/core/types"
	"lstaking/crypto"
	nativecommon "lstaking/native/common"
	"lstaking/native/staking"
	"lstaking/storage"
)

const testChainID = 7

type testEnv struct {
	t         *testing.T
	processor *Processor
	manager   *state.Manager
	now       int64

	authority *crypto.PrivateKey
	creator   *crypto.PrivateKey
	user      *crypto.PrivateKey

	stakeMint  crypto.Address
	rewardMint crypto.Address
}

func testAsset(suffix byte) crypto.Address {
	var addr crypto.Address
	addr[0] = 0xa5
	addr[len(addr)-1] = suffix
	return addr
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	env := &testEnv{
		t:          t,
		manager:    manager,
		processor:  NewProcessor(manager, testAsset(0x01), testChainID),
		stakeMint:  testAsset(0x20),
		rewardMint: testAsset(0x21),
	}
	env.processor.SetClock(staking.ClockFunc(func() int64 { return env.now }))
	for _, key := range []**crypto.PrivateKey{&env.authority, &env.creator, &env.user} {
		k, err := crypto.GeneratePrivateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		*key = k
	}
	return env
}

func (env *testEnv) addr(key *crypto.PrivateKey) crypto.Address {
	return key.PubKey().Address()
}

func (env *testEnv) accounts(owner crypto.Address, poolID uint64) staking.Accounts {
	env.t.Helper()
	base := staking.Accounts{
		Authority:  env.addr(env.authority),
		Creator:    env.addr(env.creator),
		StakeMint:  env.stakeMint,
		RewardMint: env.rewardMint,
	}
	derive := staking.Deriver{Program: env.processor.Program()}
	acc, err := derive.AccountsFor(base, owner, poolID)
	if err != nil {
		env.t.Fatalf("derive accounts: %v", err)
	}
	return acc
}

func (env *testEnv) build(key *crypto.PrivateKey, nonce uint64, ins staking.Instruction, acc staking.Accounts) *types.Transaction {
	env.t.Helper()
	refs, err := staking.AccountList(ins.Op, acc)
	if err != nil {
		env.t.Fatalf("account list: %v", err)
	}
	tx := &types.Transaction{ChainID: testChainID, Nonce: nonce, Data: ins.Encode(), Accounts: refs}
	if err := tx.Sign(key.PrivateKey); err != nil {
		env.t.Fatalf("sign: %v", err)
	}
	return tx
}

func (env *testEnv) mustExecute(key *crypto.PrivateKey, nonce uint64, ins staking.Instruction, acc staking.Accounts) *Receipt {
	env.t.Helper()
	receipt, err := env.processor.Execute(context.Background(), env.build(key, nonce, ins, acc))
	if err != nil {
		env.t.Fatalf("%s: %v", ins.Op, err)
	}
	return receipt
}

// bootstrap creates the global config and pool 1, funds the reward vault and
// opens the user's ledger.
func (env *testEnv) bootstrap(feeBps uint16) staking.Accounts {
	env.t.Helper()
	user := env.addr(env.user)
	acc := env.accounts(user, 1)

	if _, err := ApplyGenesis(env.manager, []GenesisBalance{
		{Asset: env.stakeMint, Owner: user, Amount: 1_000_000},
		{Asset: env.rewardMint, Owner: env.addr(env.creator), Amount: 1_000_000},
	}); err != nil {
		env.t.Fatalf("genesis: %v", err)
	}

	env.mustExecute(env.authority, 0, staking.Instruction{
		Op:     staking.OpInitGlobalConfig,
		Global: staking.GlobalParams{ProtocolFeeBps: feeBps, MinStake: 1, MaxPools: 4},
	}, acc)
	env.mustExecute(env.creator, 0, staking.Instruction{
		Op: staking.OpCreatePool,
		Pool: staking.PoolParams{
			PoolID:              1,
			RewardRatePerSecond: 1_000_000,
			RewardMultiplier:    staking.NeutralMultiplier,
			MinStake:            1,
		},
	}, acc)
	env.mustExecute(env.creator, 1, staking.Instruction{Op: staking.OpFundRewardVault, PoolID: 1, Amount: 1_000_000}, acc)
	env.mustExecute(env.user, 0, staking.Instruction{Op: staking.OpInitUserLedger}, acc)
	return acc
}

func (env *testEnv) balance(asset, owner crypto.Address) uint64 {
	env.t.Helper()
	bal, err := env.processor.Balance(asset, owner)
	if err != nil {
		env.t.Fatalf("balance: %v", err)
	}
	return bal.Amount
}

func TestProcessorStakeAndClaim(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(500)
	user := env.addr(env.user)

	receipt := env.mustExecute(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1_000_000}, acc)
	if len(receipt.Events) != 1 || receipt.Events[0].Type != events.TypeStakingStaked {
		t.Fatalf("unexpected stake events: %+v", receipt.Events)
	}
	if got := env.balance(acc.LSTMint, user); got != 1_000_000 {
		t.Fatalf("unexpected lst balance: %d", got)
	}

	env.now = 1000
	receipt = env.mustExecute(env.user, 2, staking.Instruction{Op: staking.OpClaimRewards, PoolID: 1}, acc)
	res, ok := receipt.Result.(staking.ClaimResult)
	if !ok {
		t.Fatalf("unexpected result type %T", receipt.Result)
	}
	if res.Total != 1000 || res.Fee != 50 || res.UserRewards != 950 {
		t.Fatalf("unexpected claim split: %+v", res)
	}
	if got := env.balance(env.rewardMint, user); got != 950 {
		t.Fatalf("unexpected user reward balance: %d", got)
	}
	if got := env.balance(env.rewardMint, acc.Treasury); got != 50 {
		t.Fatalf("unexpected treasury balance: %d", got)
	}

	nonce, err := env.processor.Nonce(user)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if nonce != 3 {
		t.Fatalf("unexpected nonce: %d", nonce)
	}

	journal, err := env.processor.Events(0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(journal) == 0 || journal[len(journal)-1].Type != events.TypeStakingClaimed {
		t.Fatalf("claim event missing from journal")
	}
	for i, evt := range journal {
		if evt.Seq != uint64(i) {
			t.Fatalf("journal sequence gap at %d: %d", i, evt.Seq)
		}
	}
}

func TestProcessorRejectedInstructionLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(0)
	user := env.addr(env.user)

	tx := env.build(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 2_000_000}, acc)
	if _, err := env.processor.Execute(context.Background(), tx); !errors.Is(err, staking.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := env.balance(env.stakeMint, user); got != 1_000_000 {
		t.Fatalf("balance changed by rejected stake: %d", got)
	}
	nonce, err := env.processor.Nonce(user)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if nonce != 1 {
		t.Fatalf("rejected instruction consumed a nonce: %d", nonce)
	}
	ledger, err := env.processor.UserLedger(acc.UserLedger)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if ledger.TotalStakedAmount != 0 {
		t.Fatalf("ledger changed by rejected stake: %d", ledger.TotalStakedAmount)
	}
}

func TestProcessorStructuralFailures(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(0)

	replay := env.build(env.user, 0, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 10}, acc)
	if _, err := env.processor.Execute(context.Background(), replay); !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("expected ErrNonceMismatch, got %v", err)
	}

	unsigned := &types.Transaction{ChainID: testChainID, Nonce: 1, Data: []byte{byte(staking.OpInitUserLedger)}}
	if _, err := env.processor.Execute(context.Background(), unsigned); !errors.Is(err, staking.ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}

	wrongChain := env.build(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 10}, acc)
	wrongChain.ChainID = testChainID + 1
	if err := wrongChain.Sign(env.user.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := env.processor.Execute(context.Background(), wrongChain); !errors.Is(err, ErrInvalidChainID) {
		t.Fatalf("expected ErrInvalidChainID, got %v", err)
	}

	short := env.build(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 10}, acc)
	short.Data = short.Data[:5]
	if err := short.Sign(env.user.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := env.processor.Execute(context.Background(), short); !errors.Is(err, staking.ErrInvalidInstruction) {
		t.Fatalf("expected ErrInvalidInstruction, got %v", err)
	}

	missing := env.build(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 10}, acc)
	missing.Accounts = missing.Accounts[:2]
	if err := missing.Sign(env.user.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := env.processor.Execute(context.Background(), missing); !errors.Is(err, staking.ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}

	if _, err := env.processor.Execute(context.Background(), nil); !errors.Is(err, ErrNilTransaction) {
		t.Fatalf("expected ErrNilTransaction, got %v", err)
	}
}

func TestProcessorModulePause(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(0)
	env.mustExecute(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1000}, acc)

	env.processor.SetPauses(nativecommon.Pauses{"staking": true})
	tx := env.build(env.user, 2, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1000}, acc)
	if _, err := env.processor.Execute(context.Background(), tx); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	env.mustExecute(env.user, 2, staking.Instruction{Op: staking.OpUnstake, PoolID: 1, Amount: 1000}, acc)
}

func TestProcessorQuota(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(0)
	env.processor.SetQuota(nativecommon.Quota{MaxOpsPerWindow: 1, MaxAmountPerWindow: 500, WindowSeconds: 60})

	over := env.build(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 600}, acc)
	if _, err := env.processor.Execute(context.Background(), over); !errors.Is(err, nativecommon.ErrQuotaAmountExceeded) {
		t.Fatalf("expected ErrQuotaAmountExceeded, got %v", err)
	}
	env.mustExecute(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 400}, acc)
	next := env.build(env.user, 2, staking.Instruction{Op: staking.OpIncreaseStake, PoolID: 1, Amount: 1}, acc)
	if _, err := env.processor.Execute(context.Background(), next); !errors.Is(err, nativecommon.ErrQuotaOpsExceeded) {
		t.Fatalf("expected ErrQuotaOpsExceeded, got %v", err)
	}

	env.now = 60
	env.mustExecute(env.user, 2, staking.Instruction{Op: staking.OpIncreaseStake, PoolID: 1, Amount: 1}, acc)
}

func TestProcessorQueries(t *testing.T) {
	env := newTestEnv(t)
	acc := env.bootstrap(0)
	env.mustExecute(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1_000_000}, acc)

	pools, err := env.processor.Pools()
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	if len(pools) != 1 || pools[0].Address != acc.Pool || pools[0].Pool.TotalStaked != 1_000_000 {
		t.Fatalf("unexpected pools: %+v", pools)
	}

	env.now = 500
	pending, err := env.processor.PendingRewards(acc.UserLedger, acc.Pool, 1)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 500 {
		t.Fatalf("unexpected pending rewards: %d", pending)
	}

	reason, err := env.processor.EmergencyCondition(acc, 1)
	if err != nil {
		t.Fatalf("emergency condition: %v", err)
	}
	if reason != "" {
		t.Fatalf("unexpected emergency condition %q", reason)
	}

	if _, err := env.processor.Pool(env.stakeMint); !errors.Is(err, staking.ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestApplyGenesisRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addr(env.user)
	balances := []GenesisBalance{{Asset: env.stakeMint, Owner: owner, Amount: 42}}

	applied, err := ApplyGenesis(env.manager, balances)
	if err != nil || !applied {
		t.Fatalf("first genesis: applied=%v err=%v", applied, err)
	}
	applied, err = ApplyGenesis(env.manager, balances)
	if err != nil || applied {
		t.Fatalf("second genesis: applied=%v err=%v", applied, err)
	}
	if got := env.balance(env.stakeMint, owner); got != 42 {
		t.Fatalf("unexpected genesis balance: %d", got)
	}
}
