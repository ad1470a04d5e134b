package state

import (
	"testing"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"lstaking/core/events"
	"lstaking/crypto"
	"lstaking/native/staking"
	"lstaking/storage"
)

func testAddress(suffix byte) crypto.Address {
	var addr crypto.Address
	addr[0] = 0x3c
	addr[len(addr)-1] = suffix
	return addr
}

func TestTxCommitPersistsWrites(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	asset, owner := testAddress(1), testAddress(2)
	tx := mgr.Begin()
	require.NoError(t, tx.SetBalance(asset, owner, 500))
	require.NoError(t, tx.SetSupply(asset, 500))
	require.Equal(t, 2, tx.Pending())

	bal, err := tx.Balance(asset, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal, "overlay reads its own writes")

	require.NoError(t, mgr.View(func(view *Tx) error {
		bal, err := view.Balance(asset, owner)
		require.NoError(t, err)
		require.Zero(t, bal, "uncommitted writes must not leak")
		return nil
	}))

	_, err = tx.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.View(func(view *Tx) error {
		bal, err := view.Balance(asset, owner)
		require.NoError(t, err)
		require.Equal(t, uint64(500), bal)
		supply, err := view.Supply(asset)
		require.NoError(t, err)
		require.Equal(t, uint64(500), supply)
		return nil
	}))
}

func TestTxDiscardDropsWrites(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	addr := testAddress(3)

	tx := mgr.Begin()
	require.NoError(t, tx.SetNonce(addr, 4))
	tx.Emit(events.StakingLedgerInitialized{Ledger: addr, Owner: addr})
	tx.Discard()

	_, err := tx.Commit()
	require.ErrorIs(t, err, errTxClosed)

	require.NoError(t, mgr.View(func(view *Tx) error {
		nonce, err := view.Nonce(addr)
		require.NoError(t, err)
		require.Zero(t, nonce)
		return nil
	}))
	journal, err := mgr.Events(0, 0)
	require.NoError(t, err)
	require.Empty(t, journal)
}

func TestZeroBalanceDeletesKey(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	asset, owner := testAddress(4), testAddress(5)

	tx := mgr.Begin()
	require.NoError(t, tx.SetBalance(asset, owner, 9))
	_, err := tx.Commit()
	require.NoError(t, err)

	tx = mgr.Begin()
	require.NoError(t, tx.SetBalance(asset, owner, 0))
	_, err = tx.Commit()
	require.NoError(t, err)

	_, err = db.Get(balanceKey(asset, owner))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventJournalIsDense(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	ledger := testAddress(6)

	for i := 0; i < 3; i++ {
		tx := mgr.Begin()
		tx.Emit(events.StakingStaked{Owner: ledger, PoolID: uint64(i), Amount: uint64(i + 1), LSTMinted: uint64(i + 1)})
		tx.Emit(events.StakingClaimed{Owner: ledger, PoolID: uint64(i)})
		evts, err := tx.Commit()
		require.NoError(t, err)
		require.Len(t, evts, 2)
	}

	journal, err := mgr.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, journal, 6)
	for i, evt := range journal {
		require.Equal(t, uint64(i), evt.Seq)
	}
	require.Equal(t, events.TypeStakingStaked, journal[4].Type)
	require.Equal(t, "3", journal[4].Attributes["amount"])

	page, err := mgr.Events(2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, uint64(2), page[0].Seq)
	require.Equal(t, uint64(3), page[1].Seq)
}

func TestStakingRecordsRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	poolAddr, ledgerAddr, cfgAddr, oracleAddr := testAddress(7), testAddress(8), testAddress(9), testAddress(10)

	pool := &staking.Pool{
		PoolID:              3,
		Creator:             testAddress(11),
		StakeAsset:          testAddress(12),
		RewardAsset:         testAddress(13),
		TotalStaked:         1_000,
		RewardRatePerSecond: 7,
		AccRewardPerShare:   staking.WideFromLimbs(5, 1),
		RewardMultiplier:    staking.NeutralMultiplier,
		MinStake:            1,
		Status:              staking.PoolPaused,
	}
	ledger := &staking.UserLedger{Owner: testAddress(14), GlobalConfig: cfgAddr, PendingRewards: 12}
	ledger.Positions[2] = staking.StakePosition{PoolID: 3, Pool: poolAddr, StakedAmount: 1_000, LSTTokens: 1_000, Active: true}
	cfg := &staking.GlobalConfig{Authority: testAddress(15), ProtocolFeeBps: 250, MaxPools: 8, MinStake: 1}
	oracle := &staking.OracleRecord{PriceFeed: testAddress(16), Authority: testAddress(17), UpdateFrequency: 60, Price: 99}

	tx := mgr.Begin()
	require.NoError(t, tx.PutPool(poolAddr, pool))
	require.NoError(t, tx.PutUserLedger(ledgerAddr, ledger))
	require.NoError(t, tx.PutGlobalConfig(cfgAddr, cfg))
	require.NoError(t, tx.PutOracle(oracleAddr, oracle))
	require.Error(t, tx.PutPool(poolAddr, nil))
	_, err := tx.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.View(func(view *Tx) error {
		gotPool, err := view.GetPool(poolAddr)
		require.NoError(t, err)
		require.Equal(t, pool, gotPool)

		gotLedger, err := view.GetUserLedger(ledgerAddr)
		require.NoError(t, err)
		require.Equal(t, ledger, gotLedger)

		gotCfg, err := view.GetGlobalConfig(cfgAddr)
		require.NoError(t, err)
		require.Equal(t, cfg, gotCfg)

		gotOracle, err := view.GetOracle(oracleAddr)
		require.NoError(t, err)
		require.Equal(t, oracle, gotOracle)

		missing, err := view.GetPool(testAddress(99))
		require.NoError(t, err)
		require.Nil(t, missing)
		return nil
	}))

	pools, err := mgr.Pools()
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, poolAddr, pools[0].Address)
}

func TestCorruptRecordReportsAddress(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	addr := testAddress(20)
	require.NoError(t, db.Put(addrKey(poolPrefix, addr), []byte{1, 2, 3}))

	require.NoError(t, mgr.View(func(view *Tx) error {
		_, err := view.GetPool(addr)
		require.ErrorContains(t, err, addr.String())
		return nil
	}))

	require.NoError(t, db.Put(addrKey(noncePrefix, addr), []byte{1}))
	require.NoError(t, mgr.View(func(view *Tx) error {
		_, err := view.Nonce(addr)
		require.Error(t, err)
		return nil
	}))
}

func TestNilManager(t *testing.T) {
	mgr := NewManager(nil)
	_, err := mgr.Begin().Commit()
	require.ErrorIs(t, err, errNilDB)
}

func TestStateRootTracksCommittedState(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	root, err := mgr.StateRoot()
	require.NoError(t, err)
	require.Equal(t, gethtypes.EmptyRootHash, root)

	tx := mgr.Begin()
	require.NoError(t, tx.SetBalance(testAddress(1), testAddress(2), 10))
	_, err = tx.Commit()
	require.NoError(t, err)
	committed, err := mgr.StateRoot()
	require.NoError(t, err)
	require.NotEqual(t, root, committed)

	tx = mgr.Begin()
	require.NoError(t, tx.SetBalance(testAddress(1), testAddress(2), 99))
	tx.Discard()
	again, err := mgr.StateRoot()
	require.NoError(t, err)
	require.Equal(t, committed, again)

	require.NoError(t, db.Put(eventKey(0), []byte{0x01}))
	withJournal, err := mgr.StateRoot()
	require.NoError(t, err)
	require.Equal(t, committed, withJournal, "journal entries must not affect the root")
}
