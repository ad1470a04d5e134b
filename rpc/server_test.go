package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lstaking/core"
	"lstaking/core/state"
	"lstaking/core/types"
	"lstaking/crypto"
	"lstaking/native/staking"
	"lstaking/storage"
)

const testChainID = 9

type rpcEnv struct {
	t       *testing.T
	proc    *core.Processor
	handler http.Handler
	now     int64

	authority *crypto.PrivateKey
	creator   *crypto.PrivateKey
	user      *crypto.PrivateKey

	stakeMint  crypto.Address
	rewardMint crypto.Address
}

func mint(suffix byte) crypto.Address {
	var addr crypto.Address
	addr[0] = 0x5a
	addr[len(addr)-1] = suffix
	return addr
}

func newRPCEnv(t *testing.T, limit RateLimit) *rpcEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	env := &rpcEnv{
		t:          t,
		proc:       core.NewProcessor(manager, mint(0x01), testChainID),
		stakeMint:  mint(0x10),
		rewardMint: mint(0x11),
	}
	env.proc.SetClock(staking.ClockFunc(func() int64 { return env.now }))
	for _, key := range []**crypto.PrivateKey{&env.authority, &env.creator, &env.user} {
		k, err := crypto.GeneratePrivateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		*key = k
	}
	if _, err := core.ApplyGenesis(manager, []core.GenesisBalance{
		{Asset: env.stakeMint, Owner: env.addr(env.user), Amount: 1_000_000},
		{Asset: env.rewardMint, Owner: env.addr(env.creator), Amount: 1_000_000},
	}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	env.handler = NewServer(env.proc, Config{RateLimit: limit}).Handler()
	return env
}

func (env *rpcEnv) addr(key *crypto.PrivateKey) crypto.Address {
	return key.PubKey().Address()
}

func (env *rpcEnv) accounts() staking.Accounts {
	env.t.Helper()
	derive := staking.Deriver{Program: env.proc.Program()}
	acc, err := derive.AccountsFor(staking.Accounts{
		Authority:  env.addr(env.authority),
		Creator:    env.addr(env.creator),
		StakeMint:  env.stakeMint,
		RewardMint: env.rewardMint,
	}, env.addr(env.user), 1)
	if err != nil {
		env.t.Fatalf("derive accounts: %v", err)
	}
	return acc
}

func (env *rpcEnv) submit(key *crypto.PrivateKey, nonce uint64, ins staking.Instruction) *httptest.ResponseRecorder {
	env.t.Helper()
	refs, err := staking.AccountList(ins.Op, env.accounts())
	if err != nil {
		env.t.Fatalf("account list: %v", err)
	}
	tx := &types.Transaction{ChainID: testChainID, Nonce: nonce, Data: ins.Encode(), Accounts: refs}
	if err := tx.Sign(key.PrivateKey); err != nil {
		env.t.Fatalf("sign: %v", err)
	}
	body, err := json.Marshal(tx)
	if err != nil {
		env.t.Fatalf("marshal tx: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func (env *rpcEnv) mustSubmit(key *crypto.PrivateKey, nonce uint64, ins staking.Instruction) {
	env.t.Helper()
	if rec := env.submit(key, nonce, ins); rec.Code != http.StatusOK {
		env.t.Fatalf("%s: status %d body %s", ins.Op, rec.Code, rec.Body.String())
	}
}

func (env *rpcEnv) get(path string) *httptest.ResponseRecorder {
	env.t.Helper()
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (env *rpcEnv) bootstrap() {
	env.t.Helper()
	env.mustSubmit(env.authority, 0, staking.Instruction{
		Op:     staking.OpInitGlobalConfig,
		Global: staking.GlobalParams{MinStake: 1, MaxPools: 2},
	})
	env.mustSubmit(env.creator, 0, staking.Instruction{
		Op: staking.OpCreatePool,
		Pool: staking.PoolParams{
			PoolID:              1,
			RewardRatePerSecond: 1_000_000,
			RewardMultiplier:    staking.NeutralMultiplier,
			MinStake:            1,
		},
	})
	env.mustSubmit(env.creator, 1, staking.Instruction{Op: staking.OpFundRewardVault, PoolID: 1, Amount: 500_000})
	env.mustSubmit(env.user, 0, staking.Instruction{Op: staking.OpInitUserLedger})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestSubmitAndQuery(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	env.bootstrap()
	acc := env.accounts()

	rec := env.submit(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1_000_000})
	if rec.Code != http.StatusOK {
		t.Fatalf("stake status %d: %s", rec.Code, rec.Body.String())
	}
	var receipt struct {
		Op     string         `json:"op"`
		Nonce  uint64         `json:"nonce"`
		Events []*types.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Op != staking.OpStake.String() || receipt.Nonce != 1 || len(receipt.Events) == 0 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id header missing")
	}

	rec = env.get("/pools/" + acc.Pool.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("pool status %d: %s", rec.Code, rec.Body.String())
	}
	var pool staking.Pool
	if err := json.Unmarshal(rec.Body.Bytes(), &pool); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	if pool.TotalStaked != 1_000_000 || pool.PoolID != 1 {
		t.Fatalf("unexpected pool: %+v", pool)
	}

	env.now = 500
	rec = env.get("/pools/" + acc.Pool.String() + "/pending/" + acc.UserLedger.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status %d: %s", rec.Code, rec.Body.String())
	}
	var pending pendingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if pending.Pending != 500 {
		t.Fatalf("unexpected pending rewards: %d", pending.Pending)
	}

	rec = env.get("/balances/" + acc.LSTMint.String() + "/" + env.addr(env.user).String())
	var balance core.Balance
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Amount != 1_000_000 {
		t.Fatalf("unexpected lst balance: %d", balance.Amount)
	}

	rec = env.get("/accounts/" + env.addr(env.user).String() + "/nonce")
	var nonce map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &nonce); err != nil {
		t.Fatalf("decode nonce: %v", err)
	}
	if nonce["nonce"] != 2 {
		t.Fatalf("unexpected nonce: %v", nonce)
	}

	rec = env.get("/ledgers/" + acc.UserLedger.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger status %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.get("/pools")
	var pools []state.PoolEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &pools); err != nil {
		t.Fatalf("decode pools: %v", err)
	}
	if len(pools) != 1 || pools[0].Address != acc.Pool {
		t.Fatalf("unexpected pool list: %+v", pools)
	}

	rec = env.get("/events?from=0&limit=2")
	var journal []state.JournaledEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &journal); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(journal) != 2 || journal[0].Seq != 0 || journal[1].Seq != 1 {
		t.Fatalf("unexpected journal page: %+v", journal)
	}

	rec = env.get("/state/root")
	var root map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if len(root["root"]) != 66 {
		t.Fatalf("unexpected state root: %v", root)
	}
}

func TestEmergencyConditionQuery(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	env.bootstrap()
	acc := env.accounts()
	path := "/pools/" + acc.Pool.String() + "/emergency?authority=" + env.addr(env.authority).String()

	rec := env.get(path)
	if rec.Code != http.StatusOK {
		t.Fatalf("emergency status %d: %s", rec.Code, rec.Body.String())
	}
	var resp emergencyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode emergency: %v", err)
	}
	if resp.Emergency {
		t.Fatalf("unexpected emergency on healthy pool: %+v", resp)
	}

	env.mustSubmit(env.authority, 1, staking.Instruction{Op: staking.OpSetGlobalEmergencyPause, Flag: true})
	rec = env.get(path)
	resp = emergencyResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode emergency: %v", err)
	}
	if !resp.Emergency || resp.Reason == "" {
		t.Fatalf("expected emergency after global pause: %+v", resp)
	}

	if rec := env.get("/pools/" + acc.Pool.String() + "/emergency?authority=bogus"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed authority, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newRPCEnv(t, RateLimit{})
	env.bootstrap()
	acc := env.accounts()

	rec := env.submit(env.user, 1, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 2_000_000})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for overdrawn stake, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); staking.Code(body.Code) != staking.CodeInsufficientFunds {
		t.Fatalf("unexpected error code: %+v", body)
	}

	rec = env.submit(env.user, 5, staking.Instruction{Op: staking.OpStake, PoolID: 1, Amount: 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for nonce gap, got %d", rec.Code)
	}

	rec = env.get("/pools/" + mint(0x77).String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown pool, got %d", rec.Code)
	}
	if body := decodeError(t, rec); staking.Code(body.Code) != staking.CodePoolNotFound {
		t.Fatalf("unexpected error code: %+v", body)
	}

	if rec := env.get("/ledgers/" + acc.Treasury.String()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing ledger, got %d", rec.Code)
	}
	if rec := env.get("/pools/not-an-address"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed address, got %d", rec.Code)
	}
	if rec := env.get("/events?limit=-1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader([]byte("{")))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	env := newRPCEnv(t, RateLimit{RequestsPerMinute: 1, Burst: 2})
	for i := 0; i < 2; i++ {
		if rec := env.get("/pools"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	if rec := env.get("/pools"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec := env.get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("health check should bypass the limiter, got %d", rec.Code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }

	if !limiter.allow("a") {
		t.Fatalf("first request should pass")
	}
	if limiter.allow("a") {
		t.Fatalf("second immediate request should be limited")
	}
	now = now.Add(10 * time.Minute)
	if !limiter.allow("b") {
		t.Fatalf("other client should pass")
	}
	if _, ok := limiter.visitors["a"]; ok {
		t.Fatalf("idle client was not evicted")
	}
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientID(req); got != "10.0.0.1" {
		t.Fatalf("unexpected remote id: %s", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.7" {
		t.Fatalf("unexpected forwarded id: %s", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := clientID(req); got != "198.51.100.2" {
		t.Fatalf("unexpected real ip id: %s", got)
	}
}
