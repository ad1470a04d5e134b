package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lstaking/core"
	"lstaking/core/types"
	"lstaking/crypto"
	"lstaking/native/staking"
)

const defaultEventLimit = 100

func (s *Server) addressParam(w http.ResponseWriter, r *http.Request, name string) (crypto.Address, bool) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, staking.CodeInvalidAccount, fmt.Sprintf("invalid %s address: %v", name, err))
		return crypto.Address{}, false
	}
	return addr, true
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, staking.CodeUnknown, "failed to read body")
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, staking.CodeUnknown, "request body too large")
		return
	}
	var tx types.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		writeError(w, http.StatusBadRequest, staking.CodeInvalidInstruction, fmt.Sprintf("invalid transaction: %v", err))
		return
	}
	receipt, err := s.proc.Execute(r.Context(), &tx)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleListPools(w http.ResponseWriter, _ *http.Request) {
	pools, err := s.proc.Pools()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r, "pool")
	if !ok {
		return
	}
	pool, err := s.proc.Pool(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

type emergencyResponse struct {
	Pool      crypto.Address `json:"pool"`
	Emergency bool           `json:"emergency"`
	Reason    string         `json:"reason,omitempty"`
}

// handleEmergencyCondition needs the key that seeded the global config,
// passed as the authority query parameter.
func (s *Server) handleEmergencyCondition(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r, "pool")
	if !ok {
		return
	}
	authority, err := crypto.ParseAddress(r.URL.Query().Get("authority"))
	if err != nil {
		writeError(w, http.StatusBadRequest, staking.CodeInvalidAccount, fmt.Sprintf("invalid authority address: %v", err))
		return
	}
	pool, err := s.proc.Pool(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	deriver := staking.Deriver{Program: s.proc.Program()}
	acc, err := deriver.AccountsFor(staking.Accounts{Authority: authority, Creator: pool.Creator}, crypto.Address{}, pool.PoolID)
	if err != nil {
		s.fail(w, err)
		return
	}
	reason, err := s.proc.EmergencyCondition(acc, pool.PoolID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencyResponse{Pool: addr, Emergency: reason != "", Reason: reason})
}

type pendingResponse struct {
	Pool    crypto.Address `json:"pool"`
	Ledger  crypto.Address `json:"ledger"`
	Pending staking.Amount `json:"pending"`
}

func (s *Server) handlePendingRewards(w http.ResponseWriter, r *http.Request) {
	poolAddr, ok := s.addressParam(w, r, "pool")
	if !ok {
		return
	}
	ledgerAddr, ok := s.addressParam(w, r, "ledger")
	if !ok {
		return
	}
	pool, err := s.proc.Pool(poolAddr)
	if err != nil {
		s.fail(w, err)
		return
	}
	pending, err := s.proc.PendingRewards(ledgerAddr, poolAddr, pool.PoolID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingResponse{Pool: poolAddr, Ledger: ledgerAddr, Pending: pending})
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r, "ledger")
	if !ok {
		return
	}
	ledger, err := s.proc.UserLedger(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, core.LedgerView{Address: addr, Ledger: ledger})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	asset, ok := s.addressParam(w, r, "asset")
	if !ok {
		return
	}
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}
	balance, err := s.proc.Balance(asset, owner)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r, "addr")
	if !ok {
		return
	}
	nonce, err := s.proc.Nonce(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"nonce": nonce})
}

func (s *Server) handleGetOracle(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.addressParam(w, r, "oracle")
	if !ok {
		return
	}
	quote, err := s.proc.OraclePrice(addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var from uint64
	if raw := query.Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, staking.CodeInvalidArgument, "invalid from")
			return
		}
		from = parsed
	}
	limit := defaultEventLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, staking.CodeInvalidArgument, "invalid limit")
			return
		}
		limit = parsed
	}
	events, err := s.proc.Events(from, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleStateRoot(w http.ResponseWriter, _ *http.Request) {
	root, err := s.proc.StateRoot()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"root": root.Hex()})
}
