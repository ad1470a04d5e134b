package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lstaking/core"
	nativecommon "lstaking/native/common"
	"lstaking/native/staking"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Timeouts bounds the HTTP server phases.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// Config wires the server.
type Config struct {
	RateLimit RateLimit
	Timeouts  Timeouts
	Logger    *slog.Logger
}

// Server exposes the processor over HTTP.
type Server struct {
	proc    *core.Processor
	logger  *slog.Logger
	limiter *RateLimiter
	handler http.Handler
	cfg     Config
}

func NewServer(proc *core.Processor, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		proc:    proc,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RateLimit),
		cfg:     cfg,
	}
	s.handler = otelhttp.NewHandler(s.routes(), "stakingd")
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Post("/tx", s.handleSubmitTransaction)
		r.Get("/pools", s.handleListPools)
		r.Get("/pools/{pool}", s.handleGetPool)
		r.Get("/pools/{pool}/emergency", s.handleEmergencyCondition)
		r.Get("/pools/{pool}/pending/{ledger}", s.handlePendingRewards)
		r.Get("/ledgers/{ledger}", s.handleGetLedger)
		r.Get("/balances/{asset}/{owner}", s.handleGetBalance)
		r.Get("/accounts/{addr}/nonce", s.handleGetNonce)
		r.Get("/oracles/{oracle}", s.handleGetOracle)
		r.Get("/events", s.handleListEvents)
		r.Get("/state/root", s.handleStateRoot)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.Timeouts.ReadHeader,
		ReadTimeout:       s.cfg.Timeouts.Read,
		WriteTimeout:      s.cfg.Timeouts.Write,
		IdleTimeout:       s.cfg.Timeouts.Idle,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type errorBody struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code staking.Code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: uint32(code), Message: message}})
}

// statusFor maps processor errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, staking.ErrPoolNotFound), errors.Is(err, staking.ErrPositionNotFound),
		errors.Is(err, staking.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, staking.ErrUnauthorized), errors.Is(err, staking.ErrMissingSignature):
		return http.StatusUnauthorized
	case errors.Is(err, nativecommon.ErrQuotaOpsExceeded), errors.Is(err, nativecommon.ErrQuotaAmountExceeded),
		errors.Is(err, nativecommon.ErrQuotaCounterOverflow):
		return http.StatusTooManyRequests
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidChainID), errors.Is(err, core.ErrNilTransaction):
		return http.StatusBadRequest
	}
	if staking.ErrorCode(err) != staking.CodeUnknown {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("rpc internal error", "error", err)
	}
	writeError(w, status, staking.ErrorCode(err), err.Error())
}
