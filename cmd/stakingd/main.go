package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lstaking/config"
	"lstaking/core"
	"lstaking/core/state"
	"lstaking/observability/logging"
	"lstaking/observability/metrics"
	telemetry "lstaking/observability/otel"
	"lstaking/rpc"
	"lstaking/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to stakingd config")
	flag.Parse()

	if err := run(cfgPath); err != nil {
		log.Fatalf("stakingd: %v", err)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(cfg.Environment)
	logger := logging.Setup("stakingd", env, logging.Options{
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Level:     logging.ParseLevel(cfg.LogLevel),
	})

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "stakingd",
			Environment: env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	program, err := cfg.Program()
	if err != nil {
		return fmt.Errorf("program address: %w", err)
	}
	balances, err := cfg.GenesisBalances()
	if err != nil {
		return fmt.Errorf("genesis balances: %w", err)
	}

	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open %s database %s: %w", cfg.StorageBackend, cfg.DataDir, err)
	}
	defer db.Close()

	manager := state.NewManager(db)
	applied, err := core.ApplyGenesis(manager, balances)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if applied {
		logger.Info("genesis balances minted", "count", len(balances))
	}

	processor := core.NewProcessor(manager, program, cfg.ChainID)
	processor.SetPauses(cfg.Global.Pauses)
	processor.SetQuota(cfg.Global.StakingQuota())
	slashed, err := cfg.Global.SlashedPools()
	if err != nil {
		return fmt.Errorf("slashing config: %w", err)
	}
	processor.SetSlashingDetector(slashed)
	processor.SetLogger(logger)
	processor.SetMetrics(metrics.Staking())

	server := rpc.NewServer(processor, rpc.Config{
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Timeouts: rpc.Timeouts{
			ReadHeader: seconds(cfg.RPCReadHeaderTimeout),
			Read:       seconds(cfg.RPCReadTimeout),
			Write:      seconds(cfg.RPCWriteTimeout),
			Idle:       seconds(cfg.RPCIdleTimeout),
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("stakingd starting", "program", program.String(), "chainId", cfg.ChainID,
		"dataDir", cfg.DataDir, "stakingPaused", cfg.Global.Pauses.Staking)
	if err := server.Serve(ctx, cfg.RPCAddress); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
