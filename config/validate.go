package config

import (
	"fmt"

	"lstaking/storage"
)

var (
	MaxQuotaWindowSeconds = uint32(86_400)
)

func ValidateConfig(cfg *Config) error {
	if cfg.ChainID == 0 {
		return fmt.Errorf("chain_id must be non-zero")
	}
	if _, err := cfg.Program(); err != nil {
		return fmt.Errorf("program_address: %w", err)
	}
	switch cfg.StorageBackend {
	case "", storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("storage_backend: unknown backend %q", cfg.StorageBackend)
	}
	q := cfg.Global.Quotas.Staking
	if (q.MaxOpsPerWindow > 0 || q.MaxAmountPerWindow > 0) && q.WindowSeconds == 0 {
		return fmt.Errorf("quotas.staking: window_seconds required when limits are set")
	}
	if q.WindowSeconds > MaxQuotaWindowSeconds {
		return fmt.Errorf("quotas.staking: window_seconds exceeds %d", MaxQuotaWindowSeconds)
	}
	if _, err := cfg.Global.SlashedPools(); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: negative limits")
	}
	if cfg.Telemetry.Enabled && !cfg.Telemetry.Traces && !cfg.Telemetry.Metrics {
		return fmt.Errorf("telemetry: enabled without traces or metrics")
	}
	balances, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}
	for i, b := range balances {
		if b.Amount == 0 {
			return fmt.Errorf("genesis[%d]: amount must be positive", i)
		}
		if b.Asset.IsZero() {
			return fmt.Errorf("genesis[%d]: asset must be non-zero", i)
		}
	}
	return nil
}
