package config

// Pauses lists operator pause switches by module.
type Pauses struct {
	Staking bool
}

// Quota defines rate limits for staking instructions on a per-signer basis.
type Quota struct {
	MaxOpsPerWindow    uint32
	MaxAmountPerWindow uint64 // in base units of the instruction amount
	WindowSeconds      uint32 // e.g., 60
}

// Quotas groups quotas for each module.
type Quotas struct {
	Staking Quota
}

// Slashing lists pools with confirmed slashing evidence. Pools that have
// slashing enabled and appear here admit emergency withdrawals.
type Slashing struct {
	Pools []string
}

// Global bundles the runtime policy enforced by the processor.
type Global struct {
	Pauses   Pauses
	Quotas   Quotas
	Slashing Slashing
}

// RateLimit bounds RPC requests per client address.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Traces   bool
	Metrics  bool
	Headers  string
}

// GenesisBalance mints Amount of Asset to Owner when the store is first
// opened. Addresses are bech32 or 0x-hex.
type GenesisBalance struct {
	Asset  string
	Owner  string
	Amount uint64
}
