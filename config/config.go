package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lstaking/crypto"
	"lstaking/storage"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	DataDir              string `toml:"DataDir"`
	StorageBackend       string `toml:"StorageBackend"`
	ChainID              uint64 `toml:"ChainID"`
	ProgramAddress       string `toml:"ProgramAddress"`
	ProgramKeystorePath  string `toml:"ProgramKeystorePath"`
	Environment          string `toml:"Environment"`
	LogLevel             string `toml:"LogLevel"`
	LogFile              string `toml:"LogFile"`
	LogMaxSizeMB         int    `toml:"LogMaxSizeMB"`
	RPCReadHeaderTimeout int    `toml:"RPCReadHeaderTimeout"`
	RPCReadTimeout       int    `toml:"RPCReadTimeout"`
	RPCWriteTimeout      int    `toml:"RPCWriteTimeout"`
	RPCIdleTimeout       int    `toml:"RPCIdleTimeout"`

	RateLimit RateLimit        `toml:"rate_limit"`
	Telemetry Telemetry        `toml:"telemetry"`
	Global    Global           `toml:"global"`
	Genesis   []GenesisBalance `toml:"genesis"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.ProgramAddress) == "" {
		if err := ensureProgramKeystore(path, cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./lstaking-data"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = storage.BackendLevelDB
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.RPCReadHeaderTimeout <= 0 {
		cfg.RPCReadHeaderTimeout = 5
	}
	if cfg.RPCReadTimeout <= 0 {
		cfg.RPCReadTimeout = 15
	}
	if cfg.RPCWriteTimeout <= 0 {
		cfg.RPCWriteTimeout = 15
	}
	if cfg.RPCIdleTimeout <= 0 {
		cfg.RPCIdleTimeout = 60
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 100
	}
}

// ensureProgramKeystore loads, or creates, the key whose address scopes
// every derived record and pins ProgramAddress to it.
func ensureProgramKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.ProgramKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	var key *crypto.PrivateKey
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, err = crypto.CreateKeystore(keystorePath, "")
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else {
		key, err = crypto.LoadFromKeystore(keystorePath, "")
		if err != nil {
			return err
		}
	}

	cfg.ProgramKeystorePath = keystorePath
	cfg.ProgramAddress = key.PubKey().Address().String()
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RateLimit: RateLimit{RequestsPerMinute: 600, Burst: 50},
		Global: Global{
			Quotas: Quotas{Staking: Quota{MaxOpsPerWindow: 120, WindowSeconds: 60}},
		},
	}
	applyDefaults(cfg)
	if err := ensureProgramKeystore(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "program.keystore")
}
