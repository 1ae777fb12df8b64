package config

import (
	"strings"
	"time"

	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ChainSettings describes one chain the resolver settles on.
type ChainSettings struct {
	Name          string `mapstructure:"name"`
	ChainID       uint64 `mapstructure:"chain_id"`
	RpcURL        string `mapstructure:"rpc_url"`
	TxType        uint64 `mapstructure:"tx_type"`
	PrivateKey    string `mapstructure:"private_key"`
	EscrowFactory string `mapstructure:"escrow_factory"`
	ExplorerURL   string `mapstructure:"explorer_url"`
}

// Config holds the resolver configuration.
type Config struct {
	ListenAddr            string          `mapstructure:"listen_addr"`
	DatabaseURL           string          `mapstructure:"database_url"`
	FinalityDelay         time.Duration   `mapstructure:"finality_delay"`
	CallTimeout           time.Duration   `mapstructure:"call_timeout"`
	WithdrawRetryAttempts int             `mapstructure:"withdraw_retry_attempts"`
	WithdrawRetryBackoff  time.Duration   `mapstructure:"withdraw_retry_backoff"`
	Chains                []ChainSettings `mapstructure:"chains"`
}

// Load reads configuration from the resolver config file and environment
// variables. Environment variables use the RESOLVER_ prefix and override
// file values.
//
// Returns:
// - *Config: the loaded configuration.
// - error: an error if reading or validation fails.
func Load() (*Config, error) {
	viper.SetConfigName("resolver")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("finality_delay", "30s")
	viper.SetDefault("call_timeout", "60s")
	viper.SetDefault("withdraw_retry_attempts", 3)
	viper.SetDefault("withdraw_retry_backoff", "5s")

	viper.SetEnvPrefix("RESOLVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional; env vars may carry everything.
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for the fields the settlement
// protocol cannot run without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if len(c.Chains) < 2 {
		return errors.New("at least two chains must be configured")
	}
	for _, chain := range c.Chains {
		if chain.ChainID == 0 {
			return errors.Errorf("chain %q has no chain id", chain.Name)
		}
		if chain.RpcURL == "" {
			return errors.Errorf("chain %q has no RPC URL", chain.Name)
		}
		if chain.PrivateKey == "" {
			return errors.Errorf("chain %q has no private key", chain.Name)
		}
		if chain.EscrowFactory == "" {
			return errors.Errorf("chain %q has no escrow factory address", chain.Name)
		}
	}
	return nil
}

// ChainConfig converts one chain's settings into the client configuration.
func (c *Config) ChainConfig(settings ChainSettings) *types.ChainConfig {
	return &types.ChainConfig{
		Name:          settings.Name,
		ChainType:     types.EVM,
		ChainID:       settings.ChainID,
		RpcUrl:        settings.RpcURL,
		TxType:        settings.TxType,
		PrivateKey:    settings.PrivateKey,
		EscrowFactory: settings.EscrowFactory,
		ExplorerUrl:   settings.ExplorerURL,
		CallTimeout:   c.CallTimeout,
	}
}
