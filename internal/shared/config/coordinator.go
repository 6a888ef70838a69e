package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CoordinatorConfig contains all configuration for the job coordinator.
type CoordinatorConfig struct {
	Phases        PhasesConfig        `mapstructure:"phases"`
	FailurePolicy FailurePolicyConfig `mapstructure:"failure_policy"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// PhasesConfig holds the default fan-out used when a JobDescriptor doesn't
// set nMap/nRed explicitly.
type PhasesConfig struct {
	DefaultMapConcurrency    int           `mapstructure:"default_map_concurrency"`
	DefaultReduceConcurrency int           `mapstructure:"default_reduce_concurrency"`
	AckTimeout               time.Duration `mapstructure:"ack_timeout"`
}

// FailurePolicyConfig bounds how many nodes may be blacklisted for a single
// partition before the job aborts (the failure-rate cap).
type FailurePolicyConfig struct {
	MaxFailureRate int `mapstructure:"max_failure_rate"`
}

// LoadCoordinator loads the coordinator configuration from the given path.
// If configPath is empty, it looks for coordinator.yaml in the config/ directory.
// Environment variables with MRCOORD_COORDINATOR_ prefix override config file values.
func LoadCoordinator(configPath string) (*CoordinatorConfig, error) {
	v := viper.New()

	v.SetDefault("phases.default_map_concurrency", 8)
	v.SetDefault("phases.default_reduce_concurrency", 4)
	v.SetDefault("phases.ack_timeout", 5*time.Second)
	v.SetDefault("failure_policy.max_failure_rate", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("coordinator")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MRCOORD_COORDINATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg CoordinatorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
