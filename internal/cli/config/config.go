package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the graphcat configuration
type Config struct {
	Graph    GraphConfig    `mapstructure:"graph"`
	Source   SourceConfig   `mapstructure:"source"`
	BulkLoad BulkLoadConfig `mapstructure:"bulk_load"`
}

// GraphConfig represents graph endpoint configuration
type GraphConfig struct {
	// Endpoint is the traversal websocket, like "wss://host:8182/gremlin".
	Endpoint string `mapstructure:"endpoint"`
	// Dialect selects the script flavor: "neptune" or "janusgraph".
	Dialect string `mapstructure:"dialect"`
	// Shard isolates test and development datasets. Empty means the shard
	// is resolved from the environment at startup.
	Shard string `mapstructure:"shard"`
}

// SourceConfig represents metadata source configuration
type SourceConfig struct {
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
	Cluster  string `mapstructure:"cluster"`
}

// BulkLoadConfig represents staging and loader configuration
type BulkLoadConfig struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	S3Endpoint      string        `mapstructure:"s3_endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	LoaderEndpoint  string        `mapstructure:"loader_endpoint"`
	IAMRoleARN      string        `mapstructure:"iam_role_arn"`
	ObjectPrefix    string        `mapstructure:"object_prefix"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Strict          bool          `mapstructure:"strict"`
}

// Load loads the configuration from graphcat.yml or graphcat.yaml. When path
// is non-empty that file is read instead of searching the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("graph.dialect", "neptune")
	v.SetDefault("source.database", "postgres")
	v.SetDefault("source.cluster", "default")
	v.SetDefault("bulk_load.region", "us-east-1")
	v.SetDefault("bulk_load.poll_interval", 10*time.Second)
	v.SetDefault("bulk_load.timeout", 30*time.Minute)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("graphcat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix("GRAPHCAT")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Graph.Dialect {
	case "neptune", "janusgraph":
	default:
		return fmt.Errorf("graph.dialect must be \"neptune\" or \"janusgraph\", got: %s", cfg.Graph.Dialect)
	}
	if cfg.BulkLoad.PollInterval <= 0 {
		return fmt.Errorf("bulk_load.poll_interval must be positive, got: %s", cfg.BulkLoad.PollInterval)
	}
	if cfg.BulkLoad.Timeout <= 0 {
		return fmt.Errorf("bulk_load.timeout must be positive, got: %s", cfg.BulkLoad.Timeout)
	}
	return nil
}
