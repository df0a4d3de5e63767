// Package config loads the pipeline configuration from an optional
// YAML file plus YIELDPIPE_* environment variables. CLI flags override
// both.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/agriml/yieldpipe/pkg/errors"
)

// Config is the full runtime configuration.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Paths PathConfig  `mapstructure:"paths"`
	Log   LogConfig   `mapstructure:"log"`
}

// StoreConfig configures the feature store connection. An empty DSN
// disables the store; the pipeline then works from the CSV snapshot.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PathConfig holds the filesystem locations the pipeline reads and
// writes.
type PathConfig struct {
	// DataDir holds the raw source CSVs.
	DataDir string `mapstructure:"data_dir"`

	// Snapshot is the finalized feature table CSV, written by the
	// builder and used as the training fallback.
	Snapshot string `mapstructure:"snapshot"`

	// Model is where the trained bundle is saved and loaded.
	Model string `mapstructure:"model"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file (or ./yieldpipe.yaml when file is
// empty) and the environment. A missing default config file is fine;
// an explicitly named file must exist.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.dsn", "")
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.snapshot", "data/ml_features.csv")
	v.SetDefault("paths.model", "models/yield_model.gob")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix("YIELDPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %q", file)
		}
	} else {
		v.SetConfigName("yieldpipe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "config: read")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}
