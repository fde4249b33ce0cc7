// Package config loads service settings from config.yaml, a .env file and
// QUANT_-prefixed environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Engine EngineConfig `mapstructure:"engine"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// AuthConfig holds the bcrypt hash of the accepted API key. An empty hash
// disables authentication.
type AuthConfig struct {
	APIKeyHash string `mapstructure:"api_key_hash"`
}

type EngineConfig struct {
	Workers       int    `mapstructure:"workers"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	MaxIterations int    `mapstructure:"max_iterations"`
	Seed          uint64 `mapstructure:"seed"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

const envPrefix = "QUANT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0:8080")
	v.SetDefault("auth.api_key_hash", "")
	v.SetDefault("engine.workers", runtime.NumCPU())
	v.SetDefault("engine.chunk_size", 4096)
	v.SetDefault("engine.max_iterations", 5_000_000)
	v.SetDefault("engine.seed", 20230117)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the configuration. path names a YAML file or a directory
// searched for config.yaml, where a missing config.yaml is not an error. An
// empty path searches the working directory.
func Load(path string) (Config, error) {
	// .env is optional; its variables feed the environment lookups below
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	switch {
	case path == "":
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		v.SetConfigFile(path)
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("config: server.address is empty")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("config: engine.workers is %d, need at least 1", c.Engine.Workers)
	}
	if c.Engine.ChunkSize < 1 {
		return fmt.Errorf("config: engine.chunk_size is %d, need at least 1", c.Engine.ChunkSize)
	}
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("config: engine.max_iterations is %d, must not be negative", c.Engine.MaxIterations)
	}
	return nil
}
