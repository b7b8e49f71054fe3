package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"wrapRelay/internal/registry"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr string

	RPCURL     string
	TxRPCURL   string
	PrivateKey string

	PostgresDSN string
	UseMemory   bool

	Tokens       []registry.TokenInfo
	TriggerToken string
	MintToken    string
	MintDecimals uint8
	Multiplier   int64

	OutcomePath string

	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
// Tokens come from the config file's tokens list; scalar values may also be
// set via RELAYER_* environment variables or flags.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":3000")
	v.SetDefault("mint-decimals", 18)
	v.SetDefault("multiplier", 1)
	v.SetDefault("outcomes", "./data/outcomes.jsonl")
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var tokens []registry.TokenInfo
	if v.IsSet("tokens") {
		if err := v.UnmarshalKey("tokens", &tokens); err != nil {
			return Config{}, fmt.Errorf("parse tokens: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:        v.GetString("listen"),
		RPCURL:            v.GetString("rpc"),
		TxRPCURL:          v.GetString("tx-rpc"),
		PrivateKey:        v.GetString("private-key"),
		PostgresDSN:       v.GetString("postgres-dsn"),
		UseMemory:         v.GetBool("use-memory"),
		Tokens:            tokens,
		TriggerToken:      v.GetString("trigger-token"),
		MintToken:         v.GetString("mint-token"),
		MintDecimals:      uint8(v.GetUint("mint-decimals")),
		Multiplier:        v.GetInt64("multiplier"),
		OutcomePath:       v.GetString("outcomes"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}
