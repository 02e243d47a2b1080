package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Networks        map[string]string
	ChainID         uint64
	Contract        string
	PrivateKey      string
	TicketPrice     string
	Tiers           []string
	HistoryOut      string
	PGDSN           string
	PendingFile     string
	NotifyEmailTo   []string
	NotifyEmailFrom string
	ResendAPIKey    string
	NotifyRetries   int
	NotifyBackoff   time.Duration
	Listen          string
	ReceiptPoll     time.Duration
	SnapshotEvery   time.Duration
	LogLevel        string
	LogFile         string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("BASEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", "https://mainnet.base.org")
	v.SetDefault("chain-id", uint64(8453))
	v.SetDefault("contract", "0xF9f40e4a0d85A5F6aE758E4C40623A62EFC943f3")
	v.SetDefault("ticket-price", "0.0005")
	v.SetDefault("tiers", []string{"0.0005", "0.0015", "0.0025", "0.005"})
	v.SetDefault("history-out", "./data/attempts.jsonl")
	v.SetDefault("pending-file", "./data/pending.json")
	v.SetDefault("notify-email-from", "BasePool <notify@basepool.miniapps.zone>")
	v.SetDefault("notify-retries", 2)
	v.SetDefault("notify-backoff", 500*time.Millisecond)
	v.SetDefault("listen", ":8080")
	v.SetDefault("receipt-poll", 2*time.Second)
	v.SetDefault("snapshot-interval", 30*time.Second)
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

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		Networks:        getStringMap(v, "networks"),
		ChainID:         v.GetUint64("chain-id"),
		Contract:        v.GetString("contract"),
		PrivateKey:      v.GetString("private-key"),
		TicketPrice:     v.GetString("ticket-price"),
		Tiers:           getStringSlice(v, "tiers"),
		HistoryOut:      v.GetString("history-out"),
		PGDSN:           v.GetString("pg-dsn"),
		PendingFile:     v.GetString("pending-file"),
		NotifyEmailTo:   getStringSlice(v, "notify-email-to"),
		NotifyEmailFrom: v.GetString("notify-email-from"),
		ResendAPIKey:    v.GetString("resend-api-key"),
		NotifyRetries:   v.GetInt("notify-retries"),
		NotifyBackoff:   v.GetDuration("notify-backoff"),
		Listen:          v.GetString("listen"),
		ReceiptPoll:     v.GetDuration("receipt-poll"),
		SnapshotEvery:   v.GetDuration("snapshot-interval"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
