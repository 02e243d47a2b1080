package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	root := &cobra.Command{
		Use:          "basepool",
		Short:        "BasePool lottery client for Base",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "Base RPC URL")
	root.PersistentFlags().String("contract", "", "BasePool contract address")
	root.PersistentFlags().Uint64("chain-id", 0, "required chain id")
	root.PersistentFlags().String("ticket-price", "", "price of one number in ETH")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "optional rotating log file")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pool status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	root.AddCommand(statusCmd)

	numbersCmd := &cobra.Command{
		Use:   "numbers [address]",
		Short: "Show the numbers held by an address (default: the configured wallet)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNumbers,
	}
	numbersCmd.Flags().String("private-key", "", "hex private key of the wallet")
	root.AddCommand(numbersCmd)

	tiersCmd := &cobra.Command{
		Use:   "tiers",
		Short: "List the purchasable tiers",
		Args:  cobra.NoArgs,
		RunE:  runTiers,
	}
	tiersCmd.Flags().StringSlice("tiers", nil, "tier amounts in ETH (comma-separated)")
	root.AddCommand(tiersCmd)

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Explain how the pool works",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
	root.AddCommand(rulesCmd)

	enterCmd := &cobra.Command{
		Use:   "enter [amount]",
		Short: "Send ETH to the pool and wait for confirmation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnter,
	}
	enterCmd.Flags().String("private-key", "", "hex private key of the wallet")
	enterCmd.Flags().StringSlice("tiers", nil, "tier amounts in ETH (comma-separated)")
	enterCmd.Flags().StringSlice("networks", nil, "chain id to RPC URL mappings for chain switching (comma-separated id=url)")
	enterCmd.Flags().String("history-out", "", "attempt history JSONL path")
	enterCmd.Flags().String("pg-dsn", "", "Postgres DSN for attempt history")
	enterCmd.Flags().String("pending-file", "", "pending transaction file")
	enterCmd.Flags().Duration("receipt-poll", 0, "receipt polling interval")
	enterCmd.Flags().StringSlice("notify-email-to", nil, "notification email recipients")
	root.AddCommand(enterCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [hash]",
		Short: "Wait for a broadcast entry (default: the saved pending transaction)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().String("pending-file", "", "pending transaction file")
	watchCmd.Flags().Duration("receipt-poll", 0, "receipt polling interval")
	root.AddCommand(watchCmd)

	historyCmd := &cobra.Command{
		Use:   "history [address]",
		Short: "List recorded entry attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().String("history-out", "", "attempt history JSONL path")
	historyCmd.Flags().String("pg-dsn", "", "Postgres DSN for attempt history")
	historyCmd.Flags().Int("limit", 20, "maximum attempts to list")
	root.AddCommand(historyCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only pool API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", "", "HTTP listen address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for pool snapshots")
	serveCmd.Flags().Duration("snapshot-interval", 0, "pool snapshot interval")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotate := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), zapcore.AddSync(rotate), cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Second
	}
	return d
}
