package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"basepool/internal/config"
	"basepool/internal/contract"
	"basepool/internal/model"
	"basepool/internal/storage"
	"basepool/internal/storage/postgres"
)

func runHistory(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}

	submitter := ""
	if len(args) == 1 {
		address, err := contract.ParseAddress(args[0])
		if err != nil {
			return err
		}
		submitter = address.Hex()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var attempts []model.TxAttempt
	if cfg.PGDSN != "" {
		if submitter == "" {
			return fmt.Errorf("address is required with pg-dsn")
		}
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		attempts, err = store.AttemptsBySubmitter(ctx, submitter, limit)
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}
	} else {
		if cfg.HistoryOut == "" {
			return fmt.Errorf("history-out or pg-dsn is required")
		}
		all, err := storage.NewJsonlStorage(cfg.HistoryOut).ReadAttempts()
		if err != nil {
			return err
		}
		attempts = latestAttempts(all, submitter, limit)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tSTATUS\tAMOUNT\tNUMBERS\tTX\tERROR")
	for _, a := range attempts {
		fmt.Fprintf(w, "%s\t%s\t%s ETH\t%d\t%s\t%s\n", a.FinishedAt, a.Status, a.AmountETH, a.Numbers, a.TxHash, a.Error)
	}
	return w.Flush()
}

// latestAttempts returns up to limit attempts, newest first, optionally
// filtered by submitter.
func latestAttempts(all []model.TxAttempt, submitter string, limit int) []model.TxAttempt {
	out := make([]model.TxAttempt, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if submitter != "" && !strings.EqualFold(all[i].Submitter, submitter) {
			continue
		}
		out = append(out, all[i])
	}
	return out
}
