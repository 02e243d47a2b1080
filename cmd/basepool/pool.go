package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basepool/internal/contract"
	"basepool/internal/pricing"
	"basepool/internal/view"
	"basepool/internal/wallet"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.reader.Read(ctx)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), view.PoolDialog(nil, nil))
		return err
	}

	conquered, err := a.reader.ConqueredNumbers(ctx)
	if err != nil {
		a.logger.Warn("conquered numbers unavailable", zap.Error(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), view.PoolDialog(&status, conquered))
	return nil
}

func runNumbers(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var participant common.Address
	if len(args) == 1 {
		participant, err = contract.ParseAddress(args[0])
		if err != nil {
			return err
		}
	} else {
		w, err := wallet.New(wallet.Config{PrivateKey: a.cfg.PrivateKey}, nil, nil, a.logger)
		if err != nil {
			return err
		}
		account, ok := w.Account()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), view.WarningDialog())
			return fmt.Errorf("address argument or private key is required")
		}
		participant = account
	}

	numbers, err := a.reader.ParticipantNumbers(ctx, participant)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(numbers.Numbers) == 0 {
		fmt.Fprintf(out, "%s holds no numbers in the current pool\n", numbers.Address)
		return nil
	}
	fmt.Fprintf(out, "%s holds %d %s:", numbers.Address, len(numbers.Numbers), pricing.Plural(int64(len(numbers.Numbers)), "number"))
	for _, n := range numbers.Numbers {
		fmt.Fprintf(out, " #%d", n)
	}
	fmt.Fprintln(out)
	return nil
}

func runTiers(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(cmd.OutOrStdout(), view.TierMenu(a.tiers))
	return nil
}

func runRules(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	threshold := view.DefaultThresholdWei
	if status, err := a.reader.Read(ctx); err == nil && status.ThresholdWei != nil && status.ThresholdWei.Sign() > 0 {
		threshold = status.ThresholdWei
	}

	fmt.Fprintln(cmd.OutOrStdout(), view.RulesDialog(a.address, a.price.String(), pricing.FromWei(threshold).String()))
	return nil
}
