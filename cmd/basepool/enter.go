package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basepool/internal/lifecycle"
	"basepool/internal/model"
	"basepool/internal/notify"
	"basepool/internal/pricing"
	"basepool/internal/storage"
	"basepool/internal/view"
	"basepool/internal/wallet"
)

func runEnter(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	w, err := a.newWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	account, ok := w.Account()
	if !ok {
		fmt.Fprintln(out, view.WarningDialog())
		return lifecycle.ErrWalletRequired
	}

	pending := storage.NewPendingStore(a.cfg.PendingFile)
	rec, ok, err := pending.Load()
	if err != nil {
		return err
	}
	if ok && rec.Transaction.HasHash() {
		fmt.Fprintln(out, view.TxDialog(rec.Transaction, nil, nil, nil))
		return fmt.Errorf("%w: %s has no receipt yet, run `basepool watch`", lifecycle.ErrBusy, rec.Transaction.Hash.Hex())
	}

	amount := ""
	if len(args) == 1 {
		amount = args[0]
	} else {
		tier, err := selectTier(a.tiers)
		if err != nil {
			return err
		}
		amount = tier.Amount.String()
	}

	history, closeHistory, err := a.historyStore(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	controller := lifecycle.NewController(lifecycle.Config{
		Contract:    a.address,
		ChainID:     a.cfg.ChainID,
		TicketPrice: a.price,
		OnTransition: func(tx model.PendingTransaction) {
			printProgress(out, tx)
		},
	}, lifecycle.Deps{
		Wallet:    w,
		Notifier:  a.newNotifier(),
		Refresher: a.reader,
		History:   history,
		Pending:   pending,
		Logger:    a.logger,
	})

	a.logger.Info("entry start",
		zap.String("account", account.Hex()),
		zap.String("amount_eth", amount),
		zap.String("contract", a.address.Hex()),
		zap.Uint64("chain_id", a.cfg.ChainID),
	)

	tx, err := controller.Enter(ctx, amount)
	if tx.Status == model.TxStatusIdle && err != nil {
		if errors.Is(err, lifecycle.ErrDetached) && !tx.HasHash() {
			fmt.Fprintln(out, "Entry cancelled before submission.")
		} else {
			fmt.Fprintln(out, lifecycle.UserMessage(err))
		}
		return err
	}

	var (
		numbers []uint64
		status  *model.PoolStatus
	)
	if tx.Status == model.TxStatusConfirmed {
		if held, ok := a.reader.LastParticipantNumbers(account); ok {
			numbers = held.Numbers
		}
		if last, ok := a.reader.Last(); ok {
			status = &last
		}
	}

	fmt.Fprintln(out, view.TxDialog(tx, numbers, status, err))
	if errors.Is(err, lifecycle.ErrDetached) && tx.HasHash() {
		fmt.Fprintf(out, "Resume with: basepool watch %s\n", tx.Hash.Hex())
	}
	if tx.Status == model.TxStatusConfirmed {
		printShare(out, tx, status)
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	pending := storage.NewPendingStore(a.cfg.PendingFile)

	tx, saved, err := watchTarget(args, pending)
	if err != nil {
		return err
	}
	tx.Status = model.TxStatusPending

	backend, err := wallet.DialChain(ctx, a.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	w, err := wallet.New(wallet.Config{PollInterval: pollInterval(a.cfg.ReceiptPoll)}, backend, nil, a.logger)
	if err != nil {
		backend.Close()
		return err
	}
	defer w.Close()

	fmt.Fprintln(out, view.TxDialog(tx, nil, nil, nil))
	a.logger.Info("watch start", zap.String("hash", tx.Hash.Hex()), zap.Bool("saved", saved))

	receipt, err := w.WaitReceipt(ctx, tx.Hash)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", lifecycle.ErrDetached, tx.Hash.Hex(), err)
		fmt.Fprintln(out, lifecycle.UserMessage(err))
		return err
	}

	var cause error
	if receipt.Status == types.ReceiptStatusSuccessful {
		tx.Status = model.TxStatusConfirmed
	} else {
		tx.Status = model.TxStatusFailedOnChain
		cause = fmt.Errorf("%w: %s", lifecycle.ErrTransactionReverted, tx.Hash.Hex())
	}

	if saved {
		if err := pending.Clear(); err != nil {
			a.logger.Warn("clear pending transaction failed", zap.Error(err))
		}
	}

	var (
		numbers []uint64
		status  *model.PoolStatus
	)
	if tx.Status == model.TxStatusConfirmed {
		if current, err := a.reader.Read(ctx); err == nil {
			status = &current
		}
		if common.IsHexAddress(tx.Submitter) {
			if held, err := a.reader.ParticipantNumbers(ctx, common.HexToAddress(tx.Submitter)); err == nil {
				numbers = held.Numbers
			}
		}
	}

	fmt.Fprintln(out, view.TxDialog(tx, numbers, status, cause))
	if tx.Status == model.TxStatusConfirmed && tx.AmountETH != "" {
		printShare(out, tx, status)
	}
	return cause
}

// watchTarget resolves the transaction to watch. saved reports whether it
// is the one recorded in the pending file.
func watchTarget(args []string, pending *storage.PendingStore) (model.PendingTransaction, bool, error) {
	rec, ok, err := pending.Load()
	if err != nil {
		return model.PendingTransaction{}, false, err
	}

	if len(args) == 0 {
		if !ok || !rec.Transaction.HasHash() {
			return model.PendingTransaction{}, false, fmt.Errorf("no pending transaction, pass a transaction hash")
		}
		return rec.Transaction, true, nil
	}

	hash, err := parseHash(args[0])
	if err != nil {
		return model.PendingTransaction{}, false, err
	}
	if ok && rec.Transaction.Hash == hash {
		return rec.Transaction, true, nil
	}
	return model.PendingTransaction{Hash: hash}, false, nil
}

func parseHash(input string) (common.Hash, error) {
	raw, err := hexutil.Decode(input)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash: %s", input)
	}
	return common.BytesToHash(raw), nil
}

func selectTier(tiers []pricing.Tier) (pricing.Tier, error) {
	if len(tiers) == 0 {
		return pricing.Tier{}, fmt.Errorf("no tiers configured")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .Label | cyan }} ({{ .ETH }})",
		Inactive: "  {{ .Label }} ({{ .ETH }})",
		Selected: "✔ {{ .Label | green }} for {{ .ETH }}",
	}

	prompt := promptui.Select{
		Label:     "Choose how many numbers to buy",
		Items:     tiers,
		Templates: templates,
		Size:      len(tiers),
	}

	index, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return pricing.Tier{}, fmt.Errorf("selection cancelled")
		}
		return pricing.Tier{}, fmt.Errorf("select tier: %w", err)
	}
	return tiers[index], nil
}

func printProgress(out io.Writer, tx model.PendingTransaction) {
	if !tx.Status.InFlight() {
		return
	}
	line := view.StatusText(tx.Status)
	if tx.HasHash() {
		line += "  " + notify.TxURL(tx.Hash)
	}
	fmt.Fprintln(out, line)
}

func printShare(out io.Writer, tx model.PendingTransaction, status *model.PoolStatus) {
	balance, progress := "0", 0.0
	if status != nil {
		balance = pricing.FromWei(status.CurrentBalanceWei).StringFixed(4)
		progress = pricing.Progress(status.CurrentBalanceWei, status.ThresholdWei)
	}
	text := notify.ShareText(tx.AmountETH, tx.Numbers, balance, progress)
	fmt.Fprintf(out, "\nShare on Warpcast:\n%s\n", notify.ShareURL(text))
}
