// Package view renders the pool, transaction, warning and rules dialogs for
// the terminal. Renderers are pure functions of their inputs.
package view

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"basepool/internal/lifecycle"
	"basepool/internal/model"
	"basepool/internal/notify"
	"basepool/internal/pricing"
)

const progressWidth = 30

var (
	baseBlue = lipgloss.Color("#0052FF")

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(baseBlue).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(baseBlue)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// DefaultThresholdWei is shown when the pool status cannot be read.
var DefaultThresholdWei = big.NewInt(5e17)

// PoolDialog renders the pool status dialog. A nil status renders the
// unavailable state.
func PoolDialog(status *model.PoolStatus, conquered []uint64) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pool Status"))
	b.WriteString("\n\n")

	if status == nil {
		b.WriteString(errStyle.Render("Error loading pool status"))
		return dialogStyle.Render(b.String())
	}

	b.WriteString(progressBlock(status.CurrentBalanceWei, status.ThresholdWei))
	b.WriteString("\n\n")
	b.WriteString(row("Pool ID", fmt.Sprintf("%d", status.PoolID)))
	b.WriteString("\n")
	b.WriteString(row("Total Numbers", fmt.Sprintf("%d", status.TotalNumbers)))

	if len(conquered) > 0 {
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Previous Conquered Numbers"))
		b.WriteString("\n")
		b.WriteString(numberList(conquered))
	}
	return dialogStyle.Render(b.String())
}

// TxDialog renders the transaction status dialog.
func TxDialog(tx model.PendingTransaction, numbers []uint64, status *model.PoolStatus, err error) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Transaction Status"))
	b.WriteString("\n\n")
	b.WriteString(statusLine(tx.Status))

	if tx.AmountETH != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Sending %s ETH for %d %s",
			tx.AmountETH, tx.Numbers, pricing.Plural(tx.Numbers, "number"))))
	}

	if tx.HasHash() {
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Transaction Hash"))
		b.WriteString("\n")
		b.WriteString(tx.Hash.Hex())
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(notify.TxURL(tx.Hash)))
	}

	if tx.Status == model.TxStatusConfirmed {
		if len(numbers) > 0 {
			b.WriteString("\n\n")
			b.WriteString(mutedStyle.Render("Your Assigned Numbers"))
			b.WriteString("\n")
			b.WriteString(numberList(numbers))
		}
		if status != nil {
			b.WriteString("\n\n")
			b.WriteString(mutedStyle.Render("Pool Progress"))
			b.WriteString("\n")
			b.WriteString(progressBlock(status.CurrentBalanceWei, status.ThresholdWei))
		}
	}

	if tx.Status.Failed() || err != nil {
		msg := lifecycle.UserMessage(err)
		if msg == "" {
			msg = lifecycle.UserMessage(lifecycle.ErrSubmissionRejected)
		}
		b.WriteString("\n\n")
		b.WriteString(errStyle.Render(msg))
	}
	return dialogStyle.Render(b.String())
}

// StatusText is the label shown for a lifecycle state.
func StatusText(status model.TxStatus) string {
	switch status {
	case model.TxStatusConfirmed:
		return "✅ Transaction Successful"
	case model.TxStatusFailedLocal, model.TxStatusFailedOnChain:
		return "❌ Transaction Failed"
	case model.TxStatusPending:
		return "⏳ Transaction Pending"
	case model.TxStatusChainCheck:
		return "🔄 Checking Network"
	default:
		return "🔄 Initiating Transaction"
	}
}

// WarningDialog asks the user to connect a wallet.
func WarningDialog() string {
	body := titleStyle.Render("Wallet Required") + "\n\n" + lifecycle.UserMessage(lifecycle.ErrWalletRequired)
	return dialogStyle.Render(body)
}

// TierMenu lists the purchasable tiers.
func TierMenu(tiers []pricing.Tier) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BasePool"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("A provable fair Pool on Base"))
	b.WriteString("\n")
	for _, tier := range tiers {
		b.WriteString("\n")
		b.WriteString(row(tier.Label(), tier.ETH()))
	}
	return dialogStyle.Render(b.String())
}

// RulesDialog renders the static rules text.
func RulesDialog(contract common.Address, price string, thresholdETH string) string {
	lines := []string{
		titleStyle.Render("How BasePool works"),
		"",
		"BasePool is a provably fair onchain lottery on Base. A single smart",
		"contract collects ETH and pays the whole pool to one random number.",
		"",
		fmt.Sprintf("• Each %s ETH sent to the contract buys one number between 0 and 999.", price),
		fmt.Sprintf("• The contract only accepts multiples of %s ETH.", price),
		"• Numbers are assigned sequentially as they are claimed.",
		fmt.Sprintf("• When the balance reaches %s ETH the next transaction triggers a draw using Pyth Network.", thresholdETH),
		"• The wallet holding the drawn number receives the contract balance.",
		"• A new round then starts with the same rules and pricing.",
		"• One wallet can hold multiple entries. No refunds or partial draws.",
		"",
		mutedStyle.Render("Contract: " + notify.AddressURL(contract)),
	}
	return dialogStyle.Render(strings.Join(lines, "\n"))
}

func statusLine(status model.TxStatus) string {
	text := StatusText(status)
	switch {
	case status == model.TxStatusConfirmed:
		return okStyle.Render(text)
	case status.Failed():
		return errStyle.Render(text)
	default:
		return titleStyle.Render(text)
	}
}

func progressBlock(balanceWei, thresholdWei *big.Int) string {
	if thresholdWei == nil || thresholdWei.Sign() == 0 {
		thresholdWei = DefaultThresholdWei
	}
	pct := pricing.Progress(balanceWei, thresholdWei)
	balance := pricing.FromWei(balanceWei).StringFixed(4)
	target := pricing.FromWei(thresholdWei).String()

	return row("Current Balance", balance+" ETH") + "\n" +
		ProgressBar(pct, progressWidth) + fmt.Sprintf(" %.1f%%", pct) + "\n" +
		mutedStyle.Render("Target: "+target+" ETH")
}

// ProgressBar draws pct (clamped to 0..100) as a bar of width cells.
func ProgressBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return lipgloss.NewStyle().Foreground(baseBlue).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}

func row(label, value string) string {
	return fmt.Sprintf("%-16s %s", label, value)
}

func numberList(numbers []uint64) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, fmt.Sprintf("#%d", n))
	}
	return strings.Join(parts, " ")
}
