package view

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"basepool/internal/lifecycle"
	"basepool/internal/model"
	"basepool/internal/pricing"
)

func TestPoolDialog(t *testing.T) {
	status := &model.PoolStatus{
		PoolID:            2,
		TotalNumbers:      500,
		CurrentBalanceWei: big.NewInt(25e16),
		ThresholdWei:      big.NewInt(5e17),
	}
	out := PoolDialog(status, []uint64{17, 421})

	assert.Contains(t, out, "Pool Status")
	assert.Contains(t, out, "0.2500 ETH")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Target: 0.5 ETH")
	assert.Contains(t, out, "#17 #421")

	assert.Contains(t, PoolDialog(nil, nil), "Error loading pool status")
}

func TestPoolDialogZeroThresholdFallsBack(t *testing.T) {
	out := PoolDialog(&model.PoolStatus{CurrentBalanceWei: big.NewInt(0), ThresholdWei: big.NewInt(0)}, nil)
	assert.Contains(t, out, "Target: 0.5 ETH")
}

func TestTxDialog(t *testing.T) {
	tx := model.PendingTransaction{
		Hash:      common.HexToHash("0x01"),
		AmountETH: "0.0025",
		Numbers:   5,
		Status:    model.TxStatusConfirmed,
	}
	status := &model.PoolStatus{CurrentBalanceWei: big.NewInt(5e15), ThresholdWei: big.NewInt(5e17)}
	out := TxDialog(tx, []uint64{10, 11, 12, 13, 14}, status, nil)

	assert.Contains(t, out, "Transaction Successful")
	assert.Contains(t, out, "Sending 0.0025 ETH for 5 numbers")
	assert.Contains(t, out, "https://basescan.org/tx/"+tx.Hash.Hex())
	assert.Contains(t, out, "#10 #11 #12 #13 #14")
	assert.Contains(t, out, "1.0%")

	tx.Status = model.TxStatusFailedOnChain
	failed := TxDialog(tx, nil, nil, lifecycle.ErrTransactionReverted)
	assert.Contains(t, failed, "Transaction Failed")
	assert.Contains(t, failed, "Please try again")
	assert.NotContains(t, failed, "Your Assigned Numbers")
}

func TestTxDialogSingular(t *testing.T) {
	out := TxDialog(model.PendingTransaction{AmountETH: "0.0005", Numbers: 1, Status: model.TxStatusSubmitting}, nil, nil, nil)
	assert.Contains(t, out, "Sending 0.0005 ETH for 1 number")
	assert.Contains(t, out, "Initiating Transaction")
	assert.NotContains(t, out, "Transaction Hash")
}

func TestTierMenuAndRules(t *testing.T) {
	menu := TierMenu(pricing.DefaultTiers(pricing.DefaultTicketPrice))
	for _, want := range []string{"1 Number", "3 Numbers", "0.0015 ETH", "10 Numbers", "0.005 ETH"} {
		assert.Contains(t, menu, want)
	}

	rules := RulesDialog(common.HexToAddress("0x01"), "0.0005", "0.5")
	assert.Contains(t, rules, "Each 0.0005 ETH")
	assert.Contains(t, rules, "reaches 0.5 ETH")
	assert.Contains(t, WarningDialog(), "connect your wallet")
}

func TestProgressBar(t *testing.T) {
	bar := ProgressBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))
	assert.Equal(t, 10, strings.Count(ProgressBar(150, 10), "█"))
	assert.Equal(t, 10, strings.Count(ProgressBar(-1, 10), "░"))
}
