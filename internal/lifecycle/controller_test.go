package lifecycle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basepool/internal/model"
	"basepool/internal/notify"
	"basepool/internal/pricing"
)

var (
	testContract = common.HexToAddress("0xF9f40e4a0d85A5F6aE758E4C40623A62EFC943f3")
	testAccount  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testHash     = common.HexToHash("0xabcdef")
)

type fakeWallet struct {
	connected bool
	chainID   uint64
	switchErr error
	sendErr   error
	receipt   *types.Receipt
	// block makes WaitReceipt wait for release or ctx.
	block   chan struct{}
	waiting chan struct{}
	// sendBlock makes SendValue wait for release; sending is closed first.
	sendBlock chan struct{}
	sending   chan struct{}

	mu       sync.Mutex
	switches []uint64
	sends    []*big.Int
}

func (f *fakeWallet) Account() (common.Address, bool) {
	return testAccount, f.connected
}

func (f *fakeWallet) ChainID(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *fakeWallet) SwitchChain(ctx context.Context, chainID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches = append(f.switches, chainID)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = chainID
	return nil
}

func (f *fakeWallet) SendValue(_ context.Context, to common.Address, value *big.Int) (common.Hash, error) {
	if f.sendBlock != nil {
		close(f.sending)
		<-f.sendBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if to != testContract {
		return common.Hash{}, errors.New("unexpected recipient")
	}
	f.sends = append(f.sends, value)
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	return testHash, nil
}

func (f *fakeWallet) WaitReceipt(ctx context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.block != nil {
		if f.waiting != nil {
			close(f.waiting)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.block:
		}
	}
	return f.receipt, nil
}

type fakeRefresher struct {
	mu           sync.Mutex
	pool         int
	participants []common.Address
	err          error
}

func (f *fakeRefresher) RefreshPoolStatus(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pool++
	return f.err
}

func (f *fakeRefresher) RefreshParticipantNumbers(_ context.Context, participant common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participants = append(f.participants, participant)
	return f.err
}

type fakeNotifier struct {
	got []notify.Message
	err error
}

func (f *fakeNotifier) Notify(_ context.Context, msg notify.Message) error {
	f.got = append(f.got, msg)
	return f.err
}

type fakeHistory struct {
	attempts []model.TxAttempt
}

func (f *fakeHistory) PutAttempt(_ context.Context, attempt model.TxAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

type fakePending struct {
	saved   []model.PendingTransaction
	cleared int
}

func (f *fakePending) Save(tx model.PendingTransaction) error {
	f.saved = append(f.saved, tx)
	return nil
}

func (f *fakePending) Clear() error {
	f.cleared++
	return nil
}

type harness struct {
	ctrl      *Controller
	wallet    *fakeWallet
	refresher *fakeRefresher
	notifier  *fakeNotifier
	history   *fakeHistory
	pending   *fakePending

	mu          sync.Mutex
	transitions []model.TxStatus
}

func newHarness(wallet *fakeWallet) *harness {
	h := &harness{
		wallet:    wallet,
		refresher: &fakeRefresher{},
		notifier:  &fakeNotifier{},
		history:   &fakeHistory{},
		pending:   &fakePending{},
	}
	h.ctrl = NewController(Config{
		Contract:    testContract,
		ChainID:     8453,
		TicketPrice: pricing.DefaultTicketPrice,
		OnTransition: func(tx model.PendingTransaction) {
			h.mu.Lock()
			h.transitions = append(h.transitions, tx.Status)
			h.mu.Unlock()
		},
	}, Deps{
		Wallet:    wallet,
		Notifier:  h.notifier,
		Refresher: h.refresher,
		History:   h.history,
		Pending:   h.pending,
	})
	return h
}

func (h *harness) states() []model.TxStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.TxStatus(nil), h.transitions...)
}

func successReceipt() *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)}
}

func TestEnterConfirmed(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, receipt: successReceipt()})

	tx, err := h.ctrl.Enter(context.Background(), "0.005")
	require.NoError(t, err)

	assert.Equal(t, model.TxStatusConfirmed, tx.Status)
	assert.Equal(t, testHash, tx.Hash)
	assert.Equal(t, int64(10), tx.Numbers)
	assert.Equal(t, "0.005", tx.AmountETH)
	assert.Equal(t, testAccount.Hex(), tx.Submitter)
	assert.Equal(t, []model.TxStatus{
		model.TxStatusChainCheck,
		model.TxStatusSubmitting,
		model.TxStatusPending,
		model.TxStatusConfirmed,
	}, h.states())

	require.Len(t, h.wallet.sends, 1)
	assert.Equal(t, "5000000000000000", h.wallet.sends[0].String())

	require.Len(t, h.history.attempts, 1)
	assert.Equal(t, "confirmed", h.history.attempts[0].Status)
	assert.Equal(t, uint64(100), h.history.attempts[0].BlockNumber)
	assert.Len(t, h.pending.saved, 1)
	assert.Equal(t, 1, h.pending.cleared)

	require.Len(t, h.notifier.got, 1)
	assert.Equal(t, "BasePool Participation", h.notifier.got[0].Title)
}

func TestConfirmedEffectsRunOnce(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, receipt: successReceipt()})

	_, err := h.ctrl.Enter(context.Background(), "0.0005")
	require.NoError(t, err)

	h.ctrl.ConfirmedEffects(context.Background())
	h.ctrl.ConfirmedEffects(context.Background())

	assert.Equal(t, 1, h.refresher.pool)
	assert.Equal(t, []common.Address{testAccount}, h.refresher.participants)
	assert.Len(t, h.notifier.got, 1)
}

func TestNotificationFailureKeepsConfirmed(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, receipt: successReceipt()})
	h.notifier.err = errors.New("frame notifications disabled")
	h.refresher.err = errors.New("read unavailable")

	tx, err := h.ctrl.Enter(context.Background(), "0.0025")
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusConfirmed, tx.Status)
	assert.Equal(t, model.TxStatusConfirmed, h.ctrl.State())
}

func TestWalletRequired(t *testing.T) {
	h := newHarness(&fakeWallet{connected: false, chainID: 8453})

	_, err := h.ctrl.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrWalletRequired))
	assert.Empty(t, h.wallet.sends)
	assert.Empty(t, h.wallet.switches)
	assert.Empty(t, h.states())
	assert.Equal(t, model.TxStatusIdle, h.ctrl.State())

	noWallet := NewController(Config{Contract: testContract, ChainID: 8453}, Deps{})
	_, err = noWallet.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrWalletRequired))
}

func TestNetworkMismatchSwitchRejected(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 1, switchErr: errors.New("user rejected")})

	tx, err := h.ctrl.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrNetworkMismatch))
	assert.Equal(t, []uint64{8453}, h.wallet.switches)
	assert.Empty(t, h.wallet.sends)
	assert.Equal(t, model.TxStatusIdle, tx.Status)
	assert.Equal(t, []model.TxStatus{model.TxStatusChainCheck, model.TxStatusIdle}, h.states())
	assert.Empty(t, h.history.attempts)
}

func TestNetworkSwitchThenSubmit(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 1, receipt: successReceipt()})

	tx, err := h.ctrl.Enter(context.Background(), "0.0015")
	require.NoError(t, err)
	assert.Equal(t, []uint64{8453}, h.wallet.switches)
	assert.Equal(t, model.TxStatusConfirmed, tx.Status)
	assert.Equal(t, int64(3), tx.Numbers)
}

func TestSubmissionRejected(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, sendErr: errors.New("insufficient funds")})

	tx, err := h.ctrl.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrSubmissionRejected))
	assert.Equal(t, model.TxStatusFailedLocal, tx.Status)
	assert.False(t, tx.HasHash())
	assert.Empty(t, h.pending.saved)
	assert.Zero(t, h.pending.cleared)

	require.Len(t, h.history.attempts, 1)
	assert.Equal(t, "failed_local", h.history.attempts[0].Status)
	assert.Empty(t, h.history.attempts[0].TxHash)
	assert.Empty(t, h.notifier.got)
}

func TestTransactionReverted(t *testing.T) {
	h := newHarness(&fakeWallet{
		connected: true,
		chainID:   8453,
		receipt:   &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(7)},
	})

	tx, err := h.ctrl.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrTransactionReverted))
	assert.Equal(t, model.TxStatusFailedOnChain, tx.Status)
	assert.Equal(t, testHash, tx.Hash)
	assert.Zero(t, h.refresher.pool)
	assert.Empty(t, h.notifier.got)

	h.wallet.receipt = successReceipt()
	tx, err = h.ctrl.Enter(context.Background(), "0.0005")
	require.NoError(t, err, "user may retry after a failure")
	assert.Equal(t, model.TxStatusConfirmed, tx.Status)
}

func TestInvalidAmounts(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, receipt: successReceipt()})

	for _, amount := range []string{"0", "0.00015", "abc", "-0.0005"} {
		_, err := h.ctrl.Enter(context.Background(), amount)
		assert.True(t, errors.Is(err, ErrInvalidAmount), amount)
	}
	assert.Empty(t, h.wallet.sends)
	assert.Equal(t, model.TxStatusIdle, h.ctrl.State())
}

func TestBusyWhilePendingAndDismiss(t *testing.T) {
	wallet := &fakeWallet{
		connected: true,
		chainID:   8453,
		receipt:   successReceipt(),
		block:     make(chan struct{}),
		waiting:   make(chan struct{}),
	}
	h := newHarness(wallet)

	type result struct {
		tx  model.PendingTransaction
		err error
	}
	done := make(chan result, 1)
	go func() {
		tx, err := h.ctrl.Enter(context.Background(), "0.0005")
		done <- result{tx, err}
	}()

	select {
	case <-wallet.waiting:
	case <-time.After(2 * time.Second):
		t.Fatal("receipt watch did not start")
	}
	assert.Equal(t, model.TxStatusPending, h.ctrl.State())

	_, err := h.ctrl.Enter(context.Background(), "0.0005")
	assert.True(t, errors.Is(err, ErrBusy))
	assert.Len(t, wallet.sends, 1)

	h.ctrl.Dismiss()
	snapshot := h.ctrl.Snapshot()
	assert.Equal(t, model.TxStatusIdle, snapshot.Status)
	assert.False(t, snapshot.HasHash())
	assert.Empty(t, snapshot.AmountETH)

	select {
	case res := <-done:
		assert.True(t, errors.Is(res.err, ErrDetached))
		assert.Equal(t, model.TxStatusIdle, res.tx.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher was not detached by dismiss")
	}

	h.ctrl.Dismiss()
	assert.Equal(t, snapshot, h.ctrl.Snapshot())
	assert.Empty(t, h.history.attempts)
	assert.Zero(t, h.pending.cleared, "broadcast transaction stays resumable after dismiss")
}

func TestDismissDuringSendKeepsBroadcastResumable(t *testing.T) {
	wallet := &fakeWallet{
		connected: true,
		chainID:   8453,
		receipt:   successReceipt(),
		sendBlock: make(chan struct{}),
		sending:   make(chan struct{}),
	}
	h := newHarness(wallet)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Enter(context.Background(), "0.0015")
		done <- err
	}()

	select {
	case <-wallet.sending:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not start")
	}
	h.ctrl.Dismiss()
	close(wallet.sendBlock)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrDetached))
	case <-time.After(2 * time.Second):
		t.Fatal("enter did not return after dismiss")
	}

	require.Len(t, h.pending.saved, 1)
	saved := h.pending.saved[0]
	assert.Equal(t, testHash, saved.Hash)
	assert.Equal(t, "0.0015", saved.AmountETH)
	assert.Equal(t, int64(3), saved.Numbers)
	assert.Equal(t, testAccount.Hex(), saved.Submitter)
	assert.Equal(t, model.TxStatusPending, saved.Status)
	assert.Zero(t, h.pending.cleared)
	assert.Equal(t, model.TxStatusIdle, h.ctrl.State())
}

func TestCancelDuringChainCheckIsNotMismatch(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 1, receipt: successReceipt()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx, err := h.ctrl.Enter(ctx, "0.0005")
	assert.True(t, errors.Is(err, ErrDetached))
	assert.False(t, errors.Is(err, ErrNetworkMismatch))
	assert.Equal(t, model.TxStatusIdle, tx.Status)
	assert.Empty(t, h.wallet.sends)
	assert.Empty(t, h.history.attempts)
}

func TestDismissAfterTerminalIsIdempotent(t *testing.T) {
	h := newHarness(&fakeWallet{connected: true, chainID: 8453, receipt: successReceipt()})
	_, err := h.ctrl.Enter(context.Background(), "0.0005")
	require.NoError(t, err)

	h.ctrl.Dismiss()
	first := h.ctrl.Snapshot()
	h.ctrl.Dismiss()
	assert.Equal(t, first, h.ctrl.Snapshot())
	assert.Equal(t, model.PendingTransaction{Status: model.TxStatusIdle}, first)

	h.ctrl.ConfirmedEffects(context.Background())
	assert.Equal(t, 1, h.refresher.pool)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Contains(t, UserMessage(ErrWalletRequired), "connect your wallet")
	assert.Contains(t, UserMessage(ErrTransactionReverted), "Please try again")
	assert.Contains(t, UserMessage(ErrSubmissionRejected), "Please try again")
}
