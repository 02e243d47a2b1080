// Package lifecycle drives one lottery payment from user intent to a
// terminal state.
//
// A submission moves Idle -> ChainCheck -> Submitting -> Pending and ends in
// Confirmed, FailedLocal or FailedOnChain. Only one submission is tracked at a
// time. Dismiss returns to Idle from any state; it detaches the local receipt
// watcher but can never cancel a transaction that was already broadcast.
package lifecycle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"basepool/internal/model"
	"basepool/internal/notify"
	"basepool/internal/pricing"
	"basepool/internal/storage"
)

// Wallet is the signing and chain surface of the connected wallet.
type Wallet interface {
	Account() (common.Address, bool)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SendValue(ctx context.Context, to common.Address, value *big.Int) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Refresher re-reads contract state after a confirmed entry.
type Refresher interface {
	RefreshPoolStatus(ctx context.Context) error
	RefreshParticipantNumbers(ctx context.Context, participant common.Address) error
}

// PendingTracker persists the broadcast transaction until it resolves.
type PendingTracker interface {
	Save(tx model.PendingTransaction) error
	Clear() error
}

// Config holds the controller settings.
type Config struct {
	Contract    common.Address
	ChainID     uint64
	TicketPrice decimal.Decimal
	// OnTransition is called after every state change with no lock held.
	OnTransition func(model.PendingTransaction)
}

// Deps are the capabilities injected into the controller. Only Wallet is
// required for submissions; nil optional deps are skipped.
type Deps struct {
	Wallet    Wallet
	Notifier  notify.Sender
	Refresher Refresher
	History   storage.History
	Pending   PendingTracker
	Logger    *zap.Logger
}

type attempt struct {
	id        string
	account   common.Address
	amountETH string
	numbers   int64
	startedAt time.Time
	cancel    context.CancelFunc
	effects   sync.Once
}

// Controller owns the single tracked PendingTransaction.
type Controller struct {
	cfg  Config
	deps Deps

	mu  sync.Mutex
	tx  model.PendingTransaction
	cur *attempt
}

func NewController(cfg Config, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.TicketPrice.IsZero() {
		cfg.TicketPrice = pricing.DefaultTicketPrice
	}
	return &Controller{
		cfg:  cfg,
		deps: deps,
		tx:   model.PendingTransaction{Status: model.TxStatusIdle},
	}
}

// Snapshot returns a copy of the tracked transaction.
func (c *Controller) Snapshot() model.PendingTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx
}

// State returns the current lifecycle state.
func (c *Controller) State() model.TxStatus {
	return c.Snapshot().Status
}

// Enter pays amountETH into the pool and blocks until the transaction reaches
// a terminal state, ctx is done, or the attempt is dismissed. Run it on its
// own goroutine and observe progress through Config.OnTransition.
func (c *Controller) Enter(ctx context.Context, amountETH string) (model.PendingTransaction, error) {
	if c.deps.Wallet == nil {
		return c.Snapshot(), ErrWalletRequired
	}
	account, ok := c.deps.Wallet.Account()
	if !ok {
		c.deps.Logger.Info("entry attempted without wallet")
		return c.Snapshot(), ErrWalletRequired
	}

	amount, err := pricing.ParseAmount(amountETH)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	numbers, err := pricing.TicketsFor(amount, c.cfg.TicketPrice)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if numbers == 0 {
		return c.Snapshot(), fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	value, err := pricing.ToWei(amount)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	att, ctx, err := c.begin(ctx, account, amount.String(), numbers)
	if err != nil {
		return c.Snapshot(), err
	}
	defer att.cancel()

	if err := c.checkChain(ctx); err != nil {
		c.abort(att, err)
		return c.Snapshot(), err
	}

	if _, ok := c.update(att, func(tx *model.PendingTransaction) {
		tx.Status = model.TxStatusSubmitting
	}); !ok {
		return c.Snapshot(), ErrDetached
	}

	hash, err := c.deps.Wallet.SendValue(ctx, c.cfg.Contract, value)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
		c.finish(ctx, att, model.TxStatusFailedLocal, err, nil)
		return c.Snapshot(), err
	}

	// Persist the hash even if the attempt was dismissed during the send.
	if c.deps.Pending != nil {
		err := c.deps.Pending.Save(model.PendingTransaction{
			Hash:      hash,
			AmountETH: att.amountETH,
			Numbers:   att.numbers,
			Submitter: att.account.Hex(),
			Status:    model.TxStatusPending,
		})
		if err != nil {
			c.deps.Logger.Warn("save pending transaction failed", zap.Error(err))
		}
	}

	if _, ok := c.update(att, func(tx *model.PendingTransaction) {
		tx.Hash = hash
		tx.Status = model.TxStatusPending
	}); !ok {
		c.deps.Logger.Warn("attempt dismissed after broadcast", zap.String("hash", hash.Hex()))
		return c.Snapshot(), fmt.Errorf("%w: %s", ErrDetached, hash.Hex())
	}

	return c.watch(ctx, att, hash)
}

// Dismiss returns the controller to Idle and clears the tracked transaction.
// It is idempotent.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	att := c.cur
	prev := c.tx
	c.cur = nil
	c.tx = model.PendingTransaction{Status: model.TxStatusIdle}
	idle := c.tx
	c.mu.Unlock()

	if att == nil && prev.Status == model.TxStatusIdle {
		return
	}
	if att != nil {
		att.cancel()
	}
	c.deps.Logger.Info("transaction dismissed",
		zap.String("previous_status", string(prev.Status)),
		zap.String("hash", hashString(prev)),
	)
	c.emit(idle)
}

// ConfirmedEffects refreshes pool status and participant numbers and posts the
// participation notification. It runs at most once per confirmed attempt and
// is a no-op in any other state.
func (c *Controller) ConfirmedEffects(ctx context.Context) {
	c.mu.Lock()
	att := c.cur
	tx := c.tx
	c.mu.Unlock()

	if att == nil || tx.Status != model.TxStatusConfirmed {
		return
	}

	att.effects.Do(func() {
		if c.deps.Refresher != nil {
			if err := c.deps.Refresher.RefreshPoolStatus(ctx); err != nil {
				c.deps.Logger.Warn("pool status refresh failed", zap.Error(err))
			}
			if err := c.deps.Refresher.RefreshParticipantNumbers(ctx, att.account); err != nil {
				c.deps.Logger.Warn("participant numbers refresh failed", zap.Error(err))
			}
		}

		if c.deps.Notifier != nil {
			msg := notify.Participation(tx.AmountETH, tx.Numbers)
			if err := c.deps.Notifier.Notify(ctx, msg); err != nil {
				c.deps.Logger.Warn("notification dispatch failed",
					zap.Error(fmt.Errorf("%w: %v", ErrNotificationFailed, err)),
					zap.String("hash", tx.Hash.Hex()),
				)
			}
		}
	})
}

func (c *Controller) begin(ctx context.Context, account common.Address, amountETH string, numbers int64) (*attempt, context.Context, error) {
	c.mu.Lock()
	if c.tx.Status.InFlight() {
		status := c.tx.Status
		c.mu.Unlock()
		c.deps.Logger.Info("entry rejected while in flight", zap.String("status", string(status)))
		return nil, ctx, ErrBusy
	}

	watchCtx, cancel := context.WithCancel(ctx)
	att := &attempt{
		id:        uuid.NewString(),
		account:   account,
		amountETH: amountETH,
		numbers:   numbers,
		startedAt: time.Now().UTC(),
		cancel:    cancel,
	}
	c.cur = att
	c.tx = model.PendingTransaction{
		AmountETH: amountETH,
		Numbers:   numbers,
		Submitter: account.Hex(),
		Status:    model.TxStatusChainCheck,
	}
	snapshot := c.tx
	c.mu.Unlock()

	c.emit(snapshot)
	return att, watchCtx, nil
}

func (c *Controller) checkChain(ctx context.Context) error {
	current, err := c.deps.Wallet.ChainID(ctx)
	if err != nil {
		return chainError(ctx, err)
	}
	if current == c.cfg.ChainID {
		return nil
	}

	c.deps.Logger.Info("requesting chain switch", zap.Uint64("from", current), zap.Uint64("to", c.cfg.ChainID))
	if err := c.deps.Wallet.SwitchChain(ctx, c.cfg.ChainID); err != nil {
		return chainError(ctx, err)
	}

	current, err = c.deps.Wallet.ChainID(ctx)
	if err != nil {
		return chainError(ctx, err)
	}
	if current != c.cfg.ChainID {
		return fmt.Errorf("%w: wallet on chain %d after switch, want %d", ErrNetworkMismatch, current, c.cfg.ChainID)
	}
	return nil
}

// chainError reports a cancelled or dismissed chain check as ErrDetached
// rather than a network mismatch.
func chainError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ErrDetached, ctxErr)
	}
	return fmt.Errorf("%w: %v", ErrNetworkMismatch, err)
}

func (c *Controller) watch(ctx context.Context, att *attempt, hash common.Hash) (model.PendingTransaction, error) {
	receipt, err := c.deps.Wallet.WaitReceipt(ctx, hash)
	if err != nil {
		c.deps.Logger.Info("receipt watch detached", zap.String("hash", hash.Hex()), zap.Error(err))
		return c.Snapshot(), fmt.Errorf("%w: %s: %v", ErrDetached, hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		err := fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
		c.finish(ctx, att, model.TxStatusFailedOnChain, err, receipt)
		return c.Snapshot(), err
	}

	if !c.finish(ctx, att, model.TxStatusConfirmed, nil, receipt) {
		return c.Snapshot(), ErrDetached
	}
	c.ConfirmedEffects(ctx)
	return c.Snapshot(), nil
}

// update mutates the tracked transaction if att is still the current attempt.
func (c *Controller) update(att *attempt, mutate func(tx *model.PendingTransaction)) (model.PendingTransaction, bool) {
	c.mu.Lock()
	if c.cur != att {
		c.mu.Unlock()
		return model.PendingTransaction{}, false
	}
	mutate(&c.tx)
	snapshot := c.tx
	c.mu.Unlock()

	c.emit(snapshot)
	return snapshot, true
}

// abort drops an attempt that never reached Submitting.
func (c *Controller) abort(att *attempt, cause error) {
	c.mu.Lock()
	if c.cur != att {
		c.mu.Unlock()
		return
	}
	c.cur = nil
	c.tx = model.PendingTransaction{Status: model.TxStatusIdle}
	snapshot := c.tx
	c.mu.Unlock()

	c.deps.Logger.Warn("entry aborted", zap.String("attempt", att.id), zap.Error(cause))
	c.emit(snapshot)
}

func (c *Controller) finish(ctx context.Context, att *attempt, status model.TxStatus, cause error, receipt *types.Receipt) bool {
	snapshot, ok := c.update(att, func(tx *model.PendingTransaction) {
		tx.Status = status
	})
	if !ok {
		return false
	}

	if snapshot.HasHash() && c.deps.Pending != nil {
		if err := c.deps.Pending.Clear(); err != nil {
			c.deps.Logger.Warn("clear pending transaction failed", zap.Error(err))
		}
	}

	if c.deps.History != nil {
		record := model.TxAttempt{
			ID:         att.id,
			ChainID:    c.cfg.ChainID,
			Contract:   c.cfg.Contract.Hex(),
			Submitter:  snapshot.Submitter,
			AmountETH:  snapshot.AmountETH,
			Numbers:    snapshot.Numbers,
			Status:     string(status),
			StartedAt:  att.startedAt.Format(time.RFC3339Nano),
			FinishedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if snapshot.HasHash() {
			record.TxHash = snapshot.Hash.Hex()
		}
		if cause != nil {
			record.Error = cause.Error()
		}
		if receipt != nil && receipt.BlockNumber != nil {
			record.BlockNumber = receipt.BlockNumber.Uint64()
		}
		if err := c.deps.History.PutAttempt(ctx, record); err != nil {
			c.deps.Logger.Warn("record attempt failed", zap.String("attempt", att.id), zap.Error(err))
		}
	}

	if cause != nil {
		c.deps.Logger.Warn("transaction failed", zap.String("attempt", att.id), zap.String("status", string(status)), zap.Error(cause))
	}
	return true
}

func (c *Controller) emit(tx model.PendingTransaction) {
	c.deps.Logger.Info("transaction state",
		zap.String("status", string(tx.Status)),
		zap.String("hash", hashString(tx)),
		zap.String("amount_eth", tx.AmountETH),
		zap.Int64("numbers", tx.Numbers),
	)
	if c.cfg.OnTransition != nil {
		c.cfg.OnTransition(tx)
	}
}

func hashString(tx model.PendingTransaction) string {
	if !tx.HasHash() {
		return ""
	}
	return tx.Hash.Hex()
}
