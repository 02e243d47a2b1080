// Package wallet is a local key wallet: it signs value transfers with a
// private key and talks to the chain through a switchable RPC endpoint.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"basepool/internal/chain"
)

// ErrSwitchRejected is returned when no endpoint serves the requested chain.
var ErrSwitchRejected = errors.New("chain switch rejected")

// Backend is the RPC surface the wallet needs. *chain.Client implements it.
type Backend interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Close()
}

// Dialer opens a Backend for an RPC URL.
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// DialChain is the default Dialer.
func DialChain(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Config configures a Wallet.
type Config struct {
	// PrivateKey is hex encoded; empty means no wallet is connected.
	PrivateKey string
	// Networks maps chain ids to RPC URLs usable by SwitchChain.
	Networks     map[uint64]string
	PollInterval time.Duration
}

// Wallet signs and submits transactions for a single account.
type Wallet struct {
	key          *ecdsa.PrivateKey
	account      common.Address
	networks     map[uint64]string
	dial         Dialer
	pollInterval time.Duration
	logger       *zap.Logger

	mu      sync.RWMutex
	backend Backend
}

// New builds a Wallet on top of an already connected backend.
func New(cfg Config, backend Backend, dial Dialer, logger *zap.Logger) (*Wallet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dial == nil {
		dial = DialChain
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	w := &Wallet{
		networks:     cfg.Networks,
		dial:         dial,
		pollInterval: cfg.PollInterval,
		logger:       logger,
		backend:      backend,
	}

	if keyHex := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"); keyHex != "" {
		key, err := crypto.HexToECDSA(keyHex)
		if err != nil {
			return nil, fmt.Errorf("load private key: %w", err)
		}
		w.key = key
		w.account = crypto.PubkeyToAddress(key.PublicKey)
	}

	return w, nil
}

// Account returns the connected account, if any.
func (w *Wallet) Account() (common.Address, bool) {
	if w == nil || w.key == nil {
		return common.Address{}, false
	}
	return w.account, true
}

// ChainID returns the chain id of the active endpoint.
func (w *Wallet) ChainID(ctx context.Context) (uint64, error) {
	backend, err := w.current()
	if err != nil {
		return 0, err
	}
	id, err := backend.GetChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", id)
	}
	return id.Uint64(), nil
}

// SwitchChain reconnects to the endpoint configured for chainID.
func (w *Wallet) SwitchChain(ctx context.Context, chainID uint64) error {
	url, ok := w.networks[chainID]
	if !ok || url == "" {
		return fmt.Errorf("%w: no endpoint for chain %d", ErrSwitchRejected, chainID)
	}

	backend, err := w.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: dial chain %d: %v", ErrSwitchRejected, chainID, err)
	}
	got, err := backend.GetChainID(ctx)
	if err != nil || !got.IsUint64() || got.Uint64() != chainID {
		backend.Close()
		return fmt.Errorf("%w: endpoint for chain %d reports %v", ErrSwitchRejected, chainID, got)
	}

	w.mu.Lock()
	old := w.backend
	w.backend = backend
	w.mu.Unlock()
	if old != nil {
		old.Close()
	}

	w.logger.Info("switched chain", zap.Uint64("chain_id", chainID), zap.String("rpc", url))
	return nil
}

// SendValue signs and broadcasts a bare value transfer to `to`.
func (w *Wallet) SendValue(ctx context.Context, to common.Address, value *big.Int) (common.Hash, error) {
	if w.key == nil {
		return common.Hash{}, fmt.Errorf("no wallet connected")
	}
	backend, err := w.current()
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := backend.GetChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get chain id: %w", err)
	}
	nonce, err := backend.PendingNonceAt(ctx, w.account)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: w.account, To: &to, Value: value})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	signer := types.LatestSignerForChainID(chainID)
	tx, err := types.SignNewTx(w.key, signer, &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	w.logger.Info("transaction sent",
		zap.String("hash", tx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Stringer("value_wei", value),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)
	return tx.Hash(), nil
}

// WaitReceipt polls until the transaction is mined or ctx is done. There is
// no timeout; cancelling ctx stops watching but leaves the transaction in
// the mempool.
func (w *Wallet) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		backend, err := w.current()
		if err != nil {
			return nil, err
		}
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			w.logger.Warn("receipt poll failed", zap.String("hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the active backend.
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		w.backend.Close()
		w.backend = nil
	}
}

func (w *Wallet) current() (Backend, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.backend == nil {
		return nil, fmt.Errorf("wallet backend is not connected")
	}
	return w.backend, nil
}
