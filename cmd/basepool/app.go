package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basepool/internal/chain"
	"basepool/internal/config"
	"basepool/internal/contract"
	"basepool/internal/notify"
	"basepool/internal/pool"
	"basepool/internal/pricing"
	"basepool/internal/storage"
	"basepool/internal/storage/postgres"
	"basepool/internal/wallet"
)

// app holds what every command needs: config, logger and the read path to
// the contract.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	address  common.Address
	price    decimal.Decimal
	tiers    []pricing.Tier
	client   *chain.Client
	contract *contract.Contract
	reader   *pool.Reader
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	address, err := contract.ParseAddress(cfg.Contract)
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}

	price, err := pricing.ParseAmount(cfg.TicketPrice)
	if err != nil {
		return nil, fmt.Errorf("ticket price: %w", err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("ticket price must be positive")
	}

	tiers := pricing.DefaultTiers(price)
	if len(cfg.Tiers) > 0 {
		tiers, err = pricing.ParseTiers(cfg.Tiers, price)
		if err != nil {
			return nil, err
		}
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	c := contract.New(address, client)
	return &app{
		cfg:      cfg,
		logger:   logger,
		address:  address,
		price:    price,
		tiers:    tiers,
		client:   client,
		contract: c,
		reader:   pool.NewReader(c, logger),
	}, nil
}

func (a *app) Close() {
	a.client.Close()
	_ = a.logger.Sync()
}

// newWallet dials a dedicated endpoint for signing so chain switches never
// disturb the read client.
func (a *app) newWallet(ctx context.Context) (*wallet.Wallet, error) {
	networks, err := config.ParseNetworks(a.cfg.Networks)
	if err != nil {
		return nil, err
	}
	if _, ok := networks[a.cfg.ChainID]; !ok {
		networks[a.cfg.ChainID] = a.cfg.RPCURL
	}

	backend, err := wallet.DialChain(ctx, a.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect wallet rpc: %w", err)
	}

	w, err := wallet.New(wallet.Config{
		PrivateKey:   a.cfg.PrivateKey,
		Networks:     networks,
		PollInterval: pollInterval(a.cfg.ReceiptPoll),
	}, backend, wallet.DialChain, a.logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return w, nil
}

func (a *app) newNotifier() notify.Sender {
	senders := notify.Multi{notify.NewLogSender(a.logger)}
	if a.cfg.ResendAPIKey != "" && len(a.cfg.NotifyEmailTo) > 0 {
		senders = append(senders, notify.Retry{
			Sender:     notify.NewResendSender(a.cfg.ResendAPIKey, a.cfg.NotifyEmailFrom, a.cfg.NotifyEmailTo, a.logger),
			MaxRetries: a.cfg.NotifyRetries,
			BaseDelay:  a.cfg.NotifyBackoff,
		})
	}
	return senders
}

// historyStore picks Postgres when a DSN is configured, otherwise the JSONL
// file. The returned close func is never nil.
func (a *app) historyStore(ctx context.Context) (storage.History, func(), error) {
	if a.cfg.PGDSN != "" {
		store, err := a.postgresStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	if a.cfg.HistoryOut == "" {
		return nil, func() {}, nil
	}
	return storage.NewJsonlStorage(a.cfg.HistoryOut), func() {}, nil
}

func (a *app) postgresStore(ctx context.Context) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, a.cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return store, nil
}
