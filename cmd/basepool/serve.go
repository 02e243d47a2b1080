package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basepool/internal/api"
	"basepool/internal/model"
	"basepool/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if a.cfg.PGDSN != "" {
		store, err := a.postgresStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		go a.snapshotLoop(ctx, store)
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(api.Config{
		Contract:    a.address,
		TicketPrice: a.price.String(),
		Tiers:       a.tiers,
	}, a.reader, a.logger)

	httpServer := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api listening", zap.String("listen", a.cfg.Listen), zap.String("contract", a.address.Hex()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.logger.Info("api shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// snapshotLoop records the pool status every snapshot interval until ctx is
// done. Unchanged states are deduplicated by the store.
func (a *app) snapshotLoop(ctx context.Context, store *postgres.Store) {
	interval := a.cfg.SnapshotEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := a.reader.Read(ctx)
		if err == nil {
			if err := store.PutPoolSnapshots(ctx, a.address.Hex(), []model.PoolStatus{status}, time.Now()); err != nil {
				a.logger.Warn("store pool snapshot failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
