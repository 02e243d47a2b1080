package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"basepool/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tx_attempts (
	id           TEXT PRIMARY KEY,
	chain_id     BIGINT NOT NULL,
	contract     TEXT NOT NULL,
	submitter    TEXT NOT NULL,
	tx_hash      TEXT,
	amount_eth   NUMERIC NOT NULL,
	numbers      BIGINT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT,
	block_number BIGINT,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	contract            TEXT NOT NULL,
	pool_id             BIGINT NOT NULL,
	total_numbers       BIGINT NOT NULL,
	current_balance_wei NUMERIC NOT NULL,
	threshold_wei       NUMERIC NOT NULL,
	observed_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (contract, pool_id, total_numbers)
);
`

// Store provides Postgres persistence for attempts and pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutAttempt inserts or updates a finished attempt.
func (s *Store) PutAttempt(ctx context.Context, attempt model.TxAttempt) error {
	startedAt, err := parseTime(attempt.StartedAt)
	if err != nil {
		return fmt.Errorf("started_at: %w", err)
	}
	finishedAt, err := parseTime(attempt.FinishedAt)
	if err != nil {
		return fmt.Errorf("finished_at: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tx_attempts (
			id, chain_id, contract, submitter, tx_hash, amount_eth, numbers,
			status, error, block_number, started_at, finished_at
		) VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,NULLIF($9,''),NULLIF($10,0),$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			tx_hash = EXCLUDED.tx_hash,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			block_number = EXCLUDED.block_number,
			finished_at = EXCLUDED.finished_at
	`,
		attempt.ID,
		int64(attempt.ChainID),
		attempt.Contract,
		attempt.Submitter,
		attempt.TxHash,
		attempt.AmountETH,
		attempt.Numbers,
		attempt.Status,
		attempt.Error,
		int64(attempt.BlockNumber),
		startedAt,
		finishedAt,
	)
	return err
}

// PutPoolSnapshots records observed pool states; repeated states are ignored.
func (s *Store) PutPoolSnapshots(ctx context.Context, contract string, snapshots []model.PoolStatus, observedAt time.Time) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				contract, pool_id, total_numbers, current_balance_wei, threshold_wei, observed_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (contract, pool_id, total_numbers) DO NOTHING
		`,
			contract,
			int64(snap.PoolID),
			int64(snap.TotalNumbers),
			bigString(snap.CurrentBalanceWei),
			bigString(snap.ThresholdWei),
			observedAt.UTC(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// AttemptsBySubmitter returns the most recent attempts of one address.
func (s *Store) AttemptsBySubmitter(ctx context.Context, submitter string, limit int) ([]model.TxAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chain_id, contract, submitter, COALESCE(tx_hash, ''), amount_eth::text, numbers,
			status, COALESCE(error, ''), COALESCE(block_number, 0), started_at, finished_at
		FROM tx_attempts
		WHERE lower(submitter) = lower($1)
		ORDER BY finished_at DESC
		LIMIT $2
	`, submitter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TxAttempt
	for rows.Next() {
		var (
			a          model.TxAttempt
			chainID    int64
			block      int64
			startedAt  time.Time
			finishedAt time.Time
		)
		if err := rows.Scan(&a.ID, &chainID, &a.Contract, &a.Submitter, &a.TxHash, &a.AmountETH, &a.Numbers,
			&a.Status, &a.Error, &block, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		a.ChainID = uint64(chainID)
		a.BlockNumber = uint64(block)
		a.StartedAt = startedAt.UTC().Format(time.RFC3339Nano)
		a.FinishedAt = finishedAt.UTC().Format(time.RFC3339Nano)
		out = append(out, a)
	}
	return out, rows.Err()
}
