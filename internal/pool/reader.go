// Package pool reads BasePool state and keeps the last successful snapshot.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"basepool/internal/model"
)

// ErrReadUnavailable wraps every failed contract read.
var ErrReadUnavailable = errors.New("pool read unavailable")

// Source is the contract read surface used by the Reader.
type Source interface {
	PoolStatus(ctx context.Context) (model.PoolStatus, error)
	ParticipantNumbers(ctx context.Context, participant common.Address) ([]uint64, error)
	ConqueredNumbers(ctx context.Context) ([]uint64, error)
}

// Reader fetches pool snapshots on demand. Reads are never retried.
type Reader struct {
	source Source
	logger *zap.Logger

	mu        sync.RWMutex
	status    model.PoolStatus
	hasStatus bool
	numbers   map[common.Address][]uint64
}

func NewReader(source Source, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		source:  source,
		logger:  logger,
		numbers: make(map[common.Address][]uint64),
	}
}

// Read fetches the latest pool status and replaces the cached snapshot.
func (r *Reader) Read(ctx context.Context) (model.PoolStatus, error) {
	if r.source == nil {
		return model.PoolStatus{}, fmt.Errorf("%w: source is nil", ErrReadUnavailable)
	}
	status, err := r.source.PoolStatus(ctx)
	if err != nil {
		r.logger.Warn("pool status read failed", zap.Error(err))
		return model.PoolStatus{}, fmt.Errorf("%w: %v", ErrReadUnavailable, err)
	}

	r.mu.Lock()
	r.status = status
	r.hasStatus = true
	r.mu.Unlock()

	r.logger.Debug("pool status read",
		zap.Uint64("pool_id", status.PoolID),
		zap.Uint64("total_numbers", status.TotalNumbers),
		zap.Stringer("balance_wei", status.CurrentBalanceWei),
	)
	return status, nil
}

// Last returns the last successfully read pool status.
func (r *Reader) Last() (model.PoolStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status, r.hasStatus
}

// ParticipantNumbers fetches the numbers held by participant in the current round.
func (r *Reader) ParticipantNumbers(ctx context.Context, participant common.Address) (model.ParticipantNumbers, error) {
	if r.source == nil {
		return model.ParticipantNumbers{}, fmt.Errorf("%w: source is nil", ErrReadUnavailable)
	}
	numbers, err := r.source.ParticipantNumbers(ctx, participant)
	if err != nil {
		r.logger.Warn("participant numbers read failed", zap.String("participant", participant.Hex()), zap.Error(err))
		return model.ParticipantNumbers{}, fmt.Errorf("%w: %v", ErrReadUnavailable, err)
	}

	r.mu.Lock()
	r.numbers[participant] = numbers
	r.mu.Unlock()

	return model.ParticipantNumbers{Address: participant.Hex(), Numbers: numbers}, nil
}

// LastParticipantNumbers returns the last successful read for participant.
func (r *Reader) LastParticipantNumbers(participant common.Address) (model.ParticipantNumbers, bool) {
	r.mu.RLock()
	numbers, ok := r.numbers[participant]
	r.mu.RUnlock()
	return model.ParticipantNumbers{Address: participant.Hex(), Numbers: numbers}, ok
}

// ConqueredNumbers fetches the winning numbers of previous rounds.
func (r *Reader) ConqueredNumbers(ctx context.Context) ([]uint64, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrReadUnavailable)
	}
	numbers, err := r.source.ConqueredNumbers(ctx)
	if err != nil {
		r.logger.Warn("conquered numbers read failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrReadUnavailable, err)
	}
	return numbers, nil
}

// RefreshPoolStatus re-reads the pool status, discarding the value.
func (r *Reader) RefreshPoolStatus(ctx context.Context) error {
	_, err := r.Read(ctx)
	return err
}

// RefreshParticipantNumbers re-reads the numbers of participant.
func (r *Reader) RefreshParticipantNumbers(ctx context.Context, participant common.Address) error {
	_, err := r.ParticipantNumbers(ctx, participant)
	return err
}
