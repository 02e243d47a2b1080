package storage

import (
	"context"

	"basepool/internal/model"
)

// History records finished payment attempts.
type History interface {
	PutAttempt(ctx context.Context, attempt model.TxAttempt) error
}
