package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"basepool/internal/model"
)

// PendingRecord is a broadcast transaction awaiting its receipt.
type PendingRecord struct {
	Transaction model.PendingTransaction `json:"transaction"`
	UpdatedAt   string                   `json:"updated_at"`
}

// PendingStore persists the in-flight transaction so it can be watched again
// after a restart.
type PendingStore struct {
	path    string
	enabled bool
}

func NewPendingStore(path string) *PendingStore {
	return &PendingStore{path: path, enabled: path != ""}
}

func (p *PendingStore) Load() (PendingRecord, bool, error) {
	if !p.enabled {
		return PendingRecord{}, false, nil
	}

	stat, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return PendingRecord{}, false, nil
		}
		return PendingRecord{}, false, fmt.Errorf("stat pending file: %w", err)
	}
	if stat.IsDir() {
		return PendingRecord{}, false, fmt.Errorf("pending path is a directory")
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return PendingRecord{}, false, fmt.Errorf("read pending file: %w", err)
	}

	var rec PendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return PendingRecord{}, false, fmt.Errorf("parse pending file: %w", err)
	}

	return rec, true, nil
}

func (p *PendingStore) Save(tx model.PendingTransaction) error {
	if !p.enabled {
		return nil
	}

	dir := filepath.Dir(p.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pending dir: %w", err)
		}
	}

	rec := PendingRecord{
		Transaction: tx,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write pending tmp: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("rename pending: %w", err)
	}

	return nil
}

// Clear removes the pending file; a missing file is not an error.
func (p *PendingStore) Clear() error {
	if !p.enabled {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending file: %w", err)
	}
	return nil
}
