// Package blob stores encrypted document payloads keyed by document ID.
// The blob is a parallel representation of the document record, not a
// separate entity; its lifecycle tracks the record's.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/db"
	"github.com/papper-ai/vaultd/internal/domain"
)

// store is the consumer interface for blob payloads (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// Repo implements the blob store contract.
type Repo struct {
	store store
}

// New creates a blob repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Put stores an encrypted payload under the document ID.
func (r *Repo) Put(ctx context.Context, data []byte, id uuid.UUID) error {
	if err := r.store.Set(ctx, blobKey(id), data); err != nil {
		return fmt.Errorf("set blob %s: %w", id, err)
	}
	return nil
}

// Get returns the encrypted payload for a document ID.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := r.store.Get(ctx, blobKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the encrypted payload for a document ID.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Del(ctx, blobKey(id)); err != nil {
		return fmt.Errorf("del blob %s: %w", id, err)
	}
	return nil
}

func blobKey(id uuid.UUID) string {
	return fmt.Sprintf("%sblob:%s", domain.KeyPrefix, id)
}
