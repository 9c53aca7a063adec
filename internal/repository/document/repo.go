package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
)

// store is the consumer interface for document metadata (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
}

// Repo implements the document metadata store contract.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert stores a document record and registers it under its vault.
func (r *Repo) Insert(ctx context.Context, d *domdoc.Document) error {
	if err := r.store.HSet(ctx, documentKey(d.ID()), buildHashFields(d)); err != nil {
		return fmt.Errorf("hset document %s: %w", d.ID(), err)
	}
	if err := r.store.SAdd(ctx, vaultDocsKey(d.VaultID()), d.ID().String()); err != nil {
		return fmt.Errorf("register document %s in vault %s: %w", d.ID(), d.VaultID(), err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domdoc.Document, error) {
	m, err := r.store.HGetAll(ctx, documentKey(id))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall document %s: %w", id, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	d, err := parseHashFields(id, m)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return d, nil
}

// Delete removes a document record and its vault membership.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Del(ctx, documentKey(id)); err != nil {
		return fmt.Errorf("del document %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, vaultDocsKey(d.VaultID()), id.String()); err != nil {
		return fmt.Errorf("unregister document %s from vault %s: %w", id, d.VaultID(), err)
	}
	return nil
}
