package vault

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
)

// store is the consumer interface for vault metadata (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements the vault metadata store contract.
type Repo struct {
	store store
}

// New creates a vault repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert stores a vault record and registers it under its owner.
func (r *Repo) Insert(ctx context.Context, v *domvault.Vault) error {
	if err := r.store.HSet(ctx, vaultKey(v.ID()), buildHashFields(v)); err != nil {
		return fmt.Errorf("hset vault %s: %w", v.ID(), err)
	}
	if err := r.store.SAdd(ctx, userVaultsKey(v.UserID()), v.ID().String()); err != nil {
		return fmt.Errorf("register vault %s for user %s: %w", v.ID(), v.UserID(), err)
	}
	return nil
}

// Get returns a vault by ID.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domvault.Vault, error) {
	m, err := r.store.HGetAll(ctx, vaultKey(id))
	if err != nil {
		return domvault.Vault{}, fmt.Errorf("hgetall vault %s: %w", id, err)
	}
	if len(m) == 0 {
		return domvault.Vault{}, domain.ErrVaultNotFound
	}
	v, err := parseHashFields(id, m)
	if err != nil {
		return domvault.Vault{}, fmt.Errorf("vault %s: %w", id, err)
	}
	return v, nil
}

// Delete removes a vault and cascades over its document records in one
// pipelined round-trip. Blob cleanup is the orchestrator's job.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	v, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	docIDs, err := r.store.SMembers(ctx, vaultDocsKey(id))
	if err != nil {
		return fmt.Errorf("smembers vault docs %s: %w", id, err)
	}

	keys := make([]string, 0, len(docIDs)+2)
	for _, docID := range docIDs {
		parsed, err := uuid.Parse(docID)
		if err != nil {
			continue
		}
		keys = append(keys, documentKey(parsed))
	}
	keys = append(keys, vaultDocsKey(id), vaultKey(id))

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete vault %s: %w", id, err)
	}
	if err := r.store.SRem(ctx, userVaultsKey(v.UserID()), id.String()); err != nil {
		return fmt.Errorf("unregister vault %s for user %s: %w", id, v.UserID(), err)
	}
	return nil
}

// Rename updates the display name of a vault.
func (r *Repo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	exists, err := r.store.Exists(ctx, vaultKey(id))
	if err != nil {
		return fmt.Errorf("check vault %s: %w", id, err)
	}
	if !exists {
		return domain.ErrVaultNotFound
	}
	if err := r.store.HSet(ctx, vaultKey(id), map[string]string{"name": name}); err != nil {
		return fmt.Errorf("rename vault %s: %w", id, err)
	}
	return nil
}

// ListDocuments returns all document records of a vault.
func (r *Repo) ListDocuments(ctx context.Context, id uuid.UUID) ([]domdoc.Document, error) {
	docIDs, err := r.store.SMembers(ctx, vaultDocsKey(id))
	if err != nil {
		return nil, fmt.Errorf("smembers vault docs %s: %w", id, err)
	}
	if len(docIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(docIDs))
	ids := make([]uuid.UUID, 0, len(docIDs))
	for _, docID := range docIDs {
		parsed, err := uuid.Parse(docID)
		if err != nil {
			continue
		}
		keys = append(keys, documentKey(parsed))
		ids = append(ids, parsed)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall vault docs %s: %w", id, err)
	}

	docs := make([]domdoc.Document, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			// Stale membership entry; the record itself is gone.
			continue
		}
		d, err := parseDocumentFields(ids[i], m)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", ids[i], err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// ListByUser returns all vaults owned by a user.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domvault.Vault, error) {
	vaultIDs, err := r.store.SMembers(ctx, userVaultsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("smembers user vaults %s: %w", userID, err)
	}
	if len(vaultIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(vaultIDs))
	ids := make([]uuid.UUID, 0, len(vaultIDs))
	for _, vaultID := range vaultIDs {
		parsed, err := uuid.Parse(vaultID)
		if err != nil {
			continue
		}
		keys = append(keys, vaultKey(parsed))
		ids = append(ids, parsed)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall user vaults %s: %w", userID, err)
	}

	vaults := make([]domvault.Vault, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		v, err := parseHashFields(ids[i], m)
		if err != nil {
			return nil, fmt.Errorf("vault %s: %w", ids[i], err)
		}
		vaults = append(vaults, v)
	}
	return vaults, nil
}
