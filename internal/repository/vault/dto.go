package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
)

// buildHashFields converts a domain Vault into a flat map[string]string for HSET.
func buildHashFields(v *domvault.Vault) map[string]string {
	return map[string]string{
		"name":       v.Name(),
		"type":       string(v.VaultType()),
		"user_id":    v.UserID().String(),
		"created_at": v.CreatedAt().Format(time.RFC3339Nano),
	}
}

// parseHashFields converts a flat hash map back into a domain Vault.
func parseHashFields(id uuid.UUID, m map[string]string) (domvault.Vault, error) {
	userID, err := uuid.Parse(m["user_id"])
	if err != nil {
		return domvault.Vault{}, fmt.Errorf("parse user_id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, m["created_at"])
	if err != nil {
		return domvault.Vault{}, fmt.Errorf("parse created_at: %w", err)
	}
	return domvault.Reconstruct(id, m["name"], domvault.Type(m["type"]), userID, createdAt), nil
}

// parseDocumentFields converts a document hash back into a domain Document.
func parseDocumentFields(id uuid.UUID, m map[string]string) (domdoc.Document, error) {
	vaultID, err := uuid.Parse(m["vault_id"])
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("parse vault_id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, m["created_at"])
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("parse created_at: %w", err)
	}
	return domdoc.Reconstruct(id, m["name"], m["text"], vaultID, createdAt), nil
}

func vaultKey(id uuid.UUID) string {
	return fmt.Sprintf("%svault:%s", domain.KeyPrefix, id)
}

// vaultDocsKey is the set of document IDs owned by a vault.
func vaultDocsKey(id uuid.UUID) string {
	return fmt.Sprintf("%svault:%s:docs", domain.KeyPrefix, id)
}

// userVaultsKey is the set of vault IDs owned by a user.
func userVaultsKey(userID uuid.UUID) string {
	return fmt.Sprintf("%suser:%s:vaults", domain.KeyPrefix, userID)
}

func documentKey(id uuid.UUID) string {
	return fmt.Sprintf("%sdocument:%s", domain.KeyPrefix, id)
}
