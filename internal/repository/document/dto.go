package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(d *domdoc.Document) map[string]string {
	return map[string]string{
		"name":       d.Name(),
		"text":       d.Text(),
		"vault_id":   d.VaultID().String(),
		"created_at": d.CreatedAt().Format(time.RFC3339Nano),
	}
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id uuid.UUID, m map[string]string) (domdoc.Document, error) {
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

func documentKey(id uuid.UUID) string {
	return fmt.Sprintf("%sdocument:%s", domain.KeyPrefix, id)
}

// vaultDocsKey is the set of document IDs owned by a vault.
func vaultDocsKey(vaultID uuid.UUID) string {
	return fmt.Sprintf("%svault:%s:docs", domain.KeyPrefix, vaultID)
}
