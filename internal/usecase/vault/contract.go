package vault

import (
	"context"

	"github.com/google/uuid"

	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	"github.com/papper-ai/vaultd/internal/transport/kb"
)

// VaultStore persists vault records and their memberships.
type VaultStore interface {
	Insert(ctx context.Context, v *domvault.Vault) error
	Get(ctx context.Context, id uuid.UUID) (domvault.Vault, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	ListDocuments(ctx context.Context, id uuid.UUID) ([]domdoc.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domvault.Vault, error)
}

// DocumentStore persists document records.
type DocumentStore interface {
	Get(ctx context.Context, id uuid.UUID) (domdoc.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStore holds encrypted raw payloads keyed by document ID.
type BlobStore interface {
	Get(ctx context.Context, id uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Decrypter unseals archived blobs.
type Decrypter interface {
	Decrypt(blob []byte) ([]byte, error)
}

// Ingestor processes one uploaded file into a stored document.
type Ingestor interface {
	Ingest(ctx context.Context, vaultID uuid.UUID, file domingest.File) domingest.Result
}

// KnowledgeBase mirrors vault contents into the external KB backends.
type KnowledgeBase interface {
	Create(ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID, docs []kb.DocumentPayload) error
	AddDocument(ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID, doc kb.DocumentPayload) error
	DeleteDocument(ctx context.Context, vaultType domvault.Type, vaultID, documentID uuid.UUID) error
	Drop(ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID) error
}

// TaskRunner executes fire-and-forget reconciliation tasks.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context) error)
}
