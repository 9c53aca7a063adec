package ingest

import (
	"context"

	"github.com/google/uuid"

	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
)

// DocumentWriter persists document records.
type DocumentWriter interface {
	Insert(ctx context.Context, d *domdoc.Document) error
}

// BlobWriter persists encrypted raw payloads keyed by document ID.
type BlobWriter interface {
	Put(ctx context.Context, data []byte, id uuid.UUID) error
}

// TextExtractor converts raw uploaded bytes into plaintext.
type TextExtractor interface {
	Extract(ctx context.Context, name string, raw []byte) (string, error)
}

// Encrypter seals raw bytes before they reach the blob store.
type Encrypter interface {
	Encrypt(data []byte) ([]byte, error)
}
