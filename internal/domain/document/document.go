package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is one uploaded file's extracted text nested under a vault
// (immutable value object). The raw encrypted bytes live in the blob store
// under the same ID.
type Document struct {
	id        uuid.UUID
	name      string
	text      string
	vaultID   uuid.UUID
	createdAt time.Time
}

// New validates and creates a Document with a fresh random ID.
func New(name, text string, vaultID uuid.UUID) (Document, error) {
	if name == "" {
		return Document{}, fmt.Errorf("document name is required")
	}
	if text == "" {
		return Document{}, fmt.Errorf("document text is required")
	}
	if vaultID == uuid.Nil {
		return Document{}, fmt.Errorf("vault ID is required")
	}

	return Document{
		id:        uuid.New(),
		name:      name,
		text:      text,
		vaultID:   vaultID,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id uuid.UUID, name, text string, vaultID uuid.UUID, createdAt time.Time) Document {
	return Document{id: id, name: name, text: text, vaultID: vaultID, createdAt: createdAt}
}

// ID returns the document identifier.
func (d Document) ID() uuid.UUID { return d.id }

// Name returns the original file name.
func (d Document) Name() string { return d.name }

// Text returns the extracted plaintext.
func (d Document) Text() string { return d.text }

// VaultID returns the owning vault.
func (d Document) VaultID() uuid.UUID { return d.vaultID }

// CreatedAt returns the creation timestamp.
func (d Document) CreatedAt() time.Time { return d.createdAt }
