package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type selects the knowledge-base backend a vault is mirrored into.
// Immutable after creation.
type Type string

const (
	// TypeGraph mirrors the vault into the graph-structured knowledge base.
	TypeGraph Type = "graph"
	// TypeVector mirrors the vault into the vector-embedding knowledge base.
	TypeVector Type = "vector"
)

// IsValid checks if the vault type is supported.
func (t Type) IsValid() bool {
	return t == TypeGraph || t == TypeVector
}

// ParseType converts a wire string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid vault type: %q", s)
	}
	return t, nil
}

// Vault is a user-owned collection of documents (immutable value object).
type Vault struct {
	id        uuid.UUID
	name      string
	vaultType Type
	userID    uuid.UUID
	createdAt time.Time
}

// New validates and creates a Vault with a fresh random ID.
// Name: 1-256 chars. Type: graph or vector. UserID: non-nil.
func New(name string, vaultType Type, userID uuid.UUID) (Vault, error) {
	if name == "" {
		return Vault{}, fmt.Errorf("vault name is required")
	}
	if len(name) > 256 {
		return Vault{}, fmt.Errorf("vault name too long (max 256)")
	}
	if !vaultType.IsValid() {
		return Vault{}, fmt.Errorf("invalid vault type: %q", vaultType)
	}
	if userID == uuid.Nil {
		return Vault{}, fmt.Errorf("user ID is required")
	}

	return Vault{
		id:        uuid.New(),
		name:      name,
		vaultType: vaultType,
		userID:    userID,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstruct creates a Vault without validation (storage hydration).
func Reconstruct(id uuid.UUID, name string, vaultType Type, userID uuid.UUID, createdAt time.Time) Vault {
	return Vault{id: id, name: name, vaultType: vaultType, userID: userID, createdAt: createdAt}
}

// ID returns the vault identifier.
func (v *Vault) ID() uuid.UUID { return v.id }

// Name returns the display name.
func (v *Vault) Name() string { return v.name }

// VaultType returns the knowledge-base backend selector.
func (v *Vault) VaultType() Type { return v.vaultType }

// UserID returns the owning user.
func (v *Vault) UserID() uuid.UUID { return v.userID }

// CreatedAt returns the creation timestamp.
func (v *Vault) CreatedAt() time.Time { return v.createdAt }

// WithName returns a copy with the given display name.
func (v *Vault) WithName(name string) Vault {
	return Vault{id: v.id, name: name, vaultType: v.vaultType, userID: v.userID, createdAt: v.createdAt}
}
