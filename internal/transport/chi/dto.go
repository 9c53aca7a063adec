package chi

import (
	"time"

	"github.com/google/uuid"

	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	vaultuc "github.com/papper-ai/vaultd/internal/usecase/vault"
)

// Error codes returned to clients.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeVaultNotFound       = "vault_not_found"
	codeDocumentNotFound    = "document_not_found"
	codeUnsupportedFileType = "unsupported_file_type"
	codeEmptyFile           = "empty_file"
	codeNoUsableDocuments   = "no_usable_documents"
	codeKnowledgeBaseError  = "knowledge_base_error"
	codeInternalError       = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DocumentSummary is a document without its extracted text.
type DocumentSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentResponse is a document including its extracted text.
type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	VaultID   uuid.UUID `json:"vault_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// VaultResponse is a vault hydrated with its document summaries.
type VaultResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	UserID    uuid.UUID         `json:"user_id"`
	CreatedAt time.Time         `json:"created_at"`
	Documents []DocumentSummary `json:"documents"`
}

// VaultSummary is a vault without its documents.
type VaultSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type renameVaultRequest struct {
	Name string `json:"name"`
}

func documentToSummary(d *domdoc.Document) DocumentSummary {
	return DocumentSummary{
		ID:        d.ID(),
		Name:      d.Name(),
		CreatedAt: d.CreatedAt(),
	}
}

func documentToResponse(d *domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID(),
		Name:      d.Name(),
		VaultID:   d.VaultID(),
		Text:      d.Text(),
		CreatedAt: d.CreatedAt(),
	}
}

func viewToResponse(view *vaultuc.View) VaultResponse {
	docs := make([]DocumentSummary, len(view.Documents))
	for i := range view.Documents {
		docs[i] = documentToSummary(&view.Documents[i])
	}
	return VaultResponse{
		ID:        view.Vault.ID(),
		Name:      view.Vault.Name(),
		Type:      string(view.Vault.VaultType()),
		UserID:    view.Vault.UserID(),
		CreatedAt: view.Vault.CreatedAt(),
		Documents: docs,
	}
}

func vaultToSummary(v *domvault.Vault) VaultSummary {
	return VaultSummary{
		ID:        v.ID(),
		Name:      v.Name(),
		Type:      string(v.VaultType()),
		CreatedAt: v.CreatedAt(),
	}
}
