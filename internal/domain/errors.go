// Package domain holds the shared sentinel errors and key namespace of the
// vault service.
package domain

import "errors"

// KeyPrefix namespaces every key this service writes to the metadata store.
const KeyPrefix = "vaultd:"

// Sentinel errors classified by the transport layer.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrVaultNotFound       = errors.New("vault not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrNoFiles             = errors.New("no files provided")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file contains no extractable text")
	ErrNoUsableDocuments   = errors.New("no usable documents")
	ErrKnowledgeBase       = errors.New("knowledge base request failed")
)
