// Package kb is the HTTP client for the external knowledge-base services.
// A vault is mirrored into exactly one backend (graph or vector), selected
// by the vault's type; both backends expose the same four operations.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	"github.com/papper-ai/vaultd/internal/metrics"
)

// DocumentPayload is one document as the KB services expect it on the wire.
type DocumentPayload struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Text         string    `json:"text"`
}

type createRequest struct {
	VaultID   uuid.UUID         `json:"vault_id"`
	Documents []DocumentPayload `json:"documents"`
}

type addDocumentRequest struct {
	VaultID  uuid.UUID       `json:"vault_id"`
	Document DocumentPayload `json:"document"`
}

type deleteDocumentRequest struct {
	VaultID    uuid.UUID `json:"vault_id"`
	DocumentID uuid.UUID `json:"document_id"`
}

type dropRequest struct {
	VaultID uuid.UUID `json:"vault_id"`
}

// Config holds the KB client settings.
type Config struct {
	GraphURL  string
	VectorURL string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client talks to the graph and vector KB services.
type Client struct {
	http      *http.Client
	graphURL  string
	vectorURL string
	logger    *zap.Logger
}

// NewClient creates a KB client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		graphURL:  cfg.GraphURL,
		vectorURL: cfg.VectorURL,
		logger:    logger,
	}
}

// Create builds a knowledge base for a new vault from its initial documents.
func (c *Client) Create(
	ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID, docs []DocumentPayload,
) error {
	body := createRequest{VaultID: vaultID, Documents: docs}
	return c.send(ctx, vaultType, "create", http.MethodPost, "/create", body)
}

// AddDocument adds a single document to an existing knowledge base.
func (c *Client) AddDocument(
	ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID, doc DocumentPayload,
) error {
	body := addDocumentRequest{VaultID: vaultID, Document: doc}
	return c.send(ctx, vaultType, "add_document", http.MethodPost, "/add_document", body)
}

// DeleteDocument removes a single document from a knowledge base.
func (c *Client) DeleteDocument(
	ctx context.Context, vaultType domvault.Type, vaultID, documentID uuid.UUID,
) error {
	body := deleteDocumentRequest{VaultID: vaultID, DocumentID: documentID}
	return c.send(ctx, vaultType, "delete_document", http.MethodDelete, "/delete_document", body)
}

// Drop removes a vault's knowledge base entirely.
func (c *Client) Drop(ctx context.Context, vaultType domvault.Type, vaultID uuid.UUID) error {
	body := dropRequest{VaultID: vaultID}
	return c.send(ctx, vaultType, "drop", http.MethodDelete, "/drop", body)
}

func (c *Client) baseURL(vaultType domvault.Type) string {
	if vaultType == domvault.TypeGraph {
		return c.graphURL
	}
	return c.vectorURL
}

func (c *Client) send(
	ctx context.Context, vaultType domvault.Type, op, method, path string, body any,
) error {
	backend := string(vaultType)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL(vaultType)+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.KBRequestsTotal.WithLabelValues(backend, op, "error").Inc()
		return fmt.Errorf("%s %s: %v: %w", backend, op, err, domain.ErrKnowledgeBase)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.KBRequestDuration.WithLabelValues(backend, op).Observe(duration.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.KBRequestsTotal.WithLabelValues(backend, op, "error").Inc()
		detail := readDetail(resp.Body)
		c.logger.Warn("knowledge base request failed",
			zap.String("backend", backend),
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		if detail != "" {
			return fmt.Errorf("%s %s: status %d: %s: %w", backend, op, resp.StatusCode, detail, domain.ErrKnowledgeBase)
		}
		return fmt.Errorf("%s %s: status %d: %w", backend, op, resp.StatusCode, domain.ErrKnowledgeBase)
	}

	metrics.KBRequestsTotal.WithLabelValues(backend, op, "success").Inc()
	return nil
}

// readDetail extracts the "detail" field from a JSON error body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
