// Package ingest turns one uploaded file into a stored document: extract
// text, persist the record, encrypt and archive the raw bytes. Outcomes are
// classified into a tagged result rather than bubbled up as errors, so batch
// callers can sort survivors from casualties without error-type filtering.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
)

// Service ingests uploaded files into a vault.
type Service struct {
	documents DocumentWriter
	blobs     BlobWriter
	extractor TextExtractor
	cipher    Encrypter
	logger    *zap.Logger
}

// NewService creates an ingest service.
func NewService(
	documents DocumentWriter,
	blobs BlobWriter,
	extractor TextExtractor,
	cipher Encrypter,
	logger *zap.Logger,
) *Service {
	return &Service{
		documents: documents,
		blobs:     blobs,
		extractor: extractor,
		cipher:    cipher,
		logger:    logger,
	}
}

// Ingest processes a single uploaded file for the given vault. The record is
// written before the blob; a blob-write failure therefore leaves the record
// behind and is reported as a storage error for the caller to weigh.
func (s *Service) Ingest(ctx context.Context, vaultID uuid.UUID, file domingest.File) domingest.Result {
	text, err := s.extractor.Extract(ctx, file.Name, file.Content)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFileType) {
			return domingest.NewUnsupported(file.Name, err)
		}
		return domingest.NewError(file.Name, fmt.Errorf("extract %s: %w", file.Name, err))
	}
	if text == "" {
		return domingest.NewEmpty(file.Name, fmt.Errorf("%s: %w", file.Name, domain.ErrEmptyFile))
	}

	doc, err := domdoc.New(file.Name, text, vaultID)
	if err != nil {
		return domingest.NewError(file.Name, fmt.Errorf("build document %s: %w", file.Name, err))
	}

	if err := s.documents.Insert(ctx, &doc); err != nil {
		return domingest.NewError(file.Name, fmt.Errorf("insert document %s: %w", file.Name, err))
	}

	sealed, err := s.cipher.Encrypt(file.Content)
	if err != nil {
		s.logger.Warn("encrypt failed after record insert",
			zap.String("file", file.Name),
			zap.String("document_id", doc.ID().String()),
			zap.Error(err),
		)
		return domingest.NewError(file.Name, fmt.Errorf("encrypt %s: %w", file.Name, err))
	}
	if err := s.blobs.Put(ctx, sealed, doc.ID()); err != nil {
		s.logger.Warn("blob write failed after record insert",
			zap.String("file", file.Name),
			zap.String("document_id", doc.ID().String()),
			zap.Error(err),
		)
		return domingest.NewError(file.Name, fmt.Errorf("store blob %s: %w", file.Name, err))
	}

	return domingest.NewOK(file.Name, doc)
}
