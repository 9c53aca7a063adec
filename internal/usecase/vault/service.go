// Package vault orchestrates the vault lifecycle across three stores that
// cannot be updated atomically: the metadata store, the blob store, and the
// external knowledge base. Mutations compensate on failure so that a vault
// visible in metadata always has a knowledge base behind it; deletions
// reconcile the KB in the background, best-effort.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	"github.com/papper-ai/vaultd/internal/transport/kb"
)

// View is a vault hydrated with its documents.
type View struct {
	Vault     domvault.Vault
	Documents []domdoc.Document
}

// Service implements the vault lifecycle operations.
type Service struct {
	vaults    VaultStore
	documents DocumentStore
	blobs     BlobStore
	ingestor  Ingestor
	kb        KnowledgeBase
	runner    TaskRunner
	decrypter Decrypter
	logger    *zap.Logger
}

// NewService creates a vault service.
func NewService(
	vaults VaultStore,
	documents DocumentStore,
	blobs BlobStore,
	ingestor Ingestor,
	knowledgeBase KnowledgeBase,
	runner TaskRunner,
	decrypter Decrypter,
	logger *zap.Logger,
) *Service {
	return &Service{
		vaults:    vaults,
		documents: documents,
		blobs:     blobs,
		ingestor:  ingestor,
		kb:        knowledgeBase,
		runner:    runner,
		decrypter: decrypter,
		logger:    logger,
	}
}

// CreateVault creates a vault from an initial batch of files: vault record
// first, then concurrent ingestion of every file, then one KB create call
// with the surviving documents. Any unsupported file, a batch with zero
// surviving documents, or a KB failure rolls the whole vault back.
func (s *Service) CreateVault(
	ctx context.Context, userID uuid.UUID, name string, vaultType domvault.Type, files []domingest.File,
) (View, error) {
	if len(files) == 0 {
		return View{}, domain.ErrNoFiles
	}

	v, err := domvault.New(name, vaultType, userID)
	if err != nil {
		return View{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}

	if err := s.vaults.Insert(ctx, &v); err != nil {
		return View{}, fmt.Errorf("insert vault: %w", err)
	}

	results := s.ingestAll(ctx, v.ID(), files)

	stored, err := s.classify(ctx, &v, results)
	if err != nil {
		return View{}, err
	}

	payloads := make([]kb.DocumentPayload, 0, len(stored))
	for i := range stored {
		payloads = append(payloads, documentPayload(&stored[i]))
	}
	if err := s.kb.Create(ctx, v.VaultType(), v.ID(), payloads); err != nil {
		s.rollback(ctx, &v, stored)
		return View{}, fmt.Errorf("create %s knowledge base: %w", v.VaultType(), err)
	}

	docs, err := s.vaults.ListDocuments(ctx, v.ID())
	if err != nil {
		return View{}, fmt.Errorf("list vault documents: %w", err)
	}
	return View{Vault: v, Documents: docs}, nil
}

// ingestAll fans out over the files concurrently. Every task runs to
// completion and writes into its own slot; a failing sibling never cancels
// the others.
func (s *Service) ingestAll(ctx context.Context, vaultID uuid.UUID, files []domingest.File) []domingest.Result {
	results := make([]domingest.Result, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file domingest.File) {
			defer wg.Done()
			results[i] = s.ingestor.Ingest(ctx, vaultID, file)
		}(i, file)
	}
	wg.Wait()

	return results
}

// classify sorts batch results into surviving documents or a fatal outcome.
// An unsupported file fails the batch outright. Empty files are dropped
// silently; storage errors are dropped with a warning. Zero survivors rolls
// the vault back. The whole batch is scanned before any verdict: rollback
// must cover blobs of OK files ordered after a failing one.
func (s *Service) classify(ctx context.Context, v *domvault.Vault, results []domingest.Result) ([]domdoc.Document, error) {
	var (
		stored         []domdoc.Document
		unsupportedErr error
		storageErr     error
	)
	for _, res := range results {
		switch res.Status() {
		case domingest.StatusOK:
			stored = append(stored, res.Document())
		case domingest.StatusUnsupported:
			if unsupportedErr == nil {
				unsupportedErr = res.Err()
			}
		case domingest.StatusEmpty:
			// Dropped; the rest of the batch proceeds.
		case domingest.StatusError:
			s.logger.Warn("file dropped from batch",
				zap.String("vault_id", v.ID().String()),
				zap.String("file", res.FileName()),
				zap.Error(res.Err()),
			)
			if storageErr == nil {
				storageErr = res.Err()
			}
		}
	}

	if unsupportedErr != nil {
		s.rollback(ctx, v, stored)
		return nil, unsupportedErr
	}

	if len(stored) == 0 {
		s.rollback(ctx, v, nil)
		if storageErr != nil {
			return nil, fmt.Errorf("no documents stored: %w", storageErr)
		}
		return nil, domain.ErrNoUsableDocuments
	}
	return stored, nil
}

// rollback deletes the vault and everything written under it. Best-effort:
// failures are logged, not returned, since rollback already runs on an error
// path.
func (s *Service) rollback(ctx context.Context, v *domvault.Vault, stored []domdoc.Document) {
	for i := range stored {
		if err := s.blobs.Delete(ctx, stored[i].ID()); err != nil {
			s.logger.Warn("rollback: delete blob failed",
				zap.String("document_id", stored[i].ID().String()),
				zap.Error(err),
			)
		}
	}
	if err := s.vaults.Delete(ctx, v.ID()); err != nil {
		s.logger.Error("rollback: delete vault failed",
			zap.String("vault_id", v.ID().String()),
			zap.Error(err),
		)
	}
}

// AddDocument ingests one file into an existing vault, mirrors it into the
// vault's KB and returns the vault hydrated with its documents. On KB
// failure the just-written record and blob are removed so metadata never
// claims a document the KB does not have.
func (s *Service) AddDocument(ctx context.Context, vaultID uuid.UUID, file domingest.File) (View, error) {
	v, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return View{}, err
	}

	res := s.ingestor.Ingest(ctx, vaultID, file)
	if res.Status() != domingest.StatusOK {
		return View{}, res.Err()
	}
	doc := res.Document()

	if err := s.kb.AddDocument(ctx, v.VaultType(), vaultID, documentPayload(&doc)); err != nil {
		if derr := s.documents.Delete(ctx, doc.ID()); derr != nil {
			s.logger.Warn("compensate: delete document failed",
				zap.String("document_id", doc.ID().String()),
				zap.Error(derr),
			)
		}
		if derr := s.blobs.Delete(ctx, doc.ID()); derr != nil {
			s.logger.Warn("compensate: delete blob failed",
				zap.String("document_id", doc.ID().String()),
				zap.Error(derr),
			)
		}
		return View{}, fmt.Errorf("add document to %s knowledge base: %w", v.VaultType(), err)
	}

	docs, err := s.vaults.ListDocuments(ctx, vaultID)
	if err != nil {
		return View{}, fmt.Errorf("list vault documents: %w", err)
	}
	return View{Vault: v, Documents: docs}, nil
}

// DeleteVault removes a vault, its document records and blobs, and enqueues
// a background KB drop. The caller gets success once local state is gone;
// KB reconciliation is fire-and-forget.
func (s *Service) DeleteVault(ctx context.Context, vaultID uuid.UUID) error {
	v, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return err
	}

	docs, err := s.vaults.ListDocuments(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("list vault documents: %w", err)
	}

	if err := s.vaults.Delete(ctx, vaultID); err != nil {
		return fmt.Errorf("delete vault: %w", err)
	}

	for i := range docs {
		if err := s.blobs.Delete(ctx, docs[i].ID()); err != nil {
			s.logger.Warn("delete blob failed",
				zap.String("document_id", docs[i].ID().String()),
				zap.Error(err),
			)
		}
	}

	vaultType := v.VaultType()
	s.runner.Submit("kb_drop", func(ctx context.Context) error {
		return s.kb.Drop(ctx, vaultType, vaultID)
	})
	return nil
}

// DeleteDocument removes one document record and blob, and enqueues a
// background KB delete for it.
func (s *Service) DeleteDocument(ctx context.Context, vaultID, documentID uuid.UUID) error {
	v, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return err
	}

	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.VaultID() != vaultID {
		return domain.ErrDocumentNotFound
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.blobs.Delete(ctx, documentID); err != nil {
		s.logger.Warn("delete blob failed",
			zap.String("document_id", documentID.String()),
			zap.Error(err),
		)
	}

	vaultType := v.VaultType()
	s.runner.Submit("kb_delete_document", func(ctx context.Context) error {
		return s.kb.DeleteDocument(ctx, vaultType, vaultID, documentID)
	})
	return nil
}

// GetVault returns a vault hydrated with its documents.
func (s *Service) GetVault(ctx context.Context, vaultID uuid.UUID) (View, error) {
	v, err := s.vaults.Get(ctx, vaultID)
	if err != nil {
		return View{}, err
	}
	docs, err := s.vaults.ListDocuments(ctx, vaultID)
	if err != nil {
		return View{}, fmt.Errorf("list vault documents: %w", err)
	}
	return View{Vault: v, Documents: docs}, nil
}

// GetVaultDocuments returns the documents of an existing vault.
func (s *Service) GetVaultDocuments(ctx context.Context, vaultID uuid.UUID) ([]domdoc.Document, error) {
	if _, err := s.vaults.Get(ctx, vaultID); err != nil {
		return nil, err
	}
	docs, err := s.vaults.ListDocuments(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("list vault documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns a single document with its extracted text.
func (s *Service) GetDocument(ctx context.Context, documentID uuid.UUID) (domdoc.Document, error) {
	return s.documents.Get(ctx, documentID)
}

// DownloadDocument returns a document's original raw bytes, unsealed from
// the blob archive.
func (s *Service) DownloadDocument(ctx context.Context, documentID uuid.UUID) (string, []byte, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return "", nil, err
	}
	sealed, err := s.blobs.Get(ctx, documentID)
	if err != nil {
		return "", nil, err
	}
	raw, err := s.decrypter.Decrypt(sealed)
	if err != nil {
		return "", nil, fmt.Errorf("decrypt blob %s: %w", documentID, err)
	}
	return doc.Name(), raw, nil
}

// ListUserVaults returns all vaults owned by a user.
func (s *Service) ListUserVaults(ctx context.Context, userID uuid.UUID) ([]domvault.Vault, error) {
	return s.vaults.ListByUser(ctx, userID)
}

// RenameVault updates a vault's display name and returns the updated vault.
func (s *Service) RenameVault(ctx context.Context, vaultID uuid.UUID, name string) (domvault.Vault, error) {
	if name == "" || len(name) > 256 {
		return domvault.Vault{}, fmt.Errorf("vault name must be 1-256 chars: %w", domain.ErrInvalidInput)
	}
	if err := s.vaults.Rename(ctx, vaultID, name); err != nil {
		return domvault.Vault{}, err
	}
	return s.vaults.Get(ctx, vaultID)
}

func documentPayload(d *domdoc.Document) kb.DocumentPayload {
	return kb.DocumentPayload{
		DocumentID:   d.ID(),
		DocumentName: d.Name(),
		Text:         d.Text(),
	}
}
