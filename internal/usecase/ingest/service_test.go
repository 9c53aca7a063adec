package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
)

type mockDocumentWriter struct {
	insertErr error
	inserted  []domdoc.Document
}

func (m *mockDocumentWriter) Insert(_ context.Context, d *domdoc.Document) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, *d)
	return nil
}

type mockBlobWriter struct {
	putErr error
	blobs  map[uuid.UUID][]byte
}

func (m *mockBlobWriter) Put(_ context.Context, data []byte, id uuid.UUID) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.blobs == nil {
		m.blobs = make(map[uuid.UUID][]byte)
	}
	m.blobs[id] = data
	return nil
}

type mockExtractor struct{}

// Extract mimics the real extractor's classification: unknown extensions are
// unsupported, files named "empty" extract to zero text, everything else
// extracts to its upper-cased content.
func (m *mockExtractor) Extract(_ context.Context, name string, raw []byte) (string, error) {
	if strings.HasSuffix(name, ".exe") {
		return "", fmt.Errorf("%s: %w", name, domain.ErrUnsupportedFileType)
	}
	if strings.HasPrefix(name, "empty") {
		return "", nil
	}
	return strings.ToUpper(string(raw)), nil
}

type mockEncrypter struct {
	encryptErr error
}

func (m *mockEncrypter) Encrypt(data []byte) ([]byte, error) {
	if m.encryptErr != nil {
		return nil, m.encryptErr
	}
	return append([]byte("sealed:"), data...), nil
}

func newTestService(docs *mockDocumentWriter, blobs *mockBlobWriter, enc *mockEncrypter) *Service {
	return NewService(docs, blobs, &mockExtractor{}, enc, zap.NewNop())
}

func TestIngestOK(t *testing.T) {
	docs := &mockDocumentWriter{}
	blobs := &mockBlobWriter{}
	svc := newTestService(docs, blobs, &mockEncrypter{})

	vaultID := uuid.New()
	res := svc.Ingest(context.Background(), vaultID, domingest.File{Name: "a.txt", Content: []byte("hello")})

	if res.Status() != domingest.StatusOK {
		t.Fatalf("status = %s, err = %v", res.Status(), res.Err())
	}
	doc := res.Document()
	if doc.Name() != "a.txt" || doc.Text() != "HELLO" || doc.VaultID() != vaultID {
		t.Fatalf("document = %+v", doc)
	}
	if len(docs.inserted) != 1 {
		t.Fatalf("inserted %d records", len(docs.inserted))
	}
	sealed, ok := blobs.blobs[doc.ID()]
	if !ok {
		t.Fatal("blob not written under document ID")
	}
	if string(sealed) != "sealed:hello" {
		t.Fatalf("blob = %q, raw bytes must be encrypted before storage", sealed)
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	docs := &mockDocumentWriter{}
	blobs := &mockBlobWriter{}
	svc := newTestService(docs, blobs, &mockEncrypter{})

	res := svc.Ingest(context.Background(), uuid.New(), domingest.File{Name: "virus.exe", Content: []byte("x")})

	if res.Status() != domingest.StatusUnsupported {
		t.Fatalf("status = %s", res.Status())
	}
	if !errors.Is(res.Err(), domain.ErrUnsupportedFileType) {
		t.Fatalf("err = %v", res.Err())
	}
	if len(docs.inserted) != 0 || len(blobs.blobs) != 0 {
		t.Fatal("nothing may be written for an unsupported file")
	}
}

func TestIngestEmptyFile(t *testing.T) {
	docs := &mockDocumentWriter{}
	svc := newTestService(docs, &mockBlobWriter{}, &mockEncrypter{})

	res := svc.Ingest(context.Background(), uuid.New(), domingest.File{Name: "empty.txt", Content: nil})

	if res.Status() != domingest.StatusEmpty {
		t.Fatalf("status = %s", res.Status())
	}
	if !errors.Is(res.Err(), domain.ErrEmptyFile) {
		t.Fatalf("err = %v", res.Err())
	}
	if len(docs.inserted) != 0 {
		t.Fatal("nothing may be written for an empty file")
	}
}

func TestIngestInsertFailure(t *testing.T) {
	docs := &mockDocumentWriter{insertErr: errors.New("store down")}
	blobs := &mockBlobWriter{}
	svc := newTestService(docs, blobs, &mockEncrypter{})

	res := svc.Ingest(context.Background(), uuid.New(), domingest.File{Name: "a.txt", Content: []byte("x")})

	if res.Status() != domingest.StatusError {
		t.Fatalf("status = %s", res.Status())
	}
	if len(blobs.blobs) != 0 {
		t.Fatal("blob must not be written when the record insert fails")
	}
}

func TestIngestBlobFailureYieldsStorageError(t *testing.T) {
	docs := &mockDocumentWriter{}
	blobs := &mockBlobWriter{putErr: errors.New("store down")}
	svc := newTestService(docs, blobs, &mockEncrypter{})

	res := svc.Ingest(context.Background(), uuid.New(), domingest.File{Name: "a.txt", Content: []byte("x")})

	if res.Status() != domingest.StatusError {
		t.Fatalf("status = %s", res.Status())
	}
	// The record was already inserted; the batch caller decides what to do.
	if len(docs.inserted) != 1 {
		t.Fatalf("inserted %d records", len(docs.inserted))
	}
}

func TestIngestEncryptFailure(t *testing.T) {
	svc := newTestService(&mockDocumentWriter{}, &mockBlobWriter{}, &mockEncrypter{encryptErr: errors.New("bad key")})

	res := svc.Ingest(context.Background(), uuid.New(), domingest.File{Name: "a.txt", Content: []byte("x")})

	if res.Status() != domingest.StatusError {
		t.Fatalf("status = %s", res.Status())
	}
}
