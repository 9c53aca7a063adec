package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papper-ai/vaultd/internal/domain"
	domdoc "github.com/papper-ai/vaultd/internal/domain/document"
	domingest "github.com/papper-ai/vaultd/internal/domain/ingest"
	domvault "github.com/papper-ai/vaultd/internal/domain/vault"
	"github.com/papper-ai/vaultd/internal/transport/kb"
)

// fakeState is shared in-memory storage behind the store mocks.
type fakeState struct {
	mu     sync.Mutex
	vaults map[uuid.UUID]domvault.Vault
	docs   map[uuid.UUID]domdoc.Document
	blobs  map[uuid.UUID][]byte
}

func newFakeState() *fakeState {
	return &fakeState{
		vaults: make(map[uuid.UUID]domvault.Vault),
		docs:   make(map[uuid.UUID]domdoc.Document),
		blobs:  make(map[uuid.UUID][]byte),
	}
}

type mockVaultStore struct {
	state     *fakeState
	insertErr error
}

func (m *mockVaultStore) Insert(_ context.Context, v *domvault.Vault) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	m.state.vaults[v.ID()] = *v
	return nil
}

func (m *mockVaultStore) Get(_ context.Context, id uuid.UUID) (domvault.Vault, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	v, ok := m.state.vaults[id]
	if !ok {
		return domvault.Vault{}, domain.ErrVaultNotFound
	}
	return v, nil
}

func (m *mockVaultStore) Delete(_ context.Context, id uuid.UUID) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.vaults[id]; !ok {
		return domain.ErrVaultNotFound
	}
	delete(m.state.vaults, id)
	for docID, d := range m.state.docs {
		if d.VaultID() == id {
			delete(m.state.docs, docID)
		}
	}
	return nil
}

func (m *mockVaultStore) Rename(_ context.Context, id uuid.UUID, name string) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	v, ok := m.state.vaults[id]
	if !ok {
		return domain.ErrVaultNotFound
	}
	m.state.vaults[id] = v.WithName(name)
	return nil
}

func (m *mockVaultStore) ListDocuments(_ context.Context, id uuid.UUID) ([]domdoc.Document, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var docs []domdoc.Document
	for _, d := range m.state.docs {
		if d.VaultID() == id {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (m *mockVaultStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domvault.Vault, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var vaults []domvault.Vault
	for _, v := range m.state.vaults {
		if v.UserID() == userID {
			vaults = append(vaults, v)
		}
	}
	return vaults, nil
}

type mockDocumentStore struct {
	state *fakeState
}

func (m *mockDocumentStore) Get(_ context.Context, id uuid.UUID) (domdoc.Document, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	d, ok := m.state.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockDocumentStore) Delete(_ context.Context, id uuid.UUID) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if _, ok := m.state.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.state.docs, id)
	return nil
}

type mockBlobStore struct {
	state   *fakeState
	deleted []uuid.UUID
}

func (m *mockBlobStore) Get(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	b, ok := m.state.blobs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return b, nil
}

func (m *mockBlobStore) Delete(_ context.Context, id uuid.UUID) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	delete(m.state.blobs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockDecrypter passes data through; the fake blobs hold plain content.
type mockDecrypter struct{}

func (m *mockDecrypter) Decrypt(blob []byte) ([]byte, error) { return blob, nil }

// mockIngestor classifies by file name: "*.exe" is unsupported, "empty*"
// yields no text, "fail*" is a storage error, everything else succeeds and
// lands in the fake state like the real ingestor would.
type mockIngestor struct {
	state *fakeState
}

func (m *mockIngestor) Ingest(_ context.Context, vaultID uuid.UUID, file domingest.File) domingest.Result {
	switch {
	case strings.HasSuffix(file.Name, ".exe"):
		return domingest.NewUnsupported(file.Name, fmt.Errorf("%s: %w", file.Name, domain.ErrUnsupportedFileType))
	case strings.HasPrefix(file.Name, "empty"):
		return domingest.NewEmpty(file.Name, fmt.Errorf("%s: %w", file.Name, domain.ErrEmptyFile))
	case strings.HasPrefix(file.Name, "fail"):
		return domingest.NewError(file.Name, errors.New("store down"))
	}

	doc, err := domdoc.New(file.Name, "text of "+file.Name, vaultID)
	if err != nil {
		return domingest.NewError(file.Name, err)
	}
	m.state.mu.Lock()
	m.state.docs[doc.ID()] = doc
	m.state.blobs[doc.ID()] = file.Content
	m.state.mu.Unlock()
	return domingest.NewOK(file.Name, doc)
}

type kbCall struct {
	op        string
	vaultType domvault.Type
	vaultID   uuid.UUID
	docNames  []string
	docID     uuid.UUID
}

type mockKB struct {
	createErr error
	addErr    error
	calls     []kbCall
}

func (m *mockKB) Create(_ context.Context, t domvault.Type, vaultID uuid.UUID, docs []kb.DocumentPayload) error {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.DocumentName)
	}
	m.calls = append(m.calls, kbCall{op: "create", vaultType: t, vaultID: vaultID, docNames: names})
	return m.createErr
}

func (m *mockKB) AddDocument(_ context.Context, t domvault.Type, vaultID uuid.UUID, doc kb.DocumentPayload) error {
	m.calls = append(m.calls, kbCall{op: "add_document", vaultType: t, vaultID: vaultID, docID: doc.DocumentID})
	return m.addErr
}

func (m *mockKB) DeleteDocument(_ context.Context, t domvault.Type, vaultID, documentID uuid.UUID) error {
	m.calls = append(m.calls, kbCall{op: "delete_document", vaultType: t, vaultID: vaultID, docID: documentID})
	return nil
}

func (m *mockKB) Drop(_ context.Context, t domvault.Type, vaultID uuid.UUID) error {
	m.calls = append(m.calls, kbCall{op: "drop", vaultType: t, vaultID: vaultID})
	return nil
}

// mockRunner executes submitted tasks synchronously so tests can observe
// their effects deterministically.
type mockRunner struct {
	submitted []string
}

func (m *mockRunner) Submit(name string, task func(ctx context.Context) error) {
	m.submitted = append(m.submitted, name)
	_ = task(context.Background())
}

type fixture struct {
	state  *fakeState
	vaults *mockVaultStore
	blobs  *mockBlobStore
	kb     *mockKB
	runner *mockRunner
	svc    *Service
}

func newFixture() *fixture {
	state := newFakeState()
	vaults := &mockVaultStore{state: state}
	blobs := &mockBlobStore{state: state}
	knowledgeBase := &mockKB{}
	runner := &mockRunner{}
	svc := NewService(
		vaults,
		&mockDocumentStore{state: state},
		blobs,
		&mockIngestor{state: state},
		knowledgeBase,
		runner,
		&mockDecrypter{},
		zap.NewNop(),
	)
	return &fixture{state: state, vaults: vaults, blobs: blobs, kb: knowledgeBase, runner: runner, svc: svc}
}

func files(names ...string) []domingest.File {
	fs := make([]domingest.File, 0, len(names))
	for _, n := range names {
		fs = append(fs, domingest.File{Name: n, Content: []byte("raw " + n)})
	}
	return fs
}

func TestCreateVaultHappyPath(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	view, err := f.svc.CreateVault(context.Background(), userID, "research", domvault.TypeGraph, files("a.txt", "b.txt", "c.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	if view.Vault.Name() != "research" || view.Vault.UserID() != userID {
		t.Fatalf("vault = %+v", view.Vault)
	}
	if len(view.Documents) != 3 {
		t.Fatalf("got %d documents", len(view.Documents))
	}
	if len(f.kb.calls) != 1 || f.kb.calls[0].op != "create" {
		t.Fatalf("kb calls = %+v", f.kb.calls)
	}
	call := f.kb.calls[0]
	if call.vaultType != domvault.TypeGraph || call.vaultID != view.Vault.ID() {
		t.Fatalf("kb create call = %+v", call)
	}
	if len(call.docNames) != 3 {
		t.Fatalf("kb create got %d documents", len(call.docNames))
	}
	if len(f.state.blobs) != 3 {
		t.Fatalf("got %d blobs", len(f.state.blobs))
	}
}

func TestCreateVaultNoFiles(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "empty batch", domvault.TypeGraph, nil)
	if !errors.Is(err, domain.ErrNoFiles) {
		t.Fatalf("err = %v", err)
	}
	if len(f.state.vaults) != 0 {
		t.Fatal("no vault may be created without files")
	}
	if len(f.kb.calls) != 0 {
		t.Fatal("kb must not be called")
	}
}

func TestCreateVaultUnsupportedFileRollsBack(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "mixed", domvault.TypeVector, files("a.txt", "virus.exe", "b.txt"))
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("err = %v", err)
	}

	if len(f.state.vaults) != 0 || len(f.state.docs) != 0 {
		t.Fatal("vault and documents must be rolled back")
	}
	if len(f.state.blobs) != 0 {
		t.Fatal("blobs must be rolled back")
	}
	// Both a.txt (before the unsupported file) and b.txt (after it) were
	// stored; rollback must cover both blobs.
	if len(f.blobs.deleted) != 2 {
		t.Fatalf("rolled back %d blobs, want 2", len(f.blobs.deleted))
	}
	if len(f.kb.calls) != 0 {
		t.Fatal("kb must not be called when the batch has an unsupported file")
	}
}

func TestCreateVaultUnsupportedLastFileStillRollsBackAll(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "tail", domvault.TypeGraph, files("a.txt", "b.txt", "virus.exe"))
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("err = %v", err)
	}
	if len(f.state.blobs) != 0 {
		t.Fatalf("rollback leaked %d blob(s)", len(f.state.blobs))
	}
	if len(f.state.vaults) != 0 || len(f.state.docs) != 0 {
		t.Fatal("vault and documents must be rolled back")
	}
}

func TestCreateVaultAllEmptyRollsBack(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "blanks", domvault.TypeGraph, files("empty1.txt", "empty2.txt"))
	if !errors.Is(err, domain.ErrNoUsableDocuments) {
		t.Fatalf("err = %v", err)
	}
	if len(f.state.vaults) != 0 {
		t.Fatal("vault must be rolled back")
	}
	if len(f.kb.calls) != 0 {
		t.Fatal("kb must not be called")
	}
}

func TestCreateVaultPartialEmptyTolerated(t *testing.T) {
	f := newFixture()

	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "partial", domvault.TypeGraph, files("a.txt", "empty.txt", "b.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	if len(view.Documents) != 2 {
		t.Fatalf("got %d documents", len(view.Documents))
	}
	call := f.kb.calls[0]
	if len(call.docNames) != 2 {
		t.Fatalf("kb create got %v", call.docNames)
	}
	for _, name := range call.docNames {
		if name == "empty.txt" {
			t.Fatal("empty file leaked into the kb create call")
		}
	}
}

func TestCreateVaultStorageFailuresDropped(t *testing.T) {
	f := newFixture()

	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "flaky", domvault.TypeGraph, files("a.txt", "fail.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if len(view.Documents) != 1 || view.Documents[0].Name() != "a.txt" {
		t.Fatalf("documents = %+v", view.Documents)
	}
}

func TestCreateVaultAllStorageFailures(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "down", domvault.TypeGraph, files("fail1.txt", "fail2.txt"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrNoUsableDocuments) {
		t.Fatalf("storage failures must surface as a server error, got %v", err)
	}
	if len(f.state.vaults) != 0 {
		t.Fatal("vault must be rolled back")
	}
}

func TestCreateVaultKBFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.kb.createErr = fmt.Errorf("status 500: %w", domain.ErrKnowledgeBase)

	_, err := f.svc.CreateVault(context.Background(), uuid.New(), "doomed", domvault.TypeVector, files("a.txt", "b.txt"))
	if !errors.Is(err, domain.ErrKnowledgeBase) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "vector") {
		t.Fatalf("error must name the backend: %v", err)
	}

	if len(f.state.vaults) != 0 || len(f.state.docs) != 0 || len(f.state.blobs) != 0 {
		t.Fatal("everything must be rolled back after a kb failure")
	}
}

func TestAddDocumentHappyPath(t *testing.T) {
	f := newFixture()
	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeGraph, files("a.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	added, err := f.svc.AddDocument(context.Background(), view.Vault.ID(), domingest.File{Name: "b.txt", Content: []byte("more")})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	// The hydrated view reflects both the original and the new document.
	if added.Vault.ID() != view.Vault.ID() || len(added.Documents) != 2 {
		t.Fatalf("view = %+v", added)
	}
	last := f.kb.calls[len(f.kb.calls)-1]
	if last.op != "add_document" || last.vaultType != domvault.TypeGraph {
		t.Fatalf("kb call = %+v", last)
	}
	if _, ok := f.state.docs[last.docID]; !ok {
		t.Fatal("document record missing")
	}
}

func TestAddDocumentVaultNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AddDocument(context.Background(), uuid.New(), domingest.File{Name: "a.txt", Content: []byte("x")})
	if !errors.Is(err, domain.ErrVaultNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddDocumentUnsupported(t *testing.T) {
	f := newFixture()
	view, _ := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeGraph, files("a.txt"))
	before := len(f.state.docs)

	_, err := f.svc.AddDocument(context.Background(), view.Vault.ID(), domingest.File{Name: "x.exe", Content: []byte("x")})
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("err = %v", err)
	}
	if len(f.state.docs) != before {
		t.Fatal("no document may be stored")
	}
}

func TestAddDocumentKBFailureCompensates(t *testing.T) {
	f := newFixture()
	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeGraph, files("a.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	f.kb.addErr = fmt.Errorf("status 502: %w", domain.ErrKnowledgeBase)
	before := len(f.state.docs)

	_, err = f.svc.AddDocument(context.Background(), view.Vault.ID(), domingest.File{Name: "b.txt", Content: []byte("x")})
	if !errors.Is(err, domain.ErrKnowledgeBase) {
		t.Fatalf("err = %v", err)
	}

	if len(f.state.docs) != before {
		t.Fatal("the just-written document must be compensated away")
	}
	// The vault itself survives.
	if _, ok := f.state.vaults[view.Vault.ID()]; !ok {
		t.Fatal("vault must not be touched by add-document compensation")
	}
}

func TestDeleteVault(t *testing.T) {
	f := newFixture()
	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeVector, files("a.txt", "b.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}

	if err := f.svc.DeleteVault(context.Background(), view.Vault.ID()); err != nil {
		t.Fatalf("DeleteVault: %v", err)
	}

	if len(f.state.vaults) != 0 || len(f.state.docs) != 0 || len(f.state.blobs) != 0 {
		t.Fatal("local state must be fully deleted")
	}
	if len(f.runner.submitted) != 1 || f.runner.submitted[0] != "kb_drop" {
		t.Fatalf("submitted = %v", f.runner.submitted)
	}
	last := f.kb.calls[len(f.kb.calls)-1]
	if last.op != "drop" || last.vaultID != view.Vault.ID() || last.vaultType != domvault.TypeVector {
		t.Fatalf("kb call = %+v", last)
	}
}

func TestDeleteVaultNotFound(t *testing.T) {
	f := newFixture()

	err := f.svc.DeleteVault(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrVaultNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(f.runner.submitted) != 0 {
		t.Fatal("no task may be enqueued for a missing vault")
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture()
	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeGraph, files("a.txt", "b.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	target := view.Documents[0]

	if err := f.svc.DeleteDocument(context.Background(), view.Vault.ID(), target.ID()); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, ok := f.state.docs[target.ID()]; ok {
		t.Fatal("document record must be deleted")
	}
	if _, ok := f.state.blobs[target.ID()]; ok {
		t.Fatal("blob must be deleted")
	}
	if len(f.state.docs) != 1 {
		t.Fatal("sibling document must survive")
	}
	if len(f.runner.submitted) != 1 || f.runner.submitted[0] != "kb_delete_document" {
		t.Fatalf("submitted = %v", f.runner.submitted)
	}
	last := f.kb.calls[len(f.kb.calls)-1]
	if last.op != "delete_document" || last.docID != target.ID() {
		t.Fatalf("kb call = %+v", last)
	}
}

func TestDeleteDocumentWrongVault(t *testing.T) {
	f := newFixture()
	a, _ := f.svc.CreateVault(context.Background(), uuid.New(), "a", domvault.TypeGraph, files("a.txt"))
	b, _ := f.svc.CreateVault(context.Background(), uuid.New(), "b", domvault.TypeGraph, files("b.txt"))

	err := f.svc.DeleteDocument(context.Background(), a.Vault.ID(), b.Documents[0].ID())
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(f.state.docs) != 2 {
		t.Fatal("nothing may be deleted")
	}
}

func TestRenameVault(t *testing.T) {
	f := newFixture()
	view, _ := f.svc.CreateVault(context.Background(), uuid.New(), "old", domvault.TypeGraph, files("a.txt"))

	renamed, err := f.svc.RenameVault(context.Background(), view.Vault.ID(), "new")
	if err != nil {
		t.Fatalf("RenameVault: %v", err)
	}
	if renamed.Name() != "new" {
		t.Fatalf("name = %q", renamed.Name())
	}

	if _, err := f.svc.RenameVault(context.Background(), view.Vault.ID(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestListUserVaults(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	_, _ = f.svc.CreateVault(context.Background(), userID, "one", domvault.TypeGraph, files("a.txt"))
	_, _ = f.svc.CreateVault(context.Background(), userID, "two", domvault.TypeVector, files("b.txt"))
	_, _ = f.svc.CreateVault(context.Background(), uuid.New(), "other", domvault.TypeGraph, files("c.txt"))

	vaults, err := f.svc.ListUserVaults(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListUserVaults: %v", err)
	}
	if len(vaults) != 2 {
		t.Fatalf("got %d vaults", len(vaults))
	}
}

func TestDownloadDocument(t *testing.T) {
	f := newFixture()
	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "base", domvault.TypeGraph, files("a.txt"))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	target := view.Documents[0]

	name, raw, err := f.svc.DownloadDocument(context.Background(), target.ID())
	if err != nil {
		t.Fatalf("DownloadDocument: %v", err)
	}
	if name != "a.txt" || string(raw) != "raw a.txt" {
		t.Fatalf("name = %q, raw = %q", name, raw)
	}

	if _, _, err := f.svc.DownloadDocument(context.Background(), uuid.New()); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateVaultLargeBatchAllSlotsFilled(t *testing.T) {
	f := newFixture()

	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("doc-%02d.txt", i)
	}

	view, err := f.svc.CreateVault(context.Background(), uuid.New(), "bulk", domvault.TypeGraph, files(names...))
	if err != nil {
		t.Fatalf("CreateVault: %v", err)
	}
	if len(view.Documents) != 50 {
		t.Fatalf("got %d documents", len(view.Documents))
	}
	if len(f.kb.calls[0].docNames) != 50 {
		t.Fatalf("kb create got %d documents", len(f.kb.calls[0].docNames))
	}
}
