package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/papper-ai/vaultd/internal/db"
	"github.com/papper-ai/vaultd/internal/domain"
)

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestPutGetRoundTrip(t *testing.T) {
	repo := New(newMemKV())
	id := uuid.New()
	payload := []byte("sealed bytes")

	if err := repo.Put(context.Background(), payload, id); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q", got)
	}
}

func TestGetMissingBlob(t *testing.T) {
	repo := New(newMemKV())

	_, err := repo.Get(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteBlob(t *testing.T) {
	kv := newMemKV()
	repo := New(kv)
	id := uuid.New()
	_ = repo.Put(context.Background(), []byte("x"), id)

	if err := repo.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatal("blob must be removed")
	}
}
