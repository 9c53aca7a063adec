package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func TestCheckHealthy(t *testing.T) {
	svc := NewService(&mockPinger{})
	if err := svc.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckUnhealthy(t *testing.T) {
	cause := errors.New("connection refused")
	svc := NewService(&mockPinger{err: cause})

	err := svc.Check(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
}
