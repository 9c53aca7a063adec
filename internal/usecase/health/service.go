// Package health reports service liveness.
package health

import (
	"context"
	"fmt"
)

// Service checks the service's critical dependencies.
type Service struct {
	db Pinger
}

// NewService creates a health service.
func NewService(db Pinger) *Service {
	return &Service{db: db}
}

// Check verifies the metadata store is reachable.
func (s *Service) Check(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}
