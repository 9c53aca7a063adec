package health

import "context"

// Pinger checks connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}
