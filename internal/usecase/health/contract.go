package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks an external model backend (embedding, generation).
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexStatus exposes the published index state.
type IndexStatus interface {
	Ready() bool
	Count() int
	Version() uint64
}
