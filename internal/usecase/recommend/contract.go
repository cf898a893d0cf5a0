package recommend

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain/recommend"
	"github.com/kailas-cloud/prodsearch/internal/vectorindex"
)

// ProfileStore reads trained recommendation factors.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (recommend.Profile, error)
	ItemFactors(ctx context.Context) (map[string][]float32, error)
}

// IndexProvider exposes the published snapshot.
type IndexProvider interface {
	Snapshot() (*vectorindex.Snapshot, error)
}
