package catalog

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Source supplies raw catalog records in insertion order.
type Source interface {
	FetchProducts(ctx context.Context) ([]product.Record, error)
}
