package domain

import (
	"context"
	"time"
)

// FragmentProvider renders the search page for a query and returns its raw
// result entries in page order.
type FragmentProvider interface {
	FetchFragments(ctx context.Context, query string) ([]ResultFragment, error)
}

// RowSink persists the offer cells (and, when set, the timestamp) of a product row.
// rowIndex is the 1-based sheet row.
type RowSink interface {
	WriteRow(ctx context.Context, rowIndex int, row ProductRow) error
}

// ProductSource supplies the product names to refresh, header excluded.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]ProductRef, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// HistoryRepository stores snapshots of the offers written for each product.
type HistoryRepository interface {
	Record(ctx context.Context, snapshot Snapshot) error
	Latest(ctx context.Context, productName string) (*Snapshot, error)
}
