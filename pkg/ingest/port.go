package ingest

import (
	"context"

	"github.com/japaniel/wordmedia/pkg/db"
	"github.com/japaniel/wordmedia/pkg/media"
	"github.com/japaniel/wordmedia/pkg/search"
)

// Gateway is the durable store. Insert must not commit; the pipeline calls Commit
// once per inserted record.
type Gateway interface {
	Exists(ctx context.Context, englishTranslation string) (bool, error)
	Insert(ctx context.Context, m db.MediaMapping) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Searcher finds candidate images for a query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]search.Candidate, error)
}

// AssetStore saves one candidate under name and returns where it ended up.
type AssetStore interface {
	Store(ctx context.Context, c search.Candidate, name string) (string, error)
}

var (
	_ Gateway    = (*db.Store)(nil)
	_ Searcher   = (*search.PexelsClient)(nil)
	_ AssetStore = (*media.FileStore)(nil)
)
