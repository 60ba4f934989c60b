package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/japaniel/wordmedia/pkg/db"
	"github.com/japaniel/wordmedia/pkg/logger"
	"github.com/japaniel/wordmedia/pkg/media"
	"github.com/japaniel/wordmedia/pkg/search"
	"github.com/japaniel/wordmedia/pkg/vocab"
)

// DefaultPerQuery is the number of images requested per word.
const DefaultPerQuery = 10

// Config holds the pipeline tunables.
type Config struct {
	// PerQuery is the candidate count requested from the Searcher. <= 0 means DefaultPerQuery.
	PerQuery int
}

// Stats summarizes one Run.
type Stats struct {
	Examined        int
	Skipped         int
	Inserted        int
	Downloaded      int
	FailedDownloads int
	SearchFailures  int
}

// Pipeline turns vocabulary records into media_mapping rows, one record at a time.
type Pipeline struct {
	gateway  Gateway
	searcher Searcher
	assets   AssetStore
	log      *logger.Logger
	perQuery int
}

// NewPipeline wires the three adapters. A nil logger discards output.
func NewPipeline(gw Gateway, searcher Searcher, assets AssetStore, log *logger.Logger, cfg Config) (*Pipeline, error) {
	if gw == nil {
		return nil, ErrGatewayRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if assets == nil {
		return nil, ErrAssetStoreRequired
	}
	if log == nil {
		log = logger.NewNop()
	}
	perQuery := cfg.PerQuery
	if perQuery <= 0 {
		perQuery = DefaultPerQuery
	}
	return &Pipeline{
		gateway:  gw,
		searcher: searcher,
		assets:   assets,
		log:      log,
		perQuery: perQuery,
	}, nil
}

// Run examines records from src in order until src is exhausted or, when limit > 0,
// until limit records were examined (skipped ones included). Search and download
// failures stay inside their record; storage and input errors end the run.
func (p *Pipeline) Run(ctx context.Context, src vocab.Source, limit int) (Stats, error) {
	var st Stats
	for num := 0; ; num++ {
		if limit > 0 && num >= limit {
			p.log.Info("Reached row limit", "limit", limit)
			break
		}
		// Records are never interrupted half way; cancellation is honored between them.
		if err := ctx.Err(); err != nil {
			return st, err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read row %d: %w", num, err)
		}
		st.Examined++

		if err := p.processRecord(ctx, num, rec, &st); err != nil {
			return st, err
		}
	}

	p.log.Info("Run complete",
		"examined", st.Examined,
		"skipped", st.Skipped,
		"inserted", st.Inserted,
		"downloaded", st.Downloaded,
		"failed_downloads", st.FailedDownloads,
		"search_failures", st.SearchFailures,
	)
	return st, nil
}

func (p *Pipeline) processRecord(ctx context.Context, num int, rec vocab.Record, st *Stats) error {
	word := rec.EnglishTranslation
	log := p.log.With("row", num, "english_translation", word)

	exists, err := p.gateway.Exists(ctx, word)
	if err != nil {
		return fmt.Errorf("dedup check for %q: %w", word, err)
	}
	if exists {
		log.Info("Skipping word")
		st.Skipped++
		return nil
	}

	candidates, err := p.searcher.Search(ctx, word, p.perQuery)
	if err != nil {
		log.Error("Error fetching images", "error", err)
		st.SearchFailures++
		candidates = nil
	}
	log.Info("Found images", "count", len(candidates))

	paths := p.saveImages(ctx, log, word, candidates, st)

	if err := ctx.Err(); err != nil {
		log.Warn("Interrupted before insert; row will be retried next run", "error", err)
		return err
	}

	m := db.MediaMapping{
		Letter:              rec.Letter,
		HebrewWord:          rec.HebrewWord,
		HebrewWordWithNikud: rec.HebrewWordWithNikud,
		EnglishTranslation:  word,
		GermanTranslation:   rec.GermanTranslation,
		FilePaths:           paths,
	}
	if err := p.gateway.Insert(ctx, m); err != nil {
		if rbErr := p.gateway.Rollback(ctx); rbErr != nil {
			log.Error("Rollback failed", "error", rbErr)
		}
		return fmt.Errorf("insert %q: %w", word, err)
	}
	log.Info("Inserted row into database", "file_count", len(paths))

	if err := p.gateway.Commit(ctx); err != nil {
		return fmt.Errorf("commit %q: %w", word, err)
	}
	st.Inserted++
	return nil
}

// saveImages stores each candidate in order and returns the locations that
// succeeded. A failed candidate is logged and left out; it keeps its suffix, so
// later files are not renumbered.
func (p *Pipeline) saveImages(ctx context.Context, log *logger.Logger, word string, candidates []search.Candidate, st *Stats) []string {
	paths := make([]string, 0, len(candidates))
	if len(candidates) == 0 {
		return paths
	}
	log.Info("Saving images", "count", len(candidates))
	for i, c := range candidates {
		name := media.FileName(word, i+1)
		loc, err := p.assets.Store(ctx, c, name)
		if err != nil {
			log.Error("Error downloading image", "url", c.SourceURL, "error", err)
			st.FailedDownloads++
			continue
		}
		log.Info("Saved image", "url", c.SourceURL, "path", loc)
		paths = append(paths, loc)
		st.Downloaded++
	}
	return paths
}
