package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/japaniel/wordmedia/pkg/config"
	"github.com/japaniel/wordmedia/pkg/db"
	"github.com/japaniel/wordmedia/pkg/db/pgstore"
	"github.com/japaniel/wordmedia/pkg/ingest"
	"github.com/japaniel/wordmedia/pkg/logger"
	"github.com/japaniel/wordmedia/pkg/media"
	"github.com/japaniel/wordmedia/pkg/search"
	"github.com/japaniel/wordmedia/pkg/vocab"
	"github.com/urfave/cli/v2"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	def := config.Default()
	app := &cli.App{
		Name:  "wordmedia",
		Usage: "Attach Pexels images to every word of a vocabulary plan",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Vocabulary CSV file", Value: def.InputPath},
			&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "SQLite database path or postgres:// URL", Value: def.DBPath},
			&cli.StringFlag{Name: "media-dir", Aliases: []string{"m"}, Usage: "Directory for downloaded images", Value: def.MediaDir},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Examine at most N rows (0 = all)", Value: def.Limit},
			&cli.IntFlag{Name: "per-query", Usage: "Images requested per word", Value: def.PerQuery},
			&cli.StringFlag{Name: "search-url", Usage: "Pexels search endpoint", Value: def.SearchURL},
			&cli.StringFlag{Name: "api-key", Usage: "Pexels API key", EnvVars: []string{"PEXELS_API_KEY"}},
			&cli.DurationFlag{Name: "timeout", Usage: "Per request HTTP timeout", Value: def.HTTPTimeout},
			&cli.StringFlag{Name: "log-mode", Usage: "Log encoding (dev, prod)", Value: def.LogMode},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Config{
				InputPath:   c.String("input"),
				DBPath:      c.String("db"),
				MediaDir:    c.String("media-dir"),
				Limit:       c.Int("limit"),
				PerQuery:    c.Int("per-query"),
				SearchURL:   c.String("search-url"),
				APIKey:      c.String("api-key"),
				HTTPTimeout: c.Duration("timeout"),
				LogMode:     c.String("log-mode"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()
			log = log.With("run_id", uuid.NewString())

			if err := run(c.Context, cfg, log); err != nil {
				log.Error("Run failed", "error", err)
				return err
			}
			return nil
		},
	}

	// Setup context for graceful shutdown between rows
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wordmedia: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// gateway is ingest.Gateway plus the Close both store flavours offer.
type gateway interface {
	ingest.Gateway
	Close() error
}

func openGateway(ctx context.Context, dsn string, log *logger.Logger) (gateway, func(), error) {
	if pgstore.IsDSN(dsn) {
		s, err := pgstore.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Database initialized", "driver", "postgres")
		return s, func() {}, nil
	}

	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, &db.StorageError{Op: "open", Err: err}
	}
	// One writer, one connection; keeps the lazily opened transaction and the
	// dedup reads on the same connection.
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	log.Info("Database initialized", "driver", "sqlite3", "path", dsn)
	return db.NewStore(conn), func() { conn.Close() }, nil
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	src, err := vocab.OpenCSV(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	gw, closeDB, err := openGateway(ctx, cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer closeDB()
	defer gw.Close()

	assets, err := media.NewFileStore(cfg.MediaDir, cfg.HTTPTimeout)
	if err != nil {
		return fmt.Errorf("prepare media dir: %w", err)
	}
	searcher := search.NewPexelsClient(cfg.SearchURL, cfg.APIKey, cfg.HTTPTimeout)

	p, err := ingest.NewPipeline(gw, searcher, assets, log, ingest.Config{PerQuery: cfg.PerQuery})
	if err != nil {
		return err
	}

	log.Info("Processing vocabulary", "input", cfg.InputPath, "media_dir", cfg.MediaDir, "limit", cfg.Limit)
	st, err := p.Run(ctx, src, cfg.Limit)
	if err != nil {
		return err
	}
	fmt.Printf("Processing complete. Examined %d rows, inserted %d, skipped %d, saved %d images.\n",
		st.Examined, st.Inserted, st.Skipped, st.Downloaded)
	return nil
}
