package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/app"
	"review_ingest/internal/shared"
	mysqlrepo "review_ingest/internal/storage/mysql"
)

// Bulk file importer: takes one or more CSV/Excel files on the command line
// and runs them through the same pipeline the API uses.
func main() {
	owner := flag.Int64("owner", 0, "owner (user) id the reviews belong to")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	files := flag.Args()
	if *owner <= 0 || len(files) == 0 {
		log.Fatal().Msg("usage: ingestor -owner <id> <file>...")
	}

	log.Info().
		Int64("owner", *owner).
		Int("workers", cfg.Workers).
		Int("files", len(files)).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	ing := app.NewIngestionService(repo, app.NormalizerConfig{})

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, path := range files {
		path := path

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Str("file", path).Err(err).Msg("read failed")
				return
			}
			out, err := ing.Ingest(ctx, data, filepath.Base(path), *owner)
			if err != nil {
				log.Warn().Str("file", path).Err(err).Msg("ingest failed")
				return
			}
			log.Info().
				Str("file", path).
				Int("total", out.TotalRows).
				Int("created", out.Created).
				Int("skipped", out.Skipped).
				Int("invalid", out.ValidationErrors).
				Msg("ingest ok")
		}(path)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
