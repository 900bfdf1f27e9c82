package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "review_ingest/internal/adapters/http_server"
	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/adapters/ocr"
	redisad "review_ingest/internal/adapters/redis"
	"review_ingest/internal/app"
	"review_ingest/internal/shared"
	mysqlrepo "review_ingest/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ocrClient, err := ocr.New(cfg.OCRBase, cfg.OCRKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OCR client")
	}

	ing := app.NewIngestionService(repo, app.NormalizerConfig{})
	ext := app.NewExtractionService(ocrClient, cache, cfg.CacheTTL)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Ingest: ing, Extract: ext, Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
