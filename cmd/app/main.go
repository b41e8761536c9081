package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdfextract/internal/config"
	"github.com/local/pdfextract/internal/imagestore"
	"github.com/local/pdfextract/internal/limiter"
	logpkg "github.com/local/pdfextract/internal/logger"
	"github.com/local/pdfextract/internal/metrics"
	"github.com/local/pdfextract/internal/pdfsource"
	"github.com/local/pdfextract/internal/queue"
	"github.com/local/pdfextract/internal/reader"
	"github.com/local/pdfextract/internal/server"
	"github.com/local/pdfextract/internal/storage"
	"github.com/local/pdfextract/internal/store"
	"github.com/local/pdfextract/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Queue
	rq, err := queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.PollInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rq.Close()

	// Status store
	rs, err := store.NewRedisStatus(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init redis status store")
	}
	defer rs.Close()

	// Result store
	results, err := store.NewResultStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init result store")
	}
	defer results.Close()

	// Breaker and render slots
	lim, err := limiter.New(limiter.Options{RedisURL: cfg.Queue.RedisURL, MaxInflight: cfg.Worker.Concurrency})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init limiter")
	}
	defer lim.CloseClient()

	// Extraction pipeline
	extractor := reader.New(reader.Dependencies{
		Opener: pdfsource.Opener{},
		Stores: imagestore.Factory{},
	})

	// Optional S3 client, shared by the worker upload path and the result
	// archive fallback.
	var s3c *storage.S3Client
	if cfg.Storage.Upload && cfg.Storage.Bucket != "" {
		s3c, err = storage.NewS3Client(context.Background(), cfg.Storage.Bucket, cfg.Storage.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 client")
		}
	}

	// HTTP API
	srvDeps := server.Dependencies{
		Extractor: extractor,
		Queue:     rq,
		Status:    rs,
		Results:   results,
		Renders:   lim,
	}
	if s3c != nil {
		srvDeps.Archive = s3c
	}
	mux := http.NewServeMux()
	server.New(srvDeps, cfg).RegisterRoutes(mux)

	// Background worker (optional)
	var wrk *worker.Worker
	if cfg.Worker.Enabled {
		wrkDeps := worker.Dependencies{
			Queue:     rq,
			Extractor: extractor,
			Status:    rs,
			Results:   results,
			Breaker:   lim,
		}
		if s3c != nil {
			wrkDeps.Uploader = s3c
		}
		wrk = worker.New(wrkDeps, cfg)
		wrk.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Msgf("HTTP server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if wrk != nil {
		if err := wrk.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("worker shutdown timed out")
		}
	}
	fmt.Println("shutdown complete")
}
