package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vlstore/internal/config"
	"vlstore/internal/infra"
	"vlstore/internal/repository"
	"vlstore/internal/router"
	"vlstore/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty console in development, JSON in production
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Worker handlers are wired here (composition root) so the pool has
	// access to every infrastructure dependency.
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)
	gerador := infra.NewComprovantePDF(cfg.PDFStoragePath, cfg.StoreName)

	vendaRepo := repository.NewVendaRepository(db)
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
	pool.Register(worker.QueueComprovante, worker.NewComprovanteWorker(vendaRepo, gerador, dispatcher))
	mailer := infra.NewMailer(cfg)
	if mailer.Configurado() {
		pool.Register(worker.QueueEmail, worker.NewEmailWorker(mailer, smtpCB, cfg.StoreName))
	} else {
		log.Warn().Msg("SMTP_HOST not set; receipt e-mails will stay queued")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, db, rdb, smtpCB),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return worker.NewReprocessador(vendaRepo, dispatcher, rdb).Run(gctx) })
	g.Go(func() error {
		log.Info().Msgf("VL Store backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Graceful shutdown on SIGINT / SIGTERM or when either side fails
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server exited")
}
