package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grading-coordinator/internal/config"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/infra/adapters/assessment"
	"grading-coordinator/internal/infra/adapters/feedback"
	"grading-coordinator/internal/infra/api"
	"grading-coordinator/internal/infra/api/apiv1"
	pg "grading-coordinator/internal/infra/db/postgres"
	"grading-coordinator/internal/infra/logging"
	"grading-coordinator/internal/infra/metrics"
	red "grading-coordinator/internal/infra/redis"
	"grading-coordinator/internal/infra/renderer"
	"grading-coordinator/internal/infra/storage"
	"grading-coordinator/internal/infra/worker"
	"grading-coordinator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI adapters when no keys set)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Object storage ----
	store, err := storage.NewMinioStore(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("object storage")
	}

	// ---- Repositories ----
	jobRepo := pg.NewJobRepoCacheDecorator(pg.NewJobRepo(pool, tm), redisClient, cfg.Redis.TTL)
	refRepo := pg.NewReferenceRepo(pool)

	// ---- AI adapters (Gemini preferred for assessment, OpenAI for feedback) ----
	var assessor adapter.AssessmentService
	switch {
	case cfg.AI.GeminiKey != "":
		assessor, err = assessment.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.AssessModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.AssessModel).Msg("assessment adapter: gemini")
	case cfg.AI.OpenAIKey != "":
		assessor, err = assessment.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.AssessModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.AssessModel).Msg("assessment adapter: openai")
	case cfg.Runtime.Dev:
		assessor = assessment.NewNoopAdapter()
		logger.Warn().Msg("assessment adapter: noop (dev)")
	default:
		logger.Fatal().Msgf("no assessment provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}
	assessor = assessment.NewMetered(assessor, cfg.AI.CallTimeout, cfg.AI.MaxPromptTokens)

	var synthesizer adapter.FeedbackSynthesizer
	if cfg.AI.OpenAIKey != "" {
		synthesizer, err = feedback.NewOpenAISynthesizer(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.FeedbackModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("feedback adapter")
		}
		logger.Info().Str("model", cfg.AI.FeedbackModel).Msg("feedback adapter: openai")
	} else if cfg.Runtime.Dev {
		synthesizer = feedback.NewNoopSynthesizer()
		logger.Warn().Msg("feedback adapter: noop (dev)")
	} else {
		logger.Fatal().Msgf("no feedback provider configured: set ai.openai_key in %s", *cfgPath)
	}

	// ---- Use cases ----
	reportRenderer := renderer.NewStoreRenderer(store, logger)
	jobUC := usecase.NewJobUseCase(jobRepo, refRepo, store, logger)
	overrideUC := usecase.NewOverrideUseCase(jobRepo, logger)
	reassessUC := usecase.NewReassessUseCase(jobRepo, refRepo, assessor,
		usecase.ReassessPolicy{PreserveOverrides: cfg.Grading.PreserveOverrides}, logger)
	feedbackUC := usecase.NewFeedbackUseCase(jobRepo, synthesizer, logger)
	reportUC := usecase.NewReportUseCase(jobRepo, reportRenderer, store, cfg.Grading.ReportURLExpiry, logger)

	// ---- Background assessment worker ----
	wpool := worker.NewPool(cfg.Worker.Workers, logger)
	wpool.Start(ctx)
	defer wpool.Stop()
	processor := worker.NewAssessmentProcessor(jobRepo, refRepo, jobUC, assessor, cfg.Worker.PollInterval, logger)
	go processor.Start(ctx, wpool)

	// ---- HTTP server ----
	r := chi.NewRouter()
	srv := apiv1.NewServer(jobUC, overrideUC, reassessUC, feedbackUC, reportUC, refRepo, logger)
	apiv1.RegisterAPIV1(r, srv)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := redisClient.Ping(req.Context()); err != nil {
			http.Error(w, "degraded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := api.Chain(r,
		api.TraceID(),
		api.RequestLog(logger),
		api.Recover(logger),
		api.Timeout(cfg.Server.RequestTimeout),
	)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: handler}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
