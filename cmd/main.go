package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docuquest/internal/chromemdb"
	"docuquest/internal/config"
	"docuquest/internal/embedding"
	"docuquest/internal/generator"
	"docuquest/internal/helper"
	"docuquest/internal/llmservice"
	"docuquest/internal/metrics"
	"docuquest/internal/quiz"
	"docuquest/internal/rag"
	"docuquest/internal/server"
	"docuquest/internal/session"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Path to the document file")
	more := flag.String("more", "", "Comma separated difficulties to request more questions for, e.g. basic,advanced")
	serve := flag.Bool("serve", false, "Serve the JSON API")
	flag.Parse()

	cfg := loadConfig(*configPath)
	setupLogger(cfg.Log)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Int("errors", len(errs)).Msg("Invalid config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	if *filePath != "" && *serve {
		log.Fatal().Msg("Please provide either a document file using the -file flag or -serve, but not both")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("docuquest")
	store := session.NewStore(cfg.Quiz.MaxSessions)
	source, model := buildSource(ctx, cfg, m, store)
	svc := quiz.NewService(store, source, m, cfg.Quiz)

	switch {
	case *serve:
		if err := helper.CreateFolder(cfg.Server.UploadDir); err != nil {
			log.Fatal().Err(err).Msg("Error creating upload folder")
		}
		if err := server.NewServer(svc, m, model, cfg.Server).ListenAndServe(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	case *filePath != "":
		quizFile(ctx, svc, *filePath, *more)
	default:
		log.Fatal().Msg("Please provide either a document file using the -file flag or -serve")
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg
	}
	if path == configFilePath && errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		cfg, err = config.LoadConfig("")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	return cfg
}

func setupLogger(logConfig config.LogConfig) {
	level, err := zerolog.ParseLevel(logConfig.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !logConfig.Console {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	}
}

// buildSource returns the heuristic generator, wrapped behind the model
// source when one is configured. The second result is nil without a model.
func buildSource(ctx context.Context, cfg *config.Config, m *metrics.Metrics, store *session.Store) (generator.Source, server.Readiness) {
	heuristic := generator.NewHeuristic()
	if !cfg.LLM.Enabled {
		return heuristic, nil
	}

	model, err := llmservice.NewModel(&cfg.LLM)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing LLM, using heuristic generator only")
		return heuristic, nil
	}
	embedder, err := embedding.NewOllamaEmbedder(&cfg.Embed)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing embedder, using heuristic generator only")
		return heuristic, nil
	}

	index := chromemdb.NewSentenceIndex(embedding.NewEmbeddingFunc(embedder))
	store.OnEvict(func(id string) {
		if err := index.Delete(id); err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("Error dropping sentence index")
		}
	})
	ragService := rag.NewService(model, index, cfg.LLM)
	ragService.Start(ctx)

	return &rag.FallbackSource{
		Primary:    ragService,
		Fallback:   heuristic,
		Timeout:    cfg.LLM.ReadyTimeout,
		OnFallback: m.RecordFallback,
	}, ragService
}

func quizFile(ctx context.Context, svc *quiz.Service, filePath, more string) {
	doc, err := svc.Ingest(ctx, filePath, "")
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Error ingesting document")
	}

	log.Info().Str("document_id", doc.ID).Msg("Quiz: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(doc)

	if more == "" {
		return
	}
	for _, difficulty := range strings.Split(more, ",") {
		batch, err := svc.More(ctx, doc.ID, strings.TrimSpace(difficulty))
		if err != nil {
			log.Error().Err(err).Str("difficulty", difficulty).Msg("Error generating more questions")
			continue
		}
		log.Info().Str("difficulty", difficulty).Int("total", batch.TotalCount).Msg("More: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		helper.PrettyPrint(batch)
	}
}
