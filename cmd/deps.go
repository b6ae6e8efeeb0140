package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pingjob/matcher/internal/ai"
	"github.com/pingjob/matcher/internal/ai/gemini"
	"github.com/pingjob/matcher/internal/logger"
	"github.com/pingjob/matcher/internal/objectstore"
	"github.com/pingjob/matcher/internal/parsing"
	"github.com/pingjob/matcher/internal/pipeline"
	"github.com/pingjob/matcher/internal/secrets"
)

const geminiProvider = "gemini"

// setup builds the logger and decodes the configuration shared by every command.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	return logger, config
}

func newCompleter(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != geminiProvider {
		return nil, &ai.ConfigurationError{Setting: "ai.provider", Message: fmt.Sprintf("unsupported ai provider %q", cfg.Provider)}
	}

	gem := cfg.Gemini
	if gem == nil {
		gem = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gem.APIKey,
		File:  gem.APIKeyFile,
	})
	if err != nil {
		if errors.Is(err, secrets.ErrNotConfigured) {
			return nil, &ai.ConfigurationError{
				Setting: "ai.gemini.api-key",
				Message: fmt.Sprintf("%v (set GEMINI_API_KEY or GEMINI_API_KEY_FILE)", err),
			}
		}
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:          gem.Model,
		MaxLogLength:   cfg.MaxLogLength,
		ThinkingBudget: gem.ThinkingBudget,
	}, log)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log).Info("completion client ready",
		zap.String(logger.FieldProvider, geminiProvider),
		zap.String(logger.FieldModel, generator.Model()),
		zap.Int32("thinking_budget", gem.ThinkingBudget),
	)

	return generator, nil
}

func newParser(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*parsing.Parser, error) {
	completer, err := newCompleter(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return parsing.NewParser(completer, log, parsing.Options{
		Timeout:      cfg.Timeout,
		MaxLogLength: cfg.MaxLogLength,
	}), nil
}

// newStore returns nil when no object storage is configured.
func newStore(ctx context.Context, cfg *StorageConfig, log *zap.Logger) (*objectstore.Store, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, nil
	}

	s3 := cfg.S3
	if s3.Endpoint == "" && s3.Bucket == "" && s3.AccessKey == "" {
		return nil, nil
	}

	return objectstore.New(ctx, *s3, log)
}

func newScorer(ctx context.Context, config *Config, concurrency int, log *zap.Logger) (*pipeline.Scorer, error) {
	parser, err := newParser(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}

	store, err := newStore(ctx, config.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("building object store: %w", err)
	}

	opts := pipeline.Options{Concurrency: concurrency}
	if store == nil {
		return pipeline.NewScorer(parser, nil, log, opts), nil
	}
	return pipeline.NewScorer(parser, store, log, opts), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
