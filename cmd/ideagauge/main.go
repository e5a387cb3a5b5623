package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ideagauge/internal/config"
	"ideagauge/internal/discussion"
	"ideagauge/internal/pipeline"
	"ideagauge/internal/provider"
	"ideagauge/internal/research"
	"ideagauge/internal/store"
)

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ideagauge",
	Short: "ideagauge - evidence-based market validation for business ideas",
	Long: `ideagauge runs a business idea through a multi-step research pipeline:
it extracts search keywords, collects real community discussions, analyzes
sentiment, researches competitors and market size, and scores the idea on
market demand and competition with letter-graded results.

Runs execute in the background; poll them with "status" and read finished
results with "report".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Store.DataDir = dataDir
		}

		zcfg := zap.NewProductionConfig()
		if cfg.Logging.Format == "text" {
			zcfg = zap.NewDevelopmentConfig()
		}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else if lvl, perr := zapcore.ParseLevel(cfg.Logging.Level); perr == nil {
			zcfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ideagauge.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the validation record directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
}

// newProvider builds the configured research model client.
func newProvider(ctx context.Context) (provider.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.LLM.Provider {
	case "gemini":
		return provider.NewGeminiClient(ctx, provider.GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.GetLLMTimeout(),
			Logger:  logger,
		})
	case "openai":
		return provider.NewOpenAIClient(provider.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.GetLLMTimeout(),
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.LLM.Provider)
	}
}

// newManager wires the full pipeline stack from configuration.
func newManager(ctx context.Context) (*pipeline.Manager, *store.Store, error) {
	client, err := newProvider(ctx)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(cfg.Store.DataDir, store.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	source := discussion.NewRedditClient(discussion.RedditConfig{
		BaseURL:      cfg.Discussion.BaseURL,
		UserAgent:    cfg.Discussion.UserAgent,
		Timeout:      cfg.GetDiscussionTimeout(),
		RequestDelay: cfg.GetRequestDelay(),
		PerQueryMax:  cfg.Discussion.PerQueryMax,
		Logger:       logger,
	})

	researcher := research.New(client, logger)
	return pipeline.NewManager(st, researcher, source, cfg.Pipeline.MaxConcurrent, logger), st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
