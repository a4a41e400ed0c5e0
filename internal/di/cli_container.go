package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/classifier"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/config"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/factory"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/logging"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/ratelimit"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Rewrite provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Classifier flags
	ClassifierEndpoint string

	// Refinement flags
	SpamThreshold   float64
	AcceptThreshold float64
	MaxAttempts     int

	// Input flags
	InputFile  string
	Batch      bool
	JSONOut    bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Rewrite provider flags
	flag.StringVar(&flags.Provider, "provider", "gemini", "Rewrite provider (bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens per rewrite response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.4, "Temperature for rewrite generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for rewrite generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to the rewrite provider")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Classifier flags
	flag.StringVar(&flags.ClassifierEndpoint, "classifier-endpoint", "http://127.0.0.1:5001/score", "Spam classifier service endpoint")

	// Refinement flags
	flag.Float64Var(&flags.SpamThreshold, "threshold", 0.5, "Probability above which an email is flagged as spam")
	flag.Float64Var(&flags.AcceptThreshold, "accept-threshold", 0.6, "Score below which a candidate is accepted without refinement")
	flag.IntVar(&flags.MaxAttempts, "max-attempts", 5, "Maximum rewrite attempts per email")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Batch, "batch", false, "Treat input as multiple emails separated by blank lines")
	flag.BoolVar(&flags.JSONOut, "json", false, "Print results as JSON instead of text")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewRewriterFactory); err != nil {
		return nil, err
	}

	// Register rewrite client
	if err := container.Provide(func(f *factory.RewriterFactory) (core.RewriteClient, error) {
		return f.CreateRewriteClient()
	}); err != nil {
		return nil, err
	}

	// Register score provider with no cache for one-shot runs
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) (core.ScoreProvider, error) {
		classifierConfig, err := cfg.GetClassifier()
		if err != nil {
			return nil, err
		}
		return classifier.NewHTTPScorer(
			classifierConfig.Endpoint,
			classifierConfig.Timeout,
			classifierConfig.ModelVersion,
			logger,
			textProcessor,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register refinement settings
	if err := container.Provide(func(cfg *config.Config) (core.RefinementConfig, error) {
		settings, err := cfg.GetRefinement()
		if err != nil {
			return core.RefinementConfig{}, err
		}
		return core.RefinementConfig{
			AcceptThreshold:  settings.AcceptThreshold,
			MaxAttempts:      settings.MaxAttempts,
			ImprovementRatio: settings.ImprovementRatio,
			MaxRetries:       settings.MaxRetries,
			CallTimeout:      settings.CallTimeout,
		}, nil
	}); err != nil {
		return nil, err
	}

	// Register the call gate
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.CallGate, error) {
		rl, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		return ratelimit.NewGate(rl.MinInterval, rl.BackoffBase, rl.BackoffMax, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register strategy selector
	if err := container.Provide(core.NewStrategySelector); err != nil {
		return nil, err
	}

	// Register refinement orchestrator
	if err := container.Provide(core.NewOrchestrator); err != nil {
		return nil, err
	}

	// Register spam threshold
	if err := container.Provide(func(cfg *config.Config) float64 {
		return cfg.GetFloat64("spam.threshold")
	}); err != nil {
		return nil, err
	}

	// Register guard service
	if err := container.Provide(core.NewGuardService); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set rewrite provider
	v.Set("rewriter.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Set classifier and thresholds
	v.Set("classifier.endpoint", flags.ClassifierEndpoint)
	v.Set("spam.threshold", flags.SpamThreshold)
	v.Set("refinement.accept_threshold", flags.AcceptThreshold)
	v.Set("refinement.max_attempts", flags.MaxAttempts)

	return config.NewFromViper(v)
}
