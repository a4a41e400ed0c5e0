package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/config"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/factory"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/logging"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/ports"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/ratelimit"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
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
	if err := container.Provide(factory.NewScorerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}

	// Register rewrite client
	if err := container.Provide(func(f *factory.RewriterFactory) (core.RewriteClient, error) {
		return f.CreateRewriteClient()
	}); err != nil {
		return nil, err
	}

	// Register score provider and its cache
	if err := container.Provide(func(f *factory.ScorerFactory) (core.ScoreProvider, core.ScoreCache, error) {
		return f.CreateScoreProvider()
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

	// Register the shared call gate
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

	// Register email gateway
	if err := container.Provide(func(f *factory.GatewayFactory) (ports.EmailGateway, error) {
		return f.CreateEmailGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
