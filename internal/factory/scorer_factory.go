package factory

import (
	"fmt"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/classifier"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/config"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
	"go.uber.org/zap"
)

// ScorerFactory creates score providers
type ScorerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ScorerFactory {
	return &ScorerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateScoreProvider creates the classifier client, wrapped in a caching
// decorator when caching is enabled. The returned cache is nil when caching
// is disabled; the caller owns its lifecycle.
func (f *ScorerFactory) CreateScoreProvider() (core.ScoreProvider, core.ScoreCache, error) {
	classifierConfig, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid classifier configuration: %w", err)
	}

	scorer := classifier.NewHTTPScorer(
		classifierConfig.Endpoint,
		classifierConfig.Timeout,
		classifierConfig.ModelVersion,
		f.logger,
		f.textProcessor,
	)

	cacheFactory := NewCacheFactory(f.cfg, f.logger)
	if !cacheFactory.IsCacheEnabled() {
		return scorer, nil, nil
	}

	scoreCache, err := cacheFactory.CreateScoreCache()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create score cache: %w", err)
	}
	ttl, err := cacheFactory.GetCacheTTL()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cache TTL: %w", err)
	}

	cached := classifier.NewCachedScorer(
		scorer,
		scoreCache,
		ttl,
		classifierConfig.ModelVersion,
		f.logger,
		f.textProcessor,
	)
	return cached, scoreCache, nil
}
