package factory

import (
	"fmt"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/bedrock"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/gemini"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/openai"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/config"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
	"go.uber.org/zap"
)

// RewriterFactory creates rewrite clients
type RewriterFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRewriterFactory creates a new rewriter factory
func NewRewriterFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *RewriterFactory {
	return &RewriterFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateRewriteClient creates a rewrite client for the configured provider
func (f *RewriterFactory) CreateRewriteClient() (core.RewriteClient, error) {
	rewriterConfig := f.cfg.GetRewriter()

	switch rewriterConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateRewriteClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateRewriteClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateRewriteClient()
	default:
		return nil, fmt.Errorf("unsupported rewrite provider: %s", rewriterConfig.Provider)
	}
}
