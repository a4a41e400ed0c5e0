package factory

import (
	"fmt"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/httpapi"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/adapters/smtpgw"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/config"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/ports"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/whitelist"
	"go.uber.org/zap"
)

// GatewayFactory creates email gateways based on configuration
type GatewayFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.GuardService
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, service *core.GuardService) *GatewayFactory {
	return &GatewayFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailGateway creates an email gateway based on the configuration
func (f *GatewayFactory) CreateEmailGateway() (ports.EmailGateway, error) {
	serverConfig := f.cfg.GetServer()

	switch serverConfig.GatewayType {
	case "http":
		return httpapi.NewServer(f.service, f.logger, serverConfig.ListenAddress), nil
	case "smtp":
		wl := whitelist.NewChecker(f.cfg.GetStringSlice("spam.whitelisted_domains"), f.logger)
		return smtpgw.NewGateway(
			f.service,
			wl,
			f.logger,
			serverConfig.SMTPListenAddress,
			serverConfig.UpstreamAddress,
			serverConfig.UpstreamPort,
			serverConfig.UpstreamEnabled,
			serverConfig.ReplaceBody,
			serverConfig.ScoreHeader,
			serverConfig.RecommendationHeader,
			serverConfig.RefinedHeader,
		), nil
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", serverConfig.GatewayType)
	}
}
