package paymentprovider

import (
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/paymentprovider/asaas"
	"github.com/uaizouk/backoffice/internal/paymentprovider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("paymentprovider",
	fx.Provide(Provide),
)

// Provide builds the provider client. Without an API key it yields a nil
// client and only jobs that need the provider fail.
func Provide(cfg config.Config, log *zap.Logger) (domain.Client, error) {
	if cfg.Provider.APIKey == "" {
		log.Warn("PROVIDER_API_KEY not set, provider-backed jobs are disabled")
		return nil, nil
	}
	client, err := asaas.New(asaas.Config{
		BaseURL:          cfg.Provider.BaseURL,
		APIKey:           cfg.Provider.APIKey,
		Timeout:          cfg.Provider.Timeout,
		MinInterval:      cfg.Provider.MinInterval,
		CustomerCacheTTL: cfg.Provider.CustomerCacheTTL,
		UserAgent:        cfg.AppName + "/" + cfg.AppVersion,
	}, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
