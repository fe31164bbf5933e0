package pipedream

import (
	"github.com/ajitpratap0/weft/pkg/auth"
	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/platform"
)

func init() {
	// Register the Pipedream auth provider in the global registry
	_ = auth.Register(platform.ProviderPipedream, func(cfg *config.Config, httpClient *clients.HTTPClient) (auth.Provider, error) {
		return New(cfg.Providers.Pipedream, httpClient)
	})
}
