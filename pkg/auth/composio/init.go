package composio

import (
	"github.com/ajitpratap0/weft/pkg/auth"
	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/platform"
)

func init() {
	// Register the Composio auth provider in the global registry
	_ = auth.Register(platform.ProviderComposio, func(cfg *config.Config, httpClient *clients.HTTPClient) (auth.Provider, error) {
		return New(cfg.Providers.Composio, httpClient)
	})
}
