package platform

import (
	"fmt"
)

// AuthProvider is the short name of an auth provider integration.
type AuthProvider string

// Known auth providers. Declaration order is the canonical ordering used
// by the compatibility resolver and everywhere providers are listed.
const (
	ProviderComposio  AuthProvider = "composio"
	ProviderPipedream AuthProvider = "pipedream"
)

// AllProviders lists every known auth provider in declaration order.
var AllProviders = []AuthProvider{
	ProviderComposio,
	ProviderPipedream,
}

// ProviderInfo describes an auth provider integration.
type ProviderInfo struct {
	ShortName AuthProvider `json:"short_name"`
	Name      string       `json:"name"`
}

var providerCatalog = map[AuthProvider]ProviderInfo{
	ProviderComposio:  {ProviderComposio, "Composio"},
	ProviderPipedream: {ProviderPipedream, "Pipedream"},
}

// LookupProvider returns the catalog entry for a provider short name.
func LookupProvider(shortName string) (ProviderInfo, bool) {
	info, ok := providerCatalog[AuthProvider(shortName)]
	return info, ok
}

// KnownProvider reports whether the short name identifies a known provider.
func KnownProvider(shortName string) bool {
	_, ok := providerCatalog[AuthProvider(shortName)]
	return ok
}

// ParseProvider converts a short name into an AuthProvider, failing on
// unknown names. Use this at input boundaries; internal code passes the
// typed constants directly.
func ParseProvider(shortName string) (AuthProvider, error) {
	if !KnownProvider(shortName) {
		return "", fmt.Errorf("unknown auth provider: %s", shortName)
	}
	return AuthProvider(shortName), nil
}
