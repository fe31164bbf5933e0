// Package compat answers compatibility questions about (source, auth
// provider) pairs using a static matrix built at compile time.
//
// The matrix is never mutated after package init, so every function here
// is safe for concurrent use without locking. Unknown source names resolve
// to "not compatible" rather than an error: callers use these answers to
// decide which auth options to show, and a false positive would surface a
// broken connection option.
package compat

import (
	"fmt"

	"github.com/ajitpratap0/weft/pkg/platform"
)

// matrix maps each auth provider to per-source support flags. Every
// provider entry must cover the same source set; init enforces this.
var matrix = map[platform.AuthProvider]map[platform.Source]bool{
	platform.ProviderComposio: {
		platform.SourceAsana:           true,
		platform.SourceBitbucket:       true,
		platform.SourceConfluence:      true,
		platform.SourceDropbox:         true,
		platform.SourceGitHub:          true,
		platform.SourceGmail:           true,
		platform.SourceGoogleCalendar:  true,
		platform.SourceGoogleDrive:     true,
		platform.SourceHubSpot:         true,
		platform.SourceJira:            true,
		platform.SourceLinear:          true,
		platform.SourceMonday:          true,
		platform.SourceNotion:          true,
		platform.SourceOneDrive:        true,
		platform.SourceOutlookCalendar: true,
		platform.SourceOutlookMail:     true,
		platform.SourcePostgreSQL:      true,
		platform.SourceSlack:           true,
		platform.SourceTodoist:         false,
		platform.SourceZendesk:         true,
	},
	platform.ProviderPipedream: {
		platform.SourceAsana:           true,
		platform.SourceBitbucket:       false,
		platform.SourceConfluence:      true,
		platform.SourceDropbox:         true,
		platform.SourceGitHub:          true,
		platform.SourceGmail:           true,
		platform.SourceGoogleCalendar:  true,
		platform.SourceGoogleDrive:     true,
		platform.SourceHubSpot:         true,
		platform.SourceJira:            true,
		platform.SourceLinear:          true,
		platform.SourceMonday:          true,
		platform.SourceNotion:          true,
		platform.SourceOneDrive:        false,
		platform.SourceOutlookCalendar: false,
		platform.SourceOutlookMail:     false,
		platform.SourcePostgreSQL:      false,
		platform.SourceSlack:           true,
		platform.SourceTodoist:         false,
		platform.SourceZendesk:         true,
	},
}

func init() {
	// The matrix is hand-maintained; catch drift between it and the
	// source catalog at startup instead of returning wrong answers.
	for _, provider := range platform.AllProviders {
		entry, ok := matrix[provider]
		if !ok {
			panic(fmt.Sprintf("compat: provider %s missing from matrix", provider))
		}
		if len(entry) != len(platform.AllSources) {
			panic(fmt.Sprintf("compat: provider %s covers %d sources, want %d",
				provider, len(entry), len(platform.AllSources)))
		}
		for _, source := range platform.AllSources {
			if _, ok := entry[source]; !ok {
				panic(fmt.Sprintf("compat: provider %s missing source %s", provider, source))
			}
		}
	}
	if len(matrix) != len(platform.AllProviders) {
		panic("compat: matrix has providers not in platform.AllProviders")
	}
}

// IsCompatible reports whether the source can authenticate through the
// given provider. The source may be any string; unknown sources are
// not compatible. Never errors.
func IsCompatible(source string, provider platform.AuthProvider) bool {
	return matrix[provider][platform.Source(source)]
}

// CompatibleProvidersFor returns the auth providers that support the
// source, in provider declaration order. Unknown sources yield an empty
// result.
func CompatibleProvidersFor(source string) []platform.AuthProvider {
	providers := make([]platform.AuthProvider, 0, len(platform.AllProviders))
	for _, provider := range platform.AllProviders {
		if IsCompatible(source, provider) {
			providers = append(providers, provider)
		}
	}
	return providers
}

// HasAnyCompatibleProvider reports whether at least one auth provider
// supports the source.
func HasAnyCompatibleProvider(source string) bool {
	return len(CompatibleProvidersFor(source)) > 0
}

// SupportedSources returns the sources the provider supports, in source
// declaration order.
func SupportedSources(provider platform.AuthProvider) []platform.Source {
	var sources []platform.Source
	for _, source := range platform.AllSources {
		if matrix[provider][source] {
			sources = append(sources, source)
		}
	}
	return sources
}
