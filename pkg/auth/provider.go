// Package auth defines the auth provider broker interface and the registry
// through which provider implementations are created. Providers retrieve
// source credentials from third-party integration platforms on behalf of
// connections whose auth is delegated to that platform.
package auth

import (
	"context"

	"github.com/ajitpratap0/weft/pkg/platform"
)

// Credentials holds the named credential fields for a source connection.
type Credentials map[string]string

// Provider retrieves credentials for sources from an external auth platform.
type Provider interface {
	// Name returns the provider's short name.
	Name() platform.AuthProvider

	// GetCredentialsForSource fetches the credential fields the source
	// requires. Returns an error when no connected account exists for the
	// source or required fields are missing.
	GetCredentialsForSource(ctx context.Context, source string, fields []string) (Credentials, error)

	// Close releases provider resources.
	Close() error
}
