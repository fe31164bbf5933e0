// Package weft is the control plane for source connectors whose credentials
// are brokered by external auth providers.
//
// Weft answers two questions for the platform: which auth providers can
// authenticate a given source, and what are the credentials for a source
// connection right now. The first is a static compatibility matrix resolved
// at compile time; the second is fetched on demand from the provider's
// connected accounts (Composio, Pipedream) and cached.
//
// # Architecture
//
// The module is organized around a small set of packages:
//
//   - pkg/platform holds the static catalog of sources and auth providers;
//     pkg/platform/compat resolves compatibility between them.
//   - pkg/auth defines the provider broker interface and registry; brokers
//     self-register via init so importing a broker package enables it.
//   - pkg/store persists source connections in PostgreSQL and gates
//     creation on the compatibility matrix.
//   - pkg/analytics forwards product events to a PostHog-compatible
//     endpoint, fire-and-forget.
//   - pkg/clients, pkg/config, pkg/logger, pkg/metrics, pkg/observability,
//     and pkg/wefterrors are the shared ambient infrastructure.
//
// The weft CLI under cmd/weft exposes the catalog, the compatibility
// matrix, and credential fetching.
package weft
