// Package composio implements the Composio auth provider broker. Composio
// holds the connected accounts for sources whose auth is delegated to it;
// Weft reads credentials from those accounts at sync time.
package composio

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ajitpratap0/weft/pkg/auth"
	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/json"
	"github.com/ajitpratap0/weft/pkg/logger"
	"github.com/ajitpratap0/weft/pkg/metrics"
	"github.com/ajitpratap0/weft/pkg/observability"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

const cacheTTL = time.Hour

// slugMapping maps Weft source short names to Composio toolkit slugs.
// Sources not listed use their short name as the slug.
var slugMapping = map[string]string{
	"google_drive":     "googledrive",
	"google_calendar":  "googlecalendar",
	"outlook_mail":     "outlook",
	"outlook_calendar": "outlook",
	"onedrive":         "one_drive",
}

// fieldNameMapping maps Composio credential field names to Weft field
// names. Fields not listed keep their Composio name.
var fieldNameMapping = map[string]string{
	"access_token": "personal_access_token",
}

// Provider is the Composio credential broker.
type Provider struct {
	cfg        config.ComposioConfig
	httpClient *clients.HTTPClient
	logger     *zap.Logger

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

type cacheEntry struct {
	creds     auth.Credentials
	fetchedAt time.Time
}

// connectedAccountsResponse models the Composio v3 connected accounts API.
type connectedAccountsResponse struct {
	Items []connectedAccount `json:"items"`
}

type connectedAccount struct {
	ID         string        `json:"id"`
	Toolkit    toolkitRef    `json:"toolkit"`
	AuthConfig authConfigRef `json:"auth_config"`
	State      accountState  `json:"state"`
}

type toolkitRef struct {
	Slug string `json:"slug"`
}

type authConfigRef struct {
	ID string `json:"id"`
}

type accountState struct {
	AuthScheme string                 `json:"auth_scheme"`
	Val        map[string]interface{} `json:"val"`
}

// New creates a Composio provider from configuration.
func New(cfg config.ComposioConfig, httpClient *clients.HTTPClient) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, wefterrors.New(wefterrors.ErrorTypeConfig, "composio api_key is required")
	}

	return &Provider{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Get().With(zap.String("component", "composio_provider")),
		cache:      make(map[string]cacheEntry),
	}, nil
}

// Name returns the provider's short name.
func (p *Provider) Name() platform.AuthProvider {
	return platform.ProviderComposio
}

// toolkitSlug returns the Composio toolkit slug for a Weft source short name.
func toolkitSlug(source string) string {
	if slug, ok := slugMapping[source]; ok {
		return slug
	}
	return source
}

// GetCredentialsForSource fetches credentials for the source from the
// connected account matching the configured auth config and account ids.
// Results are cached for an hour per source.
func (p *Provider) GetCredentialsForSource(ctx context.Context, source string, fields []string) (auth.Credentials, error) {
	if cached, ok := p.cached(source); ok {
		return cached, nil
	}

	tracer := observability.Tracer("weft.auth.composio")
	ctx, span := tracer.Start(ctx, "composio.get_credentials")
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("toolkit_slug", toolkitSlug(source)),
	)
	defer span.End()

	timer := metrics.NewTimer()
	creds, err := p.fetchCredentials(ctx, source, fields)
	metrics.CredentialFetchLatency.WithLabelValues(string(platform.ProviderComposio)).
		Observe(timer.Stop().Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CredentialFetches.WithLabelValues(string(platform.ProviderComposio), source, "failure").Inc()
		return nil, err
	}

	metrics.CredentialFetches.WithLabelValues(string(platform.ProviderComposio), source, "success").Inc()
	p.store(source, creds)
	return creds, nil
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) cached(source string) (auth.Credentials, bool) {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()

	entry, ok := p.cache[source]
	if !ok || time.Since(entry.fetchedAt) > cacheTTL {
		return nil, false
	}
	return entry.creds, true
}

func (p *Provider) store(source string, creds auth.Credentials) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache[source] = cacheEntry{creds: creds, fetchedAt: time.Now()}
}

func (p *Provider) fetchCredentials(ctx context.Context, source string, fields []string) (auth.Credentials, error) {
	slug := toolkitSlug(source)
	log := p.logger.With(zap.String("source", source), zap.String("toolkit_slug", slug))

	if slug != source {
		log.Debug("mapped source to composio toolkit slug")
	}

	accounts, err := p.connectedAccounts(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]connectedAccount, 0, 1)
	for _, account := range accounts {
		if account.Toolkit.Slug == slug {
			matching = append(matching, account)
		}
	}

	if len(matching) == 0 {
		return nil, wefterrors.New(wefterrors.ErrorTypeNotFound,
			fmt.Sprintf("no connected accounts found for source %s (composio slug %s)", source, slug)).
			WithDetail("available_slugs", availableSlugs(accounts))
	}

	log.Debug("found matching connected accounts", zap.Int("count", len(matching)))

	account := p.selectAccount(matching)
	return p.mapAndValidateFields(account, fields, source)
}

// connectedAccounts fetches all connected accounts from the Composio API.
func (p *Provider) connectedAccounts(ctx context.Context) ([]connectedAccount, error) {
	url := p.cfg.BaseURL + "/api/v3/connected_accounts"

	resp, err := p.httpClient.Get(ctx, url, map[string]string{
		"Accept":    "application/json",
		"x-api-key": p.cfg.APIKey,
	})
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to reach composio API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("composio API returned error status",
			zap.Int("status", resp.StatusCode), zap.String("url", url))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, wefterrors.New(wefterrors.ErrorTypeAuthentication,
				fmt.Sprintf("composio API rejected credentials (status %d)", resp.StatusCode))
		}
		return nil, wefterrors.New(wefterrors.ErrorTypeConnection,
			fmt.Sprintf("composio API returned status %d", resp.StatusCode))
	}

	var parsed connectedAccountsResponse
	if decodeErr := json.DecodeFrom(resp.Body, &parsed); decodeErr != nil {
		return nil, wefterrors.Wrap(decodeErr, wefterrors.ErrorTypeData, "failed to decode composio response")
	}

	return parsed.Items, nil
}

// selectAccount picks the connected account matching the configured
// account id, then the configured auth config id, then falls back to the
// first match.
func (p *Provider) selectAccount(accounts []connectedAccount) connectedAccount {
	for _, account := range accounts {
		if p.cfg.AccountID != "" && account.ID == p.cfg.AccountID {
			return account
		}
	}
	for _, account := range accounts {
		if p.cfg.AuthConfigID != "" && account.AuthConfig.ID == p.cfg.AuthConfigID {
			return account
		}
	}
	return accounts[0]
}

// mapAndValidateFields translates Composio field names to Weft names and
// checks every required field is present.
func (p *Provider) mapAndValidateFields(account connectedAccount, fields []string, source string) (auth.Credentials, error) {
	raw := make(auth.Credentials, len(account.State.Val))
	for key, value := range account.State.Val {
		str, ok := value.(string)
		if !ok {
			str = fmt.Sprintf("%v", value)
		}
		raw[key] = str
		if mapped, ok := fieldNameMapping[key]; ok {
			raw[mapped] = str
		}
	}

	creds := make(auth.Credentials, len(fields))
	var missing []string
	for _, field := range fields {
		value, ok := raw[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		creds[field] = value
	}

	if len(missing) > 0 {
		return nil, wefterrors.New(wefterrors.ErrorTypeData,
			fmt.Sprintf("composio account %s is missing required auth fields for source %s", account.ID, source)).
			WithDetail("missing_fields", missing)
	}

	return creds, nil
}

func availableSlugs(accounts []connectedAccount) []string {
	seen := make(map[string]struct{}, len(accounts))
	slugs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[account.Toolkit.Slug]; ok {
			continue
		}
		seen[account.Toolkit.Slug] = struct{}{}
		slugs = append(slugs, account.Toolkit.Slug)
	}
	return slugs
}
