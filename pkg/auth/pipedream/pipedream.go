// Package pipedream implements the Pipedream Connect auth provider broker.
// Pipedream holds connected accounts per project; Weft authenticates with
// an OAuth2 client-credentials grant and reads account credentials from the
// Connect API.
package pipedream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

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

// appSlugMapping maps Weft source short names to Pipedream app slugs.
// Sources not listed use their short name as the slug.
var appSlugMapping = map[string]string{
	"outlook_mail":     "microsoft_outlook",
	"outlook_calendar": "microsoft_outlook_calendar",
	"gmail":            "gmail",
	"onedrive":         "microsoft_onedrive",
}

// Provider is the Pipedream credential broker.
type Provider struct {
	cfg         config.PipedreamConfig
	httpClient  *clients.HTTPClient
	tokenSource *clientcredentials.Config
	logger      *zap.Logger

	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

type cacheEntry struct {
	creds     auth.Credentials
	fetchedAt time.Time
}

// accountsResponse models the Pipedream Connect accounts API.
type accountsResponse struct {
	Data []account `json:"data"`
}

type account struct {
	ID          string            `json:"id"`
	Healthy     bool              `json:"healthy"`
	App         appRef            `json:"app"`
	Credentials map[string]string `json:"credentials"`
}

type appRef struct {
	NameSlug string `json:"name_slug"`
}

// New creates a Pipedream provider from configuration.
func New(cfg config.PipedreamConfig, httpClient *clients.HTTPClient) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, wefterrors.New(wefterrors.ErrorTypeConfig, "pipedream client_id and client_secret are required")
	}
	if cfg.ProjectID == "" {
		return nil, wefterrors.New(wefterrors.ErrorTypeConfig, "pipedream project_id is required")
	}

	return &Provider{
		cfg:        cfg,
		httpClient: httpClient,
		tokenSource: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.BaseURL + "/v1/oauth/token",
		},
		logger: logger.Get().With(zap.String("component", "pipedream_provider")),
		cache:  make(map[string]cacheEntry),
	}, nil
}

// Name returns the provider's short name.
func (p *Provider) Name() platform.AuthProvider {
	return platform.ProviderPipedream
}

// appSlug returns the Pipedream app slug for a Weft source short name.
func appSlug(source string) string {
	if slug, ok := appSlugMapping[source]; ok {
		return slug
	}
	return source
}

// GetCredentialsForSource fetches credentials for the source from the
// healthy connected account in the configured project. Results are cached
// for an hour per source.
func (p *Provider) GetCredentialsForSource(ctx context.Context, source string, fields []string) (auth.Credentials, error) {
	if cached, ok := p.cached(source); ok {
		return cached, nil
	}

	tracer := observability.Tracer("weft.auth.pipedream")
	ctx, span := tracer.Start(ctx, "pipedream.get_credentials")
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("app_slug", appSlug(source)),
	)
	defer span.End()

	timer := metrics.NewTimer()
	creds, err := p.fetchCredentials(ctx, source, fields)
	metrics.CredentialFetchLatency.WithLabelValues(string(platform.ProviderPipedream)).
		Observe(timer.Stop().Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CredentialFetches.WithLabelValues(string(platform.ProviderPipedream), source, "failure").Inc()
		return nil, err
	}

	metrics.CredentialFetches.WithLabelValues(string(platform.ProviderPipedream), source, "success").Inc()
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
	slug := appSlug(source)
	log := p.logger.With(zap.String("source", source), zap.String("app_slug", slug))

	token, err := p.tokenSource.Token(ctx)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeAuthentication, "failed to obtain pipedream access token")
	}

	endpoint := fmt.Sprintf("%s/v1/connect/%s/accounts?%s",
		p.cfg.BaseURL, p.cfg.ProjectID,
		url.Values{
			"app":                 {slug},
			"include_credentials": {"true"},
		}.Encode())

	resp, err := p.httpClient.Get(ctx, endpoint, map[string]string{
		"Accept":           "application/json",
		"Authorization":    "Bearer " + token.AccessToken,
		"X-PD-Environment": p.cfg.Environment,
	})
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConnection, "failed to reach pipedream API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error("pipedream API returned error status", zap.Int("status", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, wefterrors.New(wefterrors.ErrorTypeAuthentication,
				fmt.Sprintf("pipedream API rejected credentials (status %d)", resp.StatusCode))
		}
		return nil, wefterrors.New(wefterrors.ErrorTypeConnection,
			fmt.Sprintf("pipedream API returned status %d", resp.StatusCode))
	}

	var parsed accountsResponse
	if decodeErr := json.DecodeFrom(resp.Body, &parsed); decodeErr != nil {
		return nil, wefterrors.Wrap(decodeErr, wefterrors.ErrorTypeData, "failed to decode pipedream response")
	}

	selected, err := selectAccount(parsed.Data, source, slug)
	if err != nil {
		return nil, err
	}

	log.Debug("selected pipedream account", zap.String("account_id", selected.ID))
	return validateFields(selected, fields, source)
}

// selectAccount prefers the first healthy account, falling back to any
// account for the app.
func selectAccount(accounts []account, source, slug string) (account, error) {
	if len(accounts) == 0 {
		return account{}, wefterrors.New(wefterrors.ErrorTypeNotFound,
			fmt.Sprintf("no connected accounts found for source %s (pipedream app %s)", source, slug))
	}

	for _, acct := range accounts {
		if acct.Healthy {
			return acct, nil
		}
	}
	return accounts[0], nil
}

// validateFields checks every required field is present in the account
// credentials.
func validateFields(acct account, fields []string, source string) (auth.Credentials, error) {
	creds := make(auth.Credentials, len(fields))
	var missing []string
	for _, field := range fields {
		value, ok := acct.Credentials[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		creds[field] = value
	}

	if len(missing) > 0 {
		return nil, wefterrors.New(wefterrors.ErrorTypeData,
			fmt.Sprintf("pipedream account %s is missing required auth fields for source %s", acct.ID, source)).
			WithDetail("missing_fields", missing)
	}

	return creds, nil
}
