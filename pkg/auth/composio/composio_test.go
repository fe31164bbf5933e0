package composio

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/testutil"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

const accountsBody = `{
	"items": [
		{
			"id": "acc-github",
			"toolkit": {"slug": "github"},
			"auth_config": {"id": "ac-1"},
			"state": {
				"auth_scheme": "OAUTH2",
				"val": {"access_token": "gh-token", "refresh_token": "gh-refresh"}
			}
		},
		{
			"id": "acc-drive",
			"toolkit": {"slug": "googledrive"},
			"auth_config": {"id": "ac-2"},
			"state": {
				"auth_scheme": "OAUTH2",
				"val": {"access_token": "drive-token"}
			}
		},
		{
			"id": "acc-github-2",
			"toolkit": {"slug": "github"},
			"auth_config": {"id": "ac-3"},
			"state": {
				"auth_scheme": "OAUTH2",
				"val": {"access_token": "gh-token-2"}
			}
		}
	]
}`

type fakeComposio struct {
	server   *httptest.Server
	requests int64
	status   int
	body     string
}

func newFakeComposio(t *testing.T) *fakeComposio {
	t.Helper()

	f := &fakeComposio{status: http.StatusOK, body: accountsBody}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/connected_accounts", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))

		atomic.AddInt64(&f.requests, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestProvider(t *testing.T, f *fakeComposio, mutate func(*config.ComposioConfig)) *Provider {
	t.Helper()

	cfg := config.ComposioConfig{
		APIKey:  "test-key",
		BaseURL: f.server.URL,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	provider, err := New(cfg, testutil.TestHTTPClient(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(config.ComposioConfig{}, nil)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConfig))
}

func TestGetCredentialsForSource(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	creds, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.NoError(t, err)
	assert.Equal(t, "gh-token", creds["access_token"])
}

func TestFieldNameMapping(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	// github exposes access_token; sources that need a
	// personal_access_token get it under the mapped name.
	creds, err := provider.GetCredentialsForSource(ctx, "github", []string{"personal_access_token"})
	require.NoError(t, err)
	assert.Equal(t, "gh-token", creds["personal_access_token"])
}

func TestSourceSlugMapping(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	// google_drive maps to the googledrive toolkit slug.
	creds, err := provider.GetCredentialsForSource(ctx, "google_drive", []string{"access_token"})
	require.NoError(t, err)
	assert.Equal(t, "drive-token", creds["access_token"])
}

func TestNoMatchingAccount(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := provider.GetCredentialsForSource(ctx, "notion", []string{"access_token"})
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeNotFound))
}

func TestMissingRequiredFields(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token", "api_secret"})
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeData))

	var weftErr *wefterrors.Error
	require.ErrorAs(t, err, &weftErr)
	assert.Equal(t, []string{"api_secret"}, weftErr.Details["missing_fields"])
}

func TestAccountSelectionPrefersConfiguredAccount(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, func(cfg *config.ComposioConfig) {
		cfg.AccountID = "acc-github-2"
	})
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	creds, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.NoError(t, err)
	assert.Equal(t, "gh-token-2", creds["access_token"])
}

func TestAccountSelectionByAuthConfig(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, func(cfg *config.ComposioConfig) {
		cfg.AuthConfigID = "ac-3"
	})
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	creds, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.NoError(t, err)
	assert.Equal(t, "gh-token-2", creds["access_token"])
}

func TestCredentialsAreCached(t *testing.T) {
	f := newFakeComposio(t)
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.NoError(t, err)
	_, err = provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt64(&f.requests))
}

func TestUnauthorizedResponse(t *testing.T) {
	f := newFakeComposio(t)
	f.status = http.StatusUnauthorized
	f.body = `{"error": "invalid api key"}`
	provider := newTestProvider(t, f, nil)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := provider.GetCredentialsForSource(ctx, "github", []string{"access_token"})
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeAuthentication))
	assert.False(t, wefterrors.IsRetryable(err))
}

func TestToolkitSlugDefaultsToShortName(t *testing.T) {
	assert.Equal(t, "github", toolkitSlug("github"))
	assert.Equal(t, "googledrive", toolkitSlug("google_drive"))
	assert.Equal(t, "outlook", toolkitSlug("outlook_mail"))
	assert.Equal(t, "outlook", toolkitSlug("outlook_calendar"))
	assert.Equal(t, "one_drive", toolkitSlug("onedrive"))
}
