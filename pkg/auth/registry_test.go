package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

type stubProvider struct {
	name platform.AuthProvider
}

func (p *stubProvider) Name() platform.AuthProvider { return p.name }

func (p *stubProvider) GetCredentialsForSource(context.Context, string, []string) (Credentials, error) {
	return Credentials{"access_token": "stub"}, nil
}

func (p *stubProvider) Close() error { return nil }

func stubFactory(name platform.AuthProvider) Factory {
	return func(*config.Config, *clients.HTTPClient) (Provider, error) {
		return &stubProvider{name: name}, nil
	}
}

func TestRegisterAndCreate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(platform.ProviderComposio, stubFactory(platform.ProviderComposio)))

	provider, err := registry.Create(platform.ProviderComposio, config.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, platform.ProviderComposio, provider.Name())
}

func TestDuplicateRegistrationFails(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(platform.ProviderComposio, stubFactory(platform.ProviderComposio)))

	err := registry.Register(platform.ProviderComposio, stubFactory(platform.ProviderComposio))
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConfig))
}

func TestCreateUnregisteredProviderFails(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Create(platform.ProviderPipedream, config.New(), nil)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConfig))
}

func TestListFollowsDeclarationOrder(t *testing.T) {
	registry := NewRegistry()

	// Register in reverse order; List still follows declaration order.
	require.NoError(t, registry.Register(platform.ProviderPipedream, stubFactory(platform.ProviderPipedream)))
	require.NoError(t, registry.Register(platform.ProviderComposio, stubFactory(platform.ProviderComposio)))

	assert.Equal(t, []platform.AuthProvider{
		platform.ProviderComposio,
		platform.ProviderPipedream,
	}, registry.List())
}

func TestHasAndClear(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(platform.ProviderComposio, stubFactory(platform.ProviderComposio)))

	assert.True(t, registry.Has(platform.ProviderComposio))
	assert.False(t, registry.Has(platform.ProviderPipedream))

	registry.Clear()
	assert.False(t, registry.Has(platform.ProviderComposio))
	assert.Empty(t, registry.List())
}
