package auth

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/logger"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

// Registry manages auth provider registration and instantiation
type Registry struct {
	factories map[platform.AuthProvider]Factory
	mu        sync.RWMutex
	logger    *zap.Logger
}

// Factory is a function that creates provider instances. It receives the
// full configuration and the shared HTTP client.
type Factory func(cfg *config.Config, httpClient *clients.HTTPClient) (Provider, error)

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new auth provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[platform.AuthProvider]Factory),
		logger:    logger.Get().With(zap.String("component", "auth_registry")),
	}
}

// Register registers a provider factory
func (r *Registry) Register(name platform.AuthProvider, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return wefterrors.New(wefterrors.ErrorTypeConfig, fmt.Sprintf("auth provider %s already registered", name))
	}

	r.factories[name] = factory
	r.logger.Info("auth provider registered", zap.String("name", string(name)))
	return nil
}

// Create creates a provider instance
func (r *Registry) Create(name platform.AuthProvider, cfg *config.Config, httpClient *clients.HTTPClient) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, wefterrors.New(wefterrors.ErrorTypeConfig, fmt.Sprintf("auth provider %s not found", name))
	}

	provider, err := factory(cfg, httpClient)
	if err != nil {
		return nil, wefterrors.Wrap(err, wefterrors.ErrorTypeConfig, fmt.Sprintf("failed to create auth provider %s", name))
	}

	return provider, nil
}

// List returns the registered providers in platform declaration order.
func (r *Registry) List() []platform.AuthProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]platform.AuthProvider, 0, len(r.factories))
	for _, name := range platform.AllProviders {
		if _, ok := r.factories[name]; ok {
			providers = append(providers, name)
		}
	}
	return providers
}

// Has checks if a provider is registered
func (r *Registry) Has(name platform.AuthProvider) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Clear removes all registered providers (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[platform.AuthProvider]Factory)
}

// Global registry functions

// Register registers a provider factory in the global registry
func Register(name platform.AuthProvider, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// Create creates a provider from the global registry
func Create(name platform.AuthProvider, cfg *config.Config, httpClient *clients.HTTPClient) (Provider, error) {
	return globalRegistry.Create(name, cfg, httpClient)
}

// List returns registered providers from the global registry
func List() []platform.AuthProvider {
	return globalRegistry.List()
}

// Has checks if a provider is registered in the global registry
func Has(name platform.AuthProvider) bool {
	return globalRegistry.Has(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
