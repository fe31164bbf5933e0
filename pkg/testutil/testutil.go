// Package testutil provides testing utilities for Weft
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// TestHTTPClient creates an HTTP client suitable for hitting httptest
// servers: short timeouts, no rate limiting, no circuit breaker. The
// client is closed when the test completes.
func TestHTTPClient(t *testing.T) *clients.HTTPClient {
	t.Helper()

	client := clients.NewHTTPClient(config.HTTPConfig{
		RequestTimeout: 5 * time.Second,
		DialTimeout:    time.Second,
	}, TestLogger(t))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
