package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/talendar/internal/instrumentation"
)

// ErrNoToken is returned when no OAuth token has been stored yet.
var ErrNoToken = errors.New("no Google OAuth token found, run 'talendar auth' first")

// LoadConfig reads an OAuth client-secret JSON file ("installed" or "web" application).
func LoadConfig(clientSecretPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret %s: %w", clientSecretPath, err)
	}
	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret %s: %w", clientSecretPath, err)
	}
	return conf, nil
}

// TokenSource returns a token source for the stored token that saves refreshed
// tokens back to store.
func TokenSource(ctx context.Context, conf *oauth2.Config, store TokenStore, metrics *instrumentation.Metrics) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		base:    conf.TokenSource(ctx, tok),
		store:   store,
		last:    tok.AccessToken,
		metrics: metrics,
	}, nil
}

// HTTPClient returns an HTTP client authorized with the stored token.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, conf *oauth2.Config, store TokenStore, metrics *instrumentation.Metrics) (*http.Client, error) {
	ts, err := TokenSource(ctx, conf, store, metrics)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client, nil
}
