package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/talendar/internal/logging"
)

type memTokenStore struct {
	mu    sync.Mutex
	tok   *oauth2.Token
	saves int
}

func (s *memTokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, ErrNoToken
	}
	return s.tok, nil
}

func (s *memTokenStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
	s.saves++
	return nil
}

// fakeTokenEndpoint answers both code exchanges and refreshes.
func fakeTokenEndpoint(t *testing.T) (*httptest.Server, *url.Values) {
	t.Helper()
	var last url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		last = r.PostForm

		access := "access-from-code"
		if r.PostForm.Get("grant_type") == "refresh_token" {
			access = "access-refreshed"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// followRedirect plays the browser: it reads the consent URL and calls the
// redirect URI with a code and the given state.
func followRedirect(t *testing.T, state func(string) string) URLPresenter {
	return PresenterFunc(func(ctx context.Context, raw string) error {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))

		cb, err := url.Parse(q.Get("redirect_uri"))
		require.NoError(t, err)
		cbq := cb.Query()
		cbq.Set("code", "auth-code")
		cbq.Set("state", state(q.Get("state")))
		cb.RawQuery = cbq.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cb.String(), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp.Body.Close()
	})
}

func TestAuthenticator_Login(t *testing.T) {
	srv, last := fakeTokenEndpoint(t)
	store := &memTokenStore{}
	a := NewAuthenticator(testConfig(srv.URL), store,
		followRedirect(t, func(s string) string { return s }),
		WithAuthLogger(logging.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tok, err := a.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-from-code", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)

	assert.Equal(t, "authorization_code", last.Get("grant_type"))
	assert.Equal(t, "auth-code", last.Get("code"))
	assert.NotEmpty(t, last.Get("code_verifier"))

	assert.Equal(t, 1, store.saves)
}

func TestAuthenticator_LoginStateMismatch(t *testing.T) {
	srv, _ := fakeTokenEndpoint(t)
	store := &memTokenStore{}
	a := NewAuthenticator(testConfig(srv.URL), store,
		followRedirect(t, func(string) string { return "forged" }),
		WithAuthLogger(logging.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.Login(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Zero(t, store.saves)
}

func TestAuthenticator_LoginCancelled(t *testing.T) {
	store := &memTokenStore{}
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAuthenticator(testConfig("http://127.0.0.1:1/token"), store,
		PresenterFunc(func(context.Context, string) error {
			cancel()
			return nil
		}),
		WithAuthLogger(logging.Discard()))

	_, err := a.Login(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthenticator_EnsureTokenUsesStored(t *testing.T) {
	stored := &oauth2.Token{AccessToken: "stored", RefreshToken: "r"}
	store := &memTokenStore{tok: stored}
	a := NewAuthenticator(testConfig("http://127.0.0.1:1/token"), store,
		PresenterFunc(func(context.Context, string) error {
			t.Fatal("consent must not be requested when a token is stored")
			return nil
		}))

	tok, err := a.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Same(t, stored, tok)
}

func TestTokenSource_SavesRefreshedToken(t *testing.T) {
	srv, last := fakeTokenEndpoint(t)
	store := &memTokenStore{tok: &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	}}

	ts, err := TokenSource(context.Background(), testConfig(srv.URL), store, nil)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-refreshed", tok.AccessToken)
	assert.Equal(t, "refresh_token", last.Get("grant_type"))
	assert.Equal(t, 1, store.saves)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves, "an unchanged token is not saved again")
}

func TestTokenSource_NoToken(t *testing.T) {
	_, err := TokenSource(context.Background(), testConfig("http://127.0.0.1:1/token"), &memTokenStore{}, nil)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token.json")
	s := NewFileTokenStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
}

func TestFileTokenStore_SaveReplacesAtomically(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		perm     os.FileMode
	}{
		{name: "fresh file"},
		{name: "old token", existing: `{"access_token":"old"}`, perm: 0o600},
		{name: "loose permissions", existing: `{"access_token":"old"}`, perm: 0o644},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "token.json")
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.existing), tt.perm))
			}

			s := NewFileTokenStore(path)
			require.NoError(t, s.Save(&oauth2.Token{AccessToken: "new", RefreshToken: "r"}))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1, "no temporary files may be left behind")
			assert.Equal(t, "token.json", entries[0].Name())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			tok, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, "new", tok.AccessToken)
		})
	}
}

func TestFileTokenStore_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "nope"},
		{"no tokens", `{"token_type":"Bearer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := NewFileTokenStore(path).Load()
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoToken)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_secret.json")
	content := `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"s",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, Scopes, conf.Scopes)
	assert.Equal(t, "https://oauth2.googleapis.com/token", conf.Endpoint.TokenURL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBrowserPresenter(t *testing.T) {
	var out safeBuffer
	var opened string
	p := BrowserPresenter{W: &out, Open: func(_ context.Context, u string) error {
		opened = u
		return assert.AnError
	}}

	require.NoError(t, p.PresentURL(context.Background(), "https://consent.example.com"))
	assert.Equal(t, "https://consent.example.com", opened)
	assert.Contains(t, out.String(), "https://consent.example.com")
	assert.Contains(t, out.String(), "Could not open a browser")
}

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
