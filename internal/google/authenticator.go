package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/talendar/internal/logging"
)

// DefaultListenAddr is the loopback address the consent redirect lands on.
// Port 0 picks a free port.
const DefaultListenAddr = "127.0.0.1:0"

const callbackPath = "/oauth2/callback"

// Authenticator runs the loopback consent flow and stores the resulting token.
type Authenticator struct {
	config     *oauth2.Config
	store      TokenStore
	presenter  URLPresenter
	listenAddr string
	logger     logging.Logger
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithListenAddr sets the loopback listen address.
func WithListenAddr(addr string) AuthenticatorOption {
	return func(a *Authenticator) { a.listenAddr = addr }
}

// WithAuthLogger sets the logger.
func WithAuthLogger(l logging.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAuthenticator returns an Authenticator. The presenter decides how the
// consent URL reaches the user.
func NewAuthenticator(config *oauth2.Config, store TokenStore, presenter URLPresenter, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		config:     config,
		store:      store,
		presenter:  presenter,
		listenAddr: DefaultListenAddr,
		logger:     logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type callbackResult struct {
	code string
	err  error
}

// Login asks the user for consent, exchanges the code and stores the token.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for OAuth callback: %w", err)
	}
	defer ln.Close()

	conf := *a.config
	conf.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("OAuth callback state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("OAuth callback without code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "talendar is authorized. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	a.logger.Debug("waiting for OAuth consent", "redirect_url", conf.RedirectURL)
	if err := a.presenter.PresentURL(ctx, authURL); err != nil {
		return nil, fmt.Errorf("failed to present consent URL: %w", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := a.store.Save(tok); err != nil {
		return nil, err
	}
	a.logger.Info("OAuth token stored", "token", logging.SanitizeToken(tok.AccessToken))
	return tok, nil
}

// EnsureToken returns the stored token, running Login when none exists.
func (a *Authenticator) EnsureToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.store.Load()
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrNoToken) {
		return nil, err
	}
	return a.Login(ctx)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
