package credentials

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cubegate/cubegate/internal/observability"
)

const defaultRefreshLeeway = 30 * time.Second

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// RefreshLeeway is how long before expiry a cached token is refreshed.
	RefreshLeeway time.Duration
}

// ClientCredentialsProvider performs the OAuth2 client-credentials exchange
// against the identity authority and caches the resulting bearer token until
// it nears expiry. The refresh runs under the mutex, so exactly one exchange
// is in flight at a time and concurrent callers share its outcome.
type ClientCredentialsProvider struct {
	conf   *clientcredentials.Config
	leeway time.Duration
	now    func() time.Time

	mu     sync.Mutex
	cached *oauth2.Token
}

func NewClientCredentialsProvider(cfg Config) (*ClientCredentialsProvider, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("token url is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	leeway := cfg.RefreshLeeway
	if leeway <= 0 {
		leeway = defaultRefreshLeeway
	}

	return &ClientCredentialsProvider{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		leeway: leeway,
		now:    time.Now,
	}, nil
}

func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fresh() {
		return p.cached.AccessToken, nil
	}

	token, err := p.conf.Token(ctx)
	if err != nil {
		observability.ObserveTokenRefresh("failed")
		return "", fmt.Errorf("client credentials exchange: %w", err)
	}
	observability.ObserveTokenRefresh("succeeded")
	p.cached = token
	return token.AccessToken, nil
}

func (p *ClientCredentialsProvider) fresh() bool {
	if p.cached == nil || p.cached.AccessToken == "" {
		return false
	}
	// A zero expiry means the authority did not report one; per oauth2
	// semantics such tokens do not expire.
	if p.cached.Expiry.IsZero() {
		return true
	}
	return p.now().Before(p.cached.Expiry.Add(-p.leeway))
}

// StaticProvider returns a fixed token. Used by the dev profile and tests,
// where no identity authority is involved.
type StaticProvider struct {
	Value string
}

func (p StaticProvider) Token(ctx context.Context) (string, error) {
	return p.Value, nil
}
