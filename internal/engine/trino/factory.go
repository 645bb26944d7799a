package trino

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/trinodb/trino-go-client/trino"

	"github.com/cubegate/cubegate/internal/engine"
)

const (
	// CredentialModeTokenParameter carries the bearer token in the session
	// config's access-token field.
	CredentialModeTokenParameter = "token-parameter"
	// CredentialModeEndpointUserInfo embeds the bearer token in the endpoint
	// descriptor's userinfo section, for engine versions that only read
	// credentials from the descriptor string.
	CredentialModeEndpointUserInfo = "endpoint-userinfo"
)

const defaultSource = "cubegate"

type Config struct {
	// Endpoint is the engine coordinator URL, e.g. https://engine.example.com:443.
	Endpoint       string
	Source         string
	CredentialMode string
}

// Factory opens request-scoped sessions against the remote engine. Each
// session owns its own handle; nothing is pooled across requests.
type Factory struct {
	cfg  Config
	open func(driverName, dsn string) (*sql.DB, error)
}

func NewFactory(cfg Config) (*Factory, error) {
	endpoint, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse engine endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("engine endpoint scheme must be http or https, got %q", endpoint.Scheme)
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("engine endpoint host is required")
	}
	switch cfg.CredentialMode {
	case "":
		cfg.CredentialMode = CredentialModeTokenParameter
	case CredentialModeTokenParameter, CredentialModeEndpointUserInfo:
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.CredentialMode)
	}
	if strings.TrimSpace(cfg.Source) == "" {
		cfg.Source = defaultSource
	}
	cfg.Endpoint = endpoint.String()

	return &Factory{cfg: cfg, open: sql.Open}, nil
}

func (f *Factory) OpenSession(ctx context.Context, dataset, token string) (engine.Session, error) {
	if strings.TrimSpace(dataset) == "" {
		return nil, &engine.ConnectionError{Err: fmt.Errorf("dataset is required")}
	}
	return f.openSession(ctx, dataset, token)
}

// Datasets lists the engine's dataset catalog through an unscoped session.
func (f *Factory) Datasets(ctx context.Context, token string) ([]string, error) {
	session, err := f.openSession(ctx, "", token)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	result, err := session.Query(ctx, session.Statements().Catalogs)
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}

	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		if name, ok := row[0].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *Factory) openSession(ctx context.Context, dataset, token string) (engine.Session, error) {
	dsn, err := f.formatDSN(dataset, token)
	if err != nil {
		return nil, &engine.ConnectionError{Dataset: dataset, Err: err}
	}

	db, err := f.open("trino", dsn)
	if err != nil {
		return nil, &engine.ConnectionError{Dataset: dataset, Err: fmt.Errorf("open engine handle: %w", err)}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &engine.ConnectionError{Dataset: dataset, Err: err}
	}

	return &session{db: db, dataset: dataset}, nil
}

func (f *Factory) formatDSN(dataset, token string) (string, error) {
	serverURI := f.cfg.Endpoint
	cfg := trino.Config{
		ServerURI: serverURI,
		Source:    f.cfg.Source,
		Catalog:   dataset,
	}

	switch f.cfg.CredentialMode {
	case CredentialModeEndpointUserInfo:
		endpoint, err := url.Parse(serverURI)
		if err != nil {
			return "", fmt.Errorf("parse engine endpoint: %w", err)
		}
		endpoint.User = url.UserPassword(f.cfg.Source, token)
		cfg.ServerURI = endpoint.String()
	default:
		cfg.AccessToken = token
	}

	dsn, err := cfg.FormatDSN()
	if err != nil {
		return "", fmt.Errorf("format engine descriptor: %w", err)
	}
	return dsn, nil
}
