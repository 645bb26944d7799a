package engine

import (
	"context"
	"errors"
	"fmt"
)

// Gateway runs the per-request control flow: acquire a bearer token, open a
// session scoped to the requested dataset, run the query or discovery over it,
// and close the session on every exit path. Sessions are never pooled or
// reused across requests.
type Gateway struct {
	Credentials CredentialProvider
	Factory     SessionFactory
	Discoverer  MetadataDiscoverer
}

func (g *Gateway) ExecuteQuery(ctx context.Context, dataset, queryText string) ([]Record, error) {
	session, err := g.openSession(ctx, dataset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	result, err := session.Query(ctx, queryText)
	if err != nil {
		var execErr *QueryExecutionError
		if errors.As(err, &execErr) {
			return nil, err
		}
		return nil, &QueryExecutionError{Err: err}
	}
	return result.Records(), nil
}

// DiscoverMetadata returns an error only when the token or the session could
// not be obtained; discovery-internal failures degrade to empty sections.
func (g *Gateway) DiscoverMetadata(ctx context.Context, dataset string) (Metadata, error) {
	if g.Discoverer == nil {
		return Metadata{}, fmt.Errorf("metadata discoverer is not configured")
	}
	session, err := g.openSession(ctx, dataset)
	if err != nil {
		return Metadata{}, err
	}
	defer func() { _ = session.Close() }()

	return g.Discoverer.Discover(ctx, session), nil
}

func (g *Gateway) Datasets(ctx context.Context) ([]string, error) {
	lister, ok := g.Factory.(DatasetLister)
	if !ok {
		return nil, ErrDatasetListingUnsupported
	}
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	datasets, err := lister.Datasets(ctx, token)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Err: err}
	}
	return datasets, nil
}

func (g *Gateway) openSession(ctx context.Context, dataset string) (Session, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	if g.Factory == nil {
		return nil, &ConnectionError{Dataset: dataset, Err: fmt.Errorf("session factory is not configured")}
	}
	session, err := g.Factory.OpenSession(ctx, dataset, token)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Dataset: dataset, Err: err}
	}
	return session, nil
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	if g.Credentials == nil {
		return "", &AuthenticationError{Err: fmt.Errorf("credential provider is not configured")}
	}
	token, err := g.Credentials.Token(ctx)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", &AuthenticationError{Err: err}
	}
	return token, nil
}
