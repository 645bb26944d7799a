package engine

import (
	"context"
	"errors"
)

// UnknownDataType marks columns whose type the discovery tier in use cannot report.
const UnknownDataType = "unknown"

var ErrDatasetListingUnsupported = errors.New("engine: dataset listing is not supported")

type Result struct {
	Columns []string
	Rows    [][]any
}

type Column struct {
	Name     string
	DataType string
}

type Table struct {
	Name    string
	Columns []Column
}

type Measure struct {
	Name       string
	Caption    string
	TableName  string
	Expression string
}

type Metadata struct {
	Tables   []Table
	Measures []Measure
}

// Statements is the introspection dialect of the engine behind a session.
// MeasuresFallback must be structurally identical to Measures minus the
// visibility column so older engine versions fail over cleanly.
type Statements struct {
	StorageTableColumns string
	CatalogTableColumns string
	Measures            string
	MeasuresFallback    string
	Catalogs            string
}

type Session interface {
	Query(ctx context.Context, statement string) (Result, error)
	Statements() Statements
	Close() error
}

type SessionFactory interface {
	OpenSession(ctx context.Context, dataset, token string) (Session, error)
}

type DatasetLister interface {
	Datasets(ctx context.Context, token string) ([]string, error)
}

type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

type MetadataDiscoverer interface {
	Discover(ctx context.Context, session Session) Metadata
}
