// Package source provides the record sources the store is refreshed from.
//
// The default source is the collaborator's HTTP API. Deployments with
// direct read access to the backend table can read it from Postgres
// instead. Both return the full record set as JSON-shaped objects; there
// is no pagination.
package source

import (
	"context"

	"github.com/JonMunkholm/dataflow/internal/client"
)

// Source fetches the full record set.
type Source interface {
	Fetch(ctx context.Context) ([]map[string]any, error)
	Name() string
}

// RecordFetcher is the part of the API client a source needs.
type RecordFetcher interface {
	FetchRecords(ctx context.Context) ([]map[string]any, error)
}

// HTTP reads records from the collaborator API.
type HTTP struct {
	fetcher RecordFetcher
}

// NewHTTP creates an HTTP source.
func NewHTTP(fetcher RecordFetcher) *HTTP {
	return &HTTP{fetcher: fetcher}
}

// Fetch implements Source.
func (s *HTTP) Fetch(ctx context.Context) ([]map[string]any, error) {
	return s.fetcher.FetchRecords(ctx)
}

// Name implements Source.
func (s *HTTP) Name() string { return "http" }

var _ RecordFetcher = (*client.Client)(nil)
