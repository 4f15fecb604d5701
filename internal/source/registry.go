package source

import (
	"context"
	"fmt"

	"NewsPublisher/internal/domain"
)

// Request carries the parameters of a single fetch.
type Request struct {
	Endpoint string
	Limit    int
}

// Fetcher pulls recent items from one kind of content source (WordPress, RSS, etc.).
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, req Request) ([]domain.ContentItem, error)
}

// Registry keeps a mapping from source kinds to their fetchers.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates a registry pre-filled with fetchers.
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: map[string]Fetcher{}}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a fetcher.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[f.Kind()] = f
}

// Resolve returns the fetcher for kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Fetcher, error) {
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("source kind %q is not registered", kind)
}
