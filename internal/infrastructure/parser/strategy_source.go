package parser

import (
	"context"
	"log/slog"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/source"
)

// StrategySource implements ContentSource by dispatching on the client's source kind.
type StrategySource struct {
	registry *source.Registry
	logger   *slog.Logger
}

var _ ports.ContentSource = (*StrategySource)(nil)

// NewStrategySource wires the fetcher registry.
func NewStrategySource(reg *source.Registry, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &StrategySource{
		registry: reg,
		logger:   log.With("component", "source"),
	}
}

// FetchRecent never fails: unknown kinds and fetch errors are logged and
// produce an empty result.
func (s *StrategySource) FetchRecent(ctx context.Context, src domain.Source, limit int) []domain.ContentItem {
	kind := src.Kind
	if kind == "" {
		kind = domain.SourceWordPress
	}
	if s.registry == nil {
		s.logger.Error("source registry is not configured")
		return nil
	}

	fetcher, err := s.registry.Resolve(kind)
	if err != nil {
		s.logger.Error("resolve source", "kind", kind, "endpoint", src.Endpoint, "err", err)
		return nil
	}

	s.logger.Debug("fetch recent", "kind", kind, "endpoint", src.Endpoint, "limit", limit)
	items, err := fetcher.Fetch(ctx, source.Request{Endpoint: src.Endpoint, Limit: limit})
	if err != nil {
		s.logger.Warn("fetch failed", "kind", kind, "endpoint", src.Endpoint, "err", err)
		return nil
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	s.logger.Debug("fetched items", "endpoint", src.Endpoint, "count", len(items))
	return items
}
