// Package search implements the semantic search pipeline: embed the query,
// query the vector index, hydrate hits from the relational store, filter by
// minimum similarity, and record the search in history.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
)

// Config bounds search requests.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	MinScore     float64
}

// Service handles semantic tool search.
type Service struct {
	tools   ToolReader
	index   VectorIndex
	embed   Embedder
	history HistoryRecorder
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service.
func New(
	tools ToolReader,
	index VectorIndex,
	embed Embedder,
	history HistoryRecorder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &Service{
		tools:   tools,
		index:   index,
		embed:   embed,
		history: history,
		cfg:     cfg,
		logger:  logger,
	}
}

// Search returns tools ranked by similarity to the query. Candidates whose
// tool was deleted from the relational store are dropped, as are candidates
// below the minimum similarity. The history entry contains only the IDs that
// survived both filters.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.ToolResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	candidates, err := s.index.Query(ctx, embResult.Embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]domain.ToolResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < s.cfg.MinScore {
			continue
		}

		t, err := s.tools.Get(ctx, c.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("Skipping orphan index entry", zap.String("tool_id", c.ID))
				continue
			}
			return nil, fmt.Errorf("hydrate tool %s: %w", c.ID, err)
		}

		results = append(results, domain.ToolResult{Tool: t, Score: c.Score})
	}

	if len(results) > limit {
		results = results[:limit]
	}

	s.recordHistory(ctx, query, results)

	return results, nil
}

// recordHistory persists the search. History is best effort: a storage
// failure is logged and the search result is returned anyway.
func (s *Service) recordHistory(ctx context.Context, query string, results []domain.ToolResult) {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Tool.ID)
	}

	if err := s.history.Record(ctx, query, ids); err != nil {
		s.logger.Warn("Failed to record search history",
			zap.String("query", query),
			zap.Error(err),
		)
	}
}
