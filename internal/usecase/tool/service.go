// Package tool implements tool catalog CRUD with dual-store synchronization:
// the relational store is written first and stays the source of truth, the
// vector index follows.
package tool

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/metrics"
)

// Service handles tool CRUD with automatic embedding of searchable fields.
type Service struct {
	repo            Repository
	index           VectorIndex
	embedder        Embedder
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

// New creates a tool service.
func New(repo Repository, index VectorIndex, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:            repo,
		index:           index,
		embedder:        embedder,
		logger:          logger,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Create inserts the tool into the relational store, then embeds its
// canonical text and upserts the vector. The row is never rolled back on an
// index failure: the returned IndexSyncError names the tool so callers can
// retry via Reembed.
func (s *Service) Create(ctx context.Context, fields domain.ToolFields) (domain.Tool, error) {
	if err := fields.Validate(); err != nil {
		return domain.Tool{}, err
	}

	created, err := s.repo.Create(ctx, fields)
	if err != nil {
		return domain.Tool{}, fmt.Errorf("create tool: %w", err)
	}

	if err := s.syncVector(ctx, created); err != nil {
		s.reportSyncFailure("create", created.ID, err)
		return created, domain.NewIndexSync(created.ID, domain.SideVector, err)
	}

	return created, nil
}

// Get retrieves a tool by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Tool, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Tool{}, fmt.Errorf("get tool: %w", err)
	}
	return t, nil
}

// List returns tools in stable creation order.
func (s *Service) List(ctx context.Context, offset, limit int) ([]domain.Tool, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	tools, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return tools, nil
}

// Update applies a partial update. The relational row is written first; the
// vector is re-embedded only when a searchable field (name, description,
// tags) actually changes. A metadata-only update leaves the vector untouched.
func (s *Service) Update(ctx context.Context, id string, patch domain.ToolPatch) (domain.Tool, error) {
	if err := patch.Validate(); err != nil {
		return domain.Tool{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Tool{}, fmt.Errorf("get tool: %w", err)
	}

	if patch.IsEmpty() {
		return current, nil
	}

	reembed := patch.TouchesSearchable(current)

	updated, err := s.repo.Update(ctx, patch.Apply(current))
	if err != nil {
		return domain.Tool{}, fmt.Errorf("update tool: %w", err)
	}

	if reembed {
		if err := s.syncVector(ctx, updated); err != nil {
			s.reportSyncFailure("update", updated.ID, err)
			return updated, domain.NewIndexSync(updated.ID, domain.SideVector, err)
		}
	}

	return updated, nil
}

// Delete removes the vector entry first, then the relational row. A vector
// failure aborts before the row is touched, so both stores stay consistent.
// A relational failure after the vector is gone leaves a row without a
// vector, reported as an IndexSyncError on the relational side.
func (s *Service) Delete(ctx context.Context, id string) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check tool: %w", err)
	}
	if !exists {
		return fmt.Errorf("tool %s: %w", id, domain.ErrNotFound)
	}

	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.reportSyncFailure("delete", id, err)
		return domain.NewIndexSync(id, domain.SideRelational, err)
	}

	return nil
}

// Reembed recomputes the embedding for one tool and upserts it, repairing a
// stale or missing vector entry.
func (s *Service) Reembed(ctx context.Context, id string) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get tool: %w", err)
	}

	if err := s.syncVector(ctx, t); err != nil {
		s.reportSyncFailure("reembed", id, err)
		return domain.NewIndexSync(id, domain.SideVector, err)
	}

	return nil
}

// PurgeOrphans removes vector entries whose tool no longer exists in the
// relational store. Returns the IDs that were purged.
func (s *Service) PurgeOrphans(ctx context.Context) ([]string, error) {
	ids, err := s.index.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed ids: %w", err)
	}

	purged := make([]string, 0)
	for _, id := range ids {
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return purged, fmt.Errorf("check tool %s: %w", id, err)
		}
		if exists {
			continue
		}
		if err := s.index.Delete(ctx, id); err != nil {
			return purged, fmt.Errorf("purge vector %s: %w", id, err)
		}
		s.logger.Info("Purged orphan vector", zap.String("tool_id", id))
		purged = append(purged, id)
	}

	return purged, nil
}

// syncVector embeds the tool's canonical text and upserts the vector entry.
func (s *Service) syncVector(ctx context.Context, t domain.Tool) error {
	text := t.CanonicalText()
	if text == "" {
		return fmt.Errorf("empty canonical text: %w", domain.ErrEmbedding)
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed tool: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.TotalTokens)

	if err := s.index.Upsert(ctx, t.ID, result.Embedding); err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}

	return nil
}

func (s *Service) reportSyncFailure(operation, id string, err error) {
	metrics.IndexSyncFailuresTotal.WithLabelValues(operation).Inc()
	s.logger.Error("Vector index out of sync",
		zap.String("operation", operation),
		zap.String("tool_id", id),
		zap.Error(err),
	)
}
