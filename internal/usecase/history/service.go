// Package history exposes recent search history.
package history

import (
	"context"
	"fmt"

	"github.com/toolscout/toolscout/internal/domain"
)

// Repository defines the storage contract for search history.
type Repository interface {
	ListRecent(ctx context.Context, limit int) ([]domain.SearchHistoryEntry, error)
}

// Service reads search history.
type Service struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

// New creates a history service.
func New(repo Repository, defaultLimit, maxLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Service{repo: repo, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// ListRecent returns the newest entries first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]domain.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
