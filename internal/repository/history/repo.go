// Package history persists search history rows. Append-only: entries are
// never mutated or deleted by the core.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolscout/toolscout/internal/domain"
)

// historyRecord is the GORM row mapping for the search_history table.
type historyRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Query     string    `gorm:"type:text;not null"`
	Results   string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (historyRecord) TableName() string { return "search_history" }

// Repo provides append and read access to search history.
type Repo struct {
	db *gorm.DB
}

// New creates a search history repository.
func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates or updates the search_history table schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&historyRecord{}); err != nil {
		return fmt.Errorf("migrate search_history: %w", err)
	}
	return nil
}

// Record appends one history entry with the surfaced result IDs in rank order.
func (r *Repo) Record(ctx context.Context, query string, resultIDs []string) error {
	if resultIDs == nil {
		resultIDs = []string{}
	}
	resultsJSON, err := json.Marshal(resultIDs)
	if err != nil {
		return fmt.Errorf("marshal history results: %w", err)
	}

	rec := historyRecord{
		ID:      uuid.NewString(),
		Query:   query,
		Results: string(resultsJSON),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record search history: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ListRecent returns the newest entries first. ID breaks created_at ties so
// the order stays stable under rapid consecutive searches.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]domain.SearchHistoryEntry, error) {
	var recs []historyRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list search history: %w: %w", domain.ErrStoreUnavailable, err)
	}

	entries := make([]domain.SearchHistoryEntry, 0, len(recs))
	for _, rec := range recs {
		var results []string
		if rec.Results != "" {
			if err := json.Unmarshal([]byte(rec.Results), &results); err != nil {
				return nil, fmt.Errorf("unmarshal history results for %s: %w", rec.ID, err)
			}
		}
		entries = append(entries, domain.SearchHistoryEntry{
			ID:        rec.ID,
			Query:     rec.Query,
			Results:   results,
			CreatedAt: rec.CreatedAt,
		})
	}
	return entries, nil
}
