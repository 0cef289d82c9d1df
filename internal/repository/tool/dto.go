package tool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/domain/metadata"
)

// toolRecord is the GORM row mapping for the tools table.
type toolRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"size:255;uniqueIndex;not null"`
	Description string    `gorm:"type:text"`
	Tags        string    `gorm:"type:jsonb"`
	Metadata    string    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (toolRecord) TableName() string { return "tools" }

func recordFromDomain(t domain.Tool) (toolRecord, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return toolRecord{}, fmt.Errorf("marshal tags: %w", err)
	}
	metaJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return toolRecord{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return toolRecord{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Tags:        string(tagsJSON),
		Metadata:    string(metaJSON),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

func recordToDomain(rec toolRecord) (domain.Tool, error) {
	var tags []string
	if rec.Tags != "" {
		if err := json.Unmarshal([]byte(rec.Tags), &tags); err != nil {
			return domain.Tool{}, fmt.Errorf("unmarshal tags for tool %s: %w", rec.ID, err)
		}
	}
	var meta metadata.Value
	if rec.Metadata != "" {
		if err := json.Unmarshal([]byte(rec.Metadata), &meta); err != nil {
			return domain.Tool{}, fmt.Errorf("unmarshal metadata for tool %s: %w", rec.ID, err)
		}
	}
	return domain.Tool{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Tags:        tags,
		Metadata:    meta,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}
