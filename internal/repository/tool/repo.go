// Package tool is the relational store adapter for catalog records.
// It is the source of truth for every structured tool field.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/toolscout/toolscout/internal/domain"
)

// Repo provides CRUD over the tools table.
type Repo struct {
	db *gorm.DB
}

// New creates a tool repository.
func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates or updates the tools table schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&toolRecord{}); err != nil {
		return fmt.Errorf("migrate tools: %w", err)
	}
	return nil
}

// Create inserts a new tool and assigns its canonical ID.
func (r *Repo) Create(ctx context.Context, fields domain.ToolFields) (domain.Tool, error) {
	rec, err := recordFromDomain(domain.Tool{
		ID:          uuid.NewString(),
		Name:        fields.Name,
		Description: fields.Description,
		Tags:        fields.Tags,
		Metadata:    fields.Metadata,
	})
	if err != nil {
		return domain.Tool{}, err
	}

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Tool{}, fmt.Errorf("tool name %q: %w", fields.Name, domain.ErrAlreadyExists)
		}
		return domain.Tool{}, storeErr("create tool", err)
	}

	return recordToDomain(rec)
}

// Get returns a tool by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Tool, error) {
	var rec toolRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Tool{}, fmt.Errorf("tool %s: %w", id, domain.ErrNotFound)
		}
		return domain.Tool{}, storeErr("get tool", err)
	}
	return recordToDomain(rec)
}

// List returns tools ordered by creation time, then ID for a stable order.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]domain.Tool, error) {
	var recs []toolRecord
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, storeErr("list tools", err)
	}

	tools := make([]domain.Tool, 0, len(recs))
	for _, rec := range recs {
		t, err := recordToDomain(rec)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// Update saves the merged tool row. The caller performs the field merge;
// updated_at is refreshed by the autoUpdateTime hook.
func (r *Repo) Update(ctx context.Context, t domain.Tool) (domain.Tool, error) {
	rec, err := recordFromDomain(t)
	if err != nil {
		return domain.Tool{}, err
	}

	res := r.db.WithContext(ctx).Model(&toolRecord{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"name":        rec.Name,
			"description": rec.Description,
			"tags":        rec.Tags,
			"metadata":    rec.Metadata,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.Tool{}, fmt.Errorf("tool name %q: %w", t.Name, domain.ErrAlreadyExists)
		}
		return domain.Tool{}, storeErr("update tool", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Tool{}, fmt.Errorf("tool %s: %w", t.ID, domain.ErrNotFound)
	}

	return r.Get(ctx, t.ID)
}

// Delete removes a tool row.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&toolRecord{}, "id = ?", id)
	if res.Error != nil {
		return storeErr("delete tool", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tool %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Exists reports whether a tool row is present without hydrating it.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&toolRecord{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, storeErr("tool exists", err)
	}
	return count > 0, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
