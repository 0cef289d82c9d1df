package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/toolscout/toolscout/internal/domain/metadata"
)

// MaxNameLen bounds the tool name length in bytes.
const MaxNameLen = 255

// Tool is a catalog record. The relational store is the source of truth for
// every field here; the vector index only carries the embedding keyed by ID.
type Tool struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Metadata    metadata.Value
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanonicalText returns the normalized embedding input derived from the
// searchable fields. Create and update paths both go through here so the
// stored vector stays consistent with the row.
func (t Tool) CanonicalText() string {
	return CanonicalText(t.Name, t.Description, t.Tags)
}

// CanonicalText joins name, description, and space-joined tags with a newline
// separator, skipping parts that are empty after trimming.
func CanonicalText(name, description string, tags []string) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(name); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(description); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(strings.Join(tags, " ")); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// ToolFields is the caller-supplied portion of a tool on create.
type ToolFields struct {
	Name        string
	Description string
	Tags        []string
	Metadata    metadata.Value
}

// Validate checks create input. Name is required; description may be empty.
func (f ToolFields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if len(f.Name) > MaxNameLen {
		return fmt.Errorf("name too long (max %d bytes): %w", MaxNameLen, ErrValidation)
	}
	return nil
}

// ToolPatch is a partial update. Nil fields retain prior values.
type ToolPatch struct {
	Name        *string
	Description *string
	Tags        *[]string
	Metadata    *metadata.Value
}

// Validate checks update input.
func (p ToolPatch) Validate() error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("name cannot be empty: %w", ErrValidation)
		}
		if len(*p.Name) > MaxNameLen {
			return fmt.Errorf("name too long (max %d bytes): %w", MaxNameLen, ErrValidation)
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ToolPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Tags == nil && p.Metadata == nil
}

// TouchesSearchable reports whether applying the patch to the given tool
// changes any field contributing to the canonical embedding text. Tag changes
// count: the canonical text includes tags, so tag-only updates re-embed.
func (p ToolPatch) TouchesSearchable(current Tool) bool {
	if p.Name != nil && *p.Name != current.Name {
		return true
	}
	if p.Description != nil && *p.Description != current.Description {
		return true
	}
	if p.Tags != nil && !equalTags(*p.Tags, current.Tags) {
		return true
	}
	return false
}

// Apply merges the patch into a copy of the tool. Timestamps are left to the
// relational adapter.
func (p ToolPatch) Apply(t Tool) Tool {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Tags != nil {
		tags := make([]string, len(*p.Tags))
		copy(tags, *p.Tags)
		t.Tags = tags
	}
	if p.Metadata != nil {
		t.Metadata = *p.Metadata
	}
	return t
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ToolResult is a single search hit: the hydrated tool plus its similarity
// score (higher = more similar, regardless of the index's internal metric).
type ToolResult struct {
	Tool  Tool
	Score float64
}
