package tool

import (
	"context"

	"github.com/toolscout/toolscout/internal/domain"
)

// Repository defines the relational storage contract for tools.
type Repository interface {
	Create(ctx context.Context, fields domain.ToolFields) (domain.Tool, error)
	Get(ctx context.Context, id string) (domain.Tool, error)
	List(ctx context.Context, offset, limit int) ([]domain.Tool, error)
	Update(ctx context.Context, t domain.Tool) (domain.Tool, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// VectorIndex defines the vector index contract for tool embeddings.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
