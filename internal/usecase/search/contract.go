package search

import (
	"context"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/repository/vector"
)

// ToolReader hydrates search candidates from the source of truth.
type ToolReader interface {
	Get(ctx context.Context, id string) (domain.Tool, error)
}

// VectorIndex runs nearest-neighbor queries over tool embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vec []float32, k int) ([]vector.Candidate, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// HistoryRecorder records executed searches. Failures here never fail the
// search itself.
type HistoryRecorder interface {
	Record(ctx context.Context, query string, resultIDs []string) error
}
