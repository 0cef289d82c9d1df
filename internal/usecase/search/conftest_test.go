package search

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/repository/vector"
)

type mockToolReader struct {
	getFn func(ctx context.Context, id string) (domain.Tool, error)
}

func (m *mockToolReader) Get(ctx context.Context, id string) (domain.Tool, error) {
	return m.getFn(ctx, id)
}

type mockIndex struct {
	queryFn func(ctx context.Context, vec []float32, k int) ([]vector.Candidate, error)
}

func (m *mockIndex) Query(ctx context.Context, vec []float32, k int) ([]vector.Candidate, error) {
	return m.queryFn(ctx, vec, k)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 7}, nil
}

type mockHistory struct {
	recordFn func(ctx context.Context, query string, resultIDs []string) error
}

func (m *mockHistory) Record(ctx context.Context, query string, resultIDs []string) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, query, resultIDs)
	}
	return nil
}

func newTestService(
	t *testing.T,
	tools *mockToolReader,
	index *mockIndex,
	emb *mockEmbedder,
	history *mockHistory,
) *Service {
	t.Helper()
	cfg := Config{DefaultLimit: 10, MaxLimit: 100, MinScore: 0.3}
	return New(tools, index, emb, history, cfg, zap.NewNop())
}
