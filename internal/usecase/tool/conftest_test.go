package tool

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
)

type mockRepo struct {
	createFn func(ctx context.Context, fields domain.ToolFields) (domain.Tool, error)
	getFn    func(ctx context.Context, id string) (domain.Tool, error)
	listFn   func(ctx context.Context, offset, limit int) ([]domain.Tool, error)
	updateFn func(ctx context.Context, t domain.Tool) (domain.Tool, error)
	deleteFn func(ctx context.Context, id string) error
	existsFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockRepo) Create(ctx context.Context, fields domain.ToolFields) (domain.Tool, error) {
	return m.createFn(ctx, fields)
}

func (m *mockRepo) Get(ctx context.Context, id string) (domain.Tool, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) List(ctx context.Context, offset, limit int) ([]domain.Tool, error) {
	return m.listFn(ctx, offset, limit)
}

func (m *mockRepo) Update(ctx context.Context, t domain.Tool) (domain.Tool, error) {
	return m.updateFn(ctx, t)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}

type mockIndex struct {
	upsertFn  func(ctx context.Context, id string, vec []float32) error
	deleteFn  func(ctx context.Context, id string) error
	listIDsFn func(ctx context.Context) ([]string, error)
}

func (m *mockIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, id, vec)
	}
	return nil
}

func (m *mockIndex) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockIndex) ListIDs(ctx context.Context) ([]string, error) {
	return m.listIDsFn(ctx)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
	texts   []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 5}, nil
}

func newTestService(t *testing.T, repo *mockRepo, index *mockIndex, emb *mockEmbedder) *Service {
	t.Helper()
	return New(repo, index, emb, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func tagsPtr(tags ...string) *[]string { return &tags }
