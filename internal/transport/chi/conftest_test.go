package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/toolscout/toolscout/internal/domain"
	"github.com/toolscout/toolscout/internal/repository/vector"
	healthuc "github.com/toolscout/toolscout/internal/usecase/health"
	historyuc "github.com/toolscout/toolscout/internal/usecase/history"
	searchuc "github.com/toolscout/toolscout/internal/usecase/search"
	tooluc "github.com/toolscout/toolscout/internal/usecase/tool"
)

// fakeToolRepo is an in-memory tool store for handler tests.
type fakeToolRepo struct {
	tools     map[string]domain.Tool
	nextID    int
	createErr error
}

func newFakeToolRepo() *fakeToolRepo {
	return &fakeToolRepo{tools: make(map[string]domain.Tool), nextID: 1}
}

func (f *fakeToolRepo) Create(_ context.Context, fields domain.ToolFields) (domain.Tool, error) {
	if f.createErr != nil {
		return domain.Tool{}, f.createErr
	}
	for _, t := range f.tools {
		if t.Name == fields.Name {
			return domain.Tool{}, domain.ErrAlreadyExists
		}
	}
	id := "tool-" + string(rune('0'+f.nextID))
	f.nextID++
	t := domain.Tool{
		ID:          id,
		Name:        fields.Name,
		Description: fields.Description,
		Tags:        fields.Tags,
		Metadata:    fields.Metadata,
	}
	f.tools[id] = t
	return t, nil
}

func (f *fakeToolRepo) Get(_ context.Context, id string) (domain.Tool, error) {
	t, ok := f.tools[id]
	if !ok {
		return domain.Tool{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeToolRepo) List(_ context.Context, offset, limit int) ([]domain.Tool, error) {
	out := make([]domain.Tool, 0, len(f.tools))
	for _, t := range f.tools {
		out = append(out, t)
	}
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (f *fakeToolRepo) Update(_ context.Context, t domain.Tool) (domain.Tool, error) {
	if _, ok := f.tools[t.ID]; !ok {
		return domain.Tool{}, domain.ErrNotFound
	}
	f.tools[t.ID] = t
	return t, nil
}

func (f *fakeToolRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.tools[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.tools, id)
	return nil
}

func (f *fakeToolRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.tools[id]
	return ok, nil
}

// fakeIndex records upserts and serves canned query results.
type fakeIndex struct {
	vectors    map[string][]float32
	upsertErr  error
	candidates []vector.Candidate
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{vectors: make(map[string][]float32)}
}

func (f *fakeIndex) Upsert(_ context.Context, id string, vec []float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.vectors[id] = vec
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	delete(f.vectors, id)
	return nil
}

func (f *fakeIndex) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.vectors))
	for id := range f.vectors {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, _ int) ([]vector.Candidate, error) {
	return f.candidates, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

type fakeHistoryRepo struct {
	entries []domain.SearchHistoryEntry
}

func (f *fakeHistoryRepo) Record(_ context.Context, query string, ids []string) error {
	f.entries = append([]domain.SearchHistoryEntry{{ID: "h", Query: query, Results: ids}}, f.entries...)
	return nil
}

func (f *fakeHistoryRepo) ListRecent(_ context.Context, limit int) ([]domain.SearchHistoryEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type testEnv struct {
	repo    *fakeToolRepo
	index   *fakeIndex
	emb     *fakeEmbedder
	history *fakeHistoryRepo
	router  *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:    newFakeToolRepo(),
		index:   newFakeIndex(),
		emb:     &fakeEmbedder{},
		history: &fakeHistoryRepo{},
	}

	logger := zap.NewNop()
	toolSvc := tooluc.New(env.repo, env.index, env.emb, logger)
	searchSvc := searchuc.New(
		env.repo, env.index, env.emb, env.history,
		searchuc.Config{DefaultLimit: 10, MaxLimit: 100, MinScore: 0.3},
		logger,
	)
	historySvc := historyuc.New(env.history, 10, 100)
	healthSvc := healthuc.New(&fakePinger{}, &fakePinger{}, nil)

	server := NewServer(toolSvc, searchSvc, historySvc, healthSvc, logger)
	env.router = chi.NewRouter()
	server.Routes(env.router)

	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *httptest.ResponseRecorder = httptest.NewRecorder()
	r := httptest.NewRequest(method, path, bodyReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	e.router.ServeHTTP(req, r)
	return req
}

func bodyReader(body string) io.Reader {
	if body == "" {
		return http.NoBody
	}
	return strings.NewReader(body)
}
