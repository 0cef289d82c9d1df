package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/toolscout/toolscout/internal/domain"
)

func TestCreate(t *testing.T) {
	t.Run("writes row then vector", func(t *testing.T) {
		var order []string
		repo := &mockRepo{
			createFn: func(_ context.Context, fields domain.ToolFields) (domain.Tool, error) {
				order = append(order, "repo.create")
				return domain.Tool{ID: "id-1", Name: fields.Name, Description: fields.Description, Tags: fields.Tags}, nil
			},
		}
		index := &mockIndex{
			upsertFn: func(_ context.Context, id string, vec []float32) error {
				order = append(order, "index.upsert")
				if id != "id-1" {
					t.Errorf("upsert id = %q, want id-1", id)
				}
				return nil
			},
		}
		emb := &mockEmbedder{}
		svc := newTestService(t, repo, index, emb)

		created, err := svc.Create(context.Background(), domain.ToolFields{
			Name:        "weather",
			Description: "current weather lookup",
			Tags:        []string{"api", "forecast"},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created.ID != "id-1" {
			t.Errorf("created.ID = %q, want id-1", created.ID)
		}

		want := []string{"repo.create", "index.upsert"}
		if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
			t.Errorf("call order = %v, want %v", order, want)
		}
		if emb.texts[0] != "weather\ncurrent weather lookup\napi forecast" {
			t.Errorf("embedded text = %q", emb.texts[0])
		}
	})

	t.Run("rejects invalid fields before any store call", func(t *testing.T) {
		repo := &mockRepo{
			createFn: func(context.Context, domain.ToolFields) (domain.Tool, error) {
				t.Fatal("repo.Create must not be called")
				return domain.Tool{}, nil
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		_, err := svc.Create(context.Background(), domain.ToolFields{Name: "   "})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("duplicate name surfaces ErrAlreadyExists", func(t *testing.T) {
		repo := &mockRepo{
			createFn: func(context.Context, domain.ToolFields) (domain.Tool, error) {
				return domain.Tool{}, domain.ErrAlreadyExists
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		_, err := svc.Create(context.Background(), domain.ToolFields{Name: "weather"})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("err = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("embed failure keeps the row and reports drift", func(t *testing.T) {
		repo := &mockRepo{
			createFn: func(context.Context, domain.ToolFields) (domain.Tool, error) {
				return domain.Tool{ID: "id-1", Name: "weather"}, nil
			},
		}
		emb := &mockEmbedder{
			embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
				return domain.EmbeddingResult{}, errors.New("provider down")
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, emb)

		created, err := svc.Create(context.Background(), domain.ToolFields{Name: "weather"})
		if !errors.Is(err, domain.ErrIndexSync) {
			t.Fatalf("err = %v, want ErrIndexSync", err)
		}
		if created.ID != "id-1" {
			t.Error("created tool must be returned even when the index write fails")
		}

		var syncErr *domain.IndexSyncError
		if !errors.As(err, &syncErr) {
			t.Fatal("expected *IndexSyncError")
		}
		if syncErr.ToolID != "id-1" || syncErr.Side != domain.SideVector {
			t.Errorf("syncErr = %+v, want tool id-1 on vector side", syncErr)
		}
	})

	t.Run("upsert failure reports drift", func(t *testing.T) {
		repo := &mockRepo{
			createFn: func(context.Context, domain.ToolFields) (domain.Tool, error) {
				return domain.Tool{ID: "id-1", Name: "weather"}, nil
			},
		}
		index := &mockIndex{
			upsertFn: func(context.Context, string, []float32) error {
				return errors.New("index down")
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		_, err := svc.Create(context.Background(), domain.ToolFields{Name: "weather"})
		if !errors.Is(err, domain.ErrIndexSync) {
			t.Fatalf("err = %v, want ErrIndexSync", err)
		}
	})

	t.Run("records token usage in context", func(t *testing.T) {
		repo := &mockRepo{
			createFn: func(context.Context, domain.ToolFields) (domain.Tool, error) {
				return domain.Tool{ID: "id-1", Name: "weather"}, nil
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		ctx, usage := domain.NewContextWithUsage(context.Background())
		if _, err := svc.Create(ctx, domain.ToolFields{Name: "weather"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if usage.TotalTokens != 5 {
			t.Errorf("usage.TotalTokens = %d, want 5", usage.TotalTokens)
		}
	})
}

func TestUpdate(t *testing.T) {
	current := domain.Tool{
		ID:          "id-1",
		Name:        "weather",
		Description: "lookup",
		Tags:        []string{"api"},
	}

	t.Run("searchable change re-embeds", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) { return current, nil },
			updateFn: func(_ context.Context, merged domain.Tool) (domain.Tool, error) {
				if merged.Name != "weather-v2" {
					t.Errorf("merged.Name = %q, want weather-v2", merged.Name)
				}
				return merged, nil
			},
		}
		var upserted bool
		index := &mockIndex{
			upsertFn: func(context.Context, string, []float32) error {
				upserted = true
				return nil
			},
		}
		emb := &mockEmbedder{}
		svc := newTestService(t, repo, index, emb)

		updated, err := svc.Update(context.Background(), "id-1", domain.ToolPatch{Name: strPtr("weather-v2")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Name != "weather-v2" {
			t.Errorf("updated.Name = %q", updated.Name)
		}
		if !upserted {
			t.Error("expected vector upsert after a name change")
		}
		if emb.texts[0] != "weather-v2\nlookup\napi" {
			t.Errorf("embedded text = %q", emb.texts[0])
		}
	})

	t.Run("metadata-only update skips the index", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) { return current, nil },
			updateFn: func(_ context.Context, merged domain.Tool) (domain.Tool, error) {
				return merged, nil
			},
		}
		index := &mockIndex{
			upsertFn: func(context.Context, string, []float32) error {
				t.Fatal("index must not be touched for metadata-only updates")
				return nil
			},
		}
		emb := &mockEmbedder{}
		svc := newTestService(t, repo, index, emb)

		desc := current.Description
		if _, err := svc.Update(context.Background(), "id-1", domain.ToolPatch{Description: &desc}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if emb.calls != 0 {
			t.Errorf("embedder called %d times, want 0", emb.calls)
		}
	})

	t.Run("tag-only change re-embeds", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) { return current, nil },
			updateFn: func(_ context.Context, merged domain.Tool) (domain.Tool, error) {
				return merged, nil
			},
		}
		emb := &mockEmbedder{}
		svc := newTestService(t, repo, &mockIndex{}, emb)

		if _, err := svc.Update(context.Background(), "id-1", domain.ToolPatch{Tags: tagsPtr("api", "new")}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if emb.calls != 1 {
			t.Errorf("embedder called %d times, want 1", emb.calls)
		}
	})

	t.Run("empty patch is a no-op returning current state", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) { return current, nil },
			updateFn: func(context.Context, domain.Tool) (domain.Tool, error) {
				t.Fatal("repo.Update must not be called for an empty patch")
				return domain.Tool{}, nil
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		got, err := svc.Update(context.Background(), "id-1", domain.ToolPatch{})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Name != current.Name {
			t.Errorf("got.Name = %q, want %q", got.Name, current.Name)
		}
	})

	t.Run("unknown tool surfaces ErrNotFound", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) {
				return domain.Tool{}, domain.ErrNotFound
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		_, err := svc.Update(context.Background(), "missing", domain.ToolPatch{Name: strPtr("x")})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("re-embed failure keeps the updated row and reports drift", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) { return current, nil },
			updateFn: func(_ context.Context, merged domain.Tool) (domain.Tool, error) {
				return merged, nil
			},
		}
		index := &mockIndex{
			upsertFn: func(context.Context, string, []float32) error {
				return errors.New("index down")
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		updated, err := svc.Update(context.Background(), "id-1", domain.ToolPatch{Name: strPtr("weather-v2")})
		if !errors.Is(err, domain.ErrIndexSync) {
			t.Fatalf("err = %v, want ErrIndexSync", err)
		}
		if updated.Name != "weather-v2" {
			t.Error("updated tool must be returned even when the index write fails")
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes vector before row", func(t *testing.T) {
		var order []string
		repo := &mockRepo{
			deleteFn: func(context.Context, string) error {
				order = append(order, "repo.delete")
				return nil
			},
		}
		index := &mockIndex{
			deleteFn: func(context.Context, string) error {
				order = append(order, "index.delete")
				return nil
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		if err := svc.Delete(context.Background(), "id-1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if len(order) != 2 || order[0] != "index.delete" || order[1] != "repo.delete" {
			t.Errorf("call order = %v, want [index.delete repo.delete]", order)
		}
	})

	t.Run("unknown tool surfaces ErrNotFound", func(t *testing.T) {
		repo := &mockRepo{
			existsFn: func(context.Context, string) (bool, error) { return false, nil },
		}
		index := &mockIndex{
			deleteFn: func(context.Context, string) error {
				t.Fatal("index must not be touched for an unknown tool")
				return nil
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("vector failure aborts before the row is touched", func(t *testing.T) {
		repo := &mockRepo{
			deleteFn: func(context.Context, string) error {
				t.Fatal("repo.Delete must not run after a vector failure")
				return nil
			},
		}
		index := &mockIndex{
			deleteFn: func(context.Context, string) error {
				return errors.New("index down")
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		if err := svc.Delete(context.Background(), "id-1"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("row failure after the vector is gone reports relational drift", func(t *testing.T) {
		repo := &mockRepo{
			deleteFn: func(context.Context, string) error {
				return errors.New("db down")
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		err := svc.Delete(context.Background(), "id-1")
		var syncErr *domain.IndexSyncError
		if !errors.As(err, &syncErr) {
			t.Fatalf("err = %v, want *IndexSyncError", err)
		}
		if syncErr.Side != domain.SideRelational {
			t.Errorf("side = %s, want relational", syncErr.Side)
		}
	})
}

func TestList(t *testing.T) {
	t.Run("clamps limit to the configured maximum", func(t *testing.T) {
		repo := &mockRepo{
			listFn: func(_ context.Context, offset, limit int) ([]domain.Tool, error) {
				if offset != 0 || limit != 100 {
					t.Errorf("offset=%d limit=%d, want 0 and 100", offset, limit)
				}
				return nil, nil
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		if _, err := svc.List(context.Background(), -5, 5000); err != nil {
			t.Fatalf("List: %v", err)
		}
	})

	t.Run("zero limit uses the default page size", func(t *testing.T) {
		repo := &mockRepo{
			listFn: func(_ context.Context, _, limit int) ([]domain.Tool, error) {
				if limit != 20 {
					t.Errorf("limit = %d, want 20", limit)
				}
				return nil, nil
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		if _, err := svc.List(context.Background(), 0, 0); err != nil {
			t.Fatalf("List: %v", err)
		}
	})
}

func TestReembed(t *testing.T) {
	t.Run("recomputes and upserts", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) {
				return domain.Tool{ID: "id-1", Name: "weather"}, nil
			},
		}
		var upserted bool
		index := &mockIndex{
			upsertFn: func(context.Context, string, []float32) error {
				upserted = true
				return nil
			},
		}
		svc := newTestService(t, repo, index, &mockEmbedder{})

		if err := svc.Reembed(context.Background(), "id-1"); err != nil {
			t.Fatalf("Reembed: %v", err)
		}
		if !upserted {
			t.Error("expected vector upsert")
		}
	})

	t.Run("unknown tool surfaces ErrNotFound", func(t *testing.T) {
		repo := &mockRepo{
			getFn: func(context.Context, string) (domain.Tool, error) {
				return domain.Tool{}, domain.ErrNotFound
			},
		}
		svc := newTestService(t, repo, &mockIndex{}, &mockEmbedder{})

		if err := svc.Reembed(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestPurgeOrphans(t *testing.T) {
	repo := &mockRepo{
		existsFn: func(_ context.Context, id string) (bool, error) {
			return id == "live", nil
		},
	}
	var deleted []string
	index := &mockIndex{
		listIDsFn: func(context.Context) ([]string, error) {
			return []string{"live", "ghost-1", "ghost-2"}, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	svc := newTestService(t, repo, index, &mockEmbedder{})

	purged, err := svc.PurgeOrphans(context.Background())
	if err != nil {
		t.Fatalf("PurgeOrphans: %v", err)
	}
	if len(purged) != 2 || purged[0] != "ghost-1" || purged[1] != "ghost-2" {
		t.Errorf("purged = %v, want [ghost-1 ghost-2]", purged)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %v, want the two ghosts only", deleted)
	}
}
