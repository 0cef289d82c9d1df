// Package vector is the vector index adapter. It owns VectorEntry
// persistence: IDs and embeddings only, no structured tool fields.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/toolscout/toolscout/internal/db"
	redisdb "github.com/toolscout/toolscout/internal/db/redis"
	"github.com/toolscout/toolscout/internal/domain"
)

// store is the consumer interface for vector index operations.
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

const (
	fieldToolID = "tool_id"
	fieldVector = "vector"
)

// Candidate is one nearest-neighbor hit: a tool ID with its similarity score.
type Candidate struct {
	ID    string
	Score float64
}

// Config holds index layout and HNSW build parameters.
type Config struct {
	IndexName       string
	KeyPrefix       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements upsert/delete/query over (tool id → embedding) entries.
type Repo struct {
	store store
	cfg   Config
}

// New creates a vector index repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index with the configured dimension. Called once
// at startup; an already existing index is not an error.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.keyPrefix()).
		Tag(fieldToolID).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert replaces the entry for id wholesale. At most one entry per id.
func (r *Repo) Upsert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != r.cfg.Dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vec), r.cfg.Dimensions)
	}
	fields := map[string]string{
		fieldToolID: id,
		fieldVector: redisdb.VectorToBytes(vec),
	}
	if err := r.store.HSet(ctx, r.key(id), fields); err != nil {
		return fmt.Errorf("upsert vector %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the entry for id. Deleting a non-existent id is not an
// error: DEL on a missing key is a no-op.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete vector %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Query returns up to k nearest candidates sorted by descending similarity,
// ties broken by ascending id. IDs never repeat; k larger than the index is
// clamped by the backend.
func (r *Repo) Query(ctx context.Context, vec []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       vec,
		K:            k,
		ReturnFields: []string{fieldToolID, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w: %w", domain.ErrStoreUnavailable, err)
	}

	seen := make(map[string]bool, len(res.Entries))
	candidates := make([]Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		id := e.Fields[fieldToolID]
		if id == "" {
			id = strings.TrimPrefix(e.Key, r.keyPrefix())
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, Candidate{ID: id, Score: e.Score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates, nil
}

// GetVector returns the stored embedding for id, or domain.ErrNotFound.
func (r *Repo) GetVector(ctx context.Context, id string) ([]float32, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return nil, fmt.Errorf("get vector %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	blob, ok := fields[fieldVector]
	if !ok {
		return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
	}
	vec, err := redisdb.BytesToVector([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("parse vector %s: %w", id, err)
	}
	return vec, nil
}

// ListIDs returns every tool id present in the index, for reconciliation.
func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan vectors: %w: %w", domain.ErrStoreUnavailable, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, r.keyPrefix()))
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repo) keyPrefix() string {
	return r.cfg.KeyPrefix + "vec:"
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}
