package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Index used by tests and local development.
// It brute-forces cosine similarity over all stored records.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Record)}
}

// EnsureCollection creates the collection map if absent.
func (m *Memory) EnsureCollection(ctx context.Context, collection string, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[string]Record)
	}
	return nil
}

// Upsert stores a record, replacing any record with the same ID.
func (m *Memory) Upsert(ctx context.Context, collection string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Record)
		m.collections[collection] = coll
	}
	coll[rec.ID] = rec
	return nil
}

// Nearest returns up to limit records by descending cosine similarity,
// restricted to records matching every filter pair.
func (m *Memory) Nearest(ctx context.Context, collection string, vec []float32, filter map[string]string, limit int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Hit
	for _, rec := range m.collections[collection] {
		if !matchesFilter(rec, filter) {
			continue
		}
		hits = append(hits, Hit{Record: rec, Score: cosineSimilarity(vec, rec.Vector)})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// FetchByKeyword returns records whose payload field equals any given value.
func (m *Memory) FetchByKeyword(ctx context.Context, collection, field string, values []string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}

	var records []Record
	for _, rec := range m.collections[collection] {
		if wanted[rec.StringField(field)] {
			records = append(records, rec)
			if len(records) == limit {
				break
			}
		}
	}
	return records, nil
}

func matchesFilter(rec Record, filter map[string]string) bool {
	for k, v := range filter {
		if rec.StringField(k) != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
