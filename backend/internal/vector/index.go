package vector

import (
	"context"
	"errors"
)

// Collection names used by the service. Each record class lives in its own
// collection, and every nearest-neighbor query carries an equality filter on
// one of the payload tags below.
const (
	CollectionAliases   = "aliases"
	CollectionTemplates = "cypher_templates"
	CollectionClusters  = "raptor_nodes"
)

// ErrDuplicate is returned by an Index when an insert collides with an
// existing record. Callers that only need presence may swallow it.
var ErrDuplicate = errors.New("vector: duplicate record")

// Record is one embeddable object stored in the index.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is a nearest-neighbor result. Score is reported as 1 - cosine distance,
// so higher means more similar.
type Hit struct {
	Record
	Score float64
}

// Index is the narrow vector-store surface the service depends on.
// Implementations: Qdrant for production, Memory for tests and local dev.
type Index interface {
	// EnsureCollection creates the named collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dims int) error

	// Upsert writes a record, replacing any record with the same ID.
	Upsert(ctx context.Context, collection string, rec Record) error

	// Nearest returns up to limit records closest to vec, restricted to
	// records whose payload matches every key/value pair in filter.
	Nearest(ctx context.Context, collection string, vec []float32, filter map[string]string, limit int) ([]Hit, error)

	// FetchByKeyword returns records whose payload field equals any of the
	// given values. Used for exact lookups (by name, by entity ID).
	FetchByKeyword(ctx context.Context, collection, field string, values []string, limit int) ([]Record, error)
}

// StringField returns a payload value as a string, or "" if absent.
func (r Record) StringField(key string) string {
	if v, ok := r.Payload[key].(string); ok {
		return v
	}
	return ""
}

// BoolField returns a payload value as a bool, or false if absent.
func (r Record) BoolField(key string) bool {
	if v, ok := r.Payload[key].(bool); ok {
		return v
	}
	return false
}
