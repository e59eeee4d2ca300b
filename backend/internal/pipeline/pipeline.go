package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/extractor"
	"storygraph/backend/internal/graph"
	"storygraph/backend/internal/identity"
	"storygraph/backend/internal/stage"
)

// ChunkInput is one submitted unit of narrative text.
type ChunkInput struct {
	Text    string
	Chapter int
	Stage   stage.Stage
	Tags    []string
}

// TemplateFinder resolves free text to the top-K matching templates.
type TemplateFinder interface {
	TopK(ctx context.Context, query string, mode catalog.Mode, k int) ([]catalog.Template, error)
}

// SlotFiller extracts template slot fills from text.
type SlotFiller interface {
	FillSlots(ctx context.Context, tpl catalog.Template, text string) ([]extractor.SlotFill, error)
}

// EntityResolver maps entity mentions to stable IDs and commits alias writes.
type EntityResolver interface {
	ResolveBulk(ctx context.Context, slots map[string]any, entityTypeOf map[string]string, chapter int, fragmentID, snippet string) (identity.BulkResolveResult, error)
	CommitAliases(ctx context.Context, tasks []identity.AliasTask) ([]graph.Statement, error)
	LookupDisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Clusterer assigns a fragment to a cluster.
type Clusterer interface {
	Insert(ctx context.Context, text, tripleText string) (string, error)
}

// ChunkID derives the content-addressed fragment ID: identical text always
// maps to the same ID.
func ChunkID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
