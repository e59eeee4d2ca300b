package cluster

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storygraph/backend/internal/vector"
	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

const (
	// alpha weighs the text embedding against the fact embedding in the
	// blended centroid.
	alpha = 0.5
	// mergeDistance is the centroid distance at or under which a fragment
	// joins the nearest existing cluster instead of starting a new one.
	mergeDistance = 0.1
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index groups fragments by blended text+fact similarity. Greedy single-pass
// online clustering: only the single nearest cluster is considered, and a
// cluster's stored centroid never changes after creation.
type Index struct {
	index  vector.Index
	embed  Embedder
	logger *zap.Logger
}

// New creates a cluster index over the given vector index and embedder.
func New(index vector.Index, embed Embedder) *Index {
	return &Index{
		index:  index,
		embed:  embed,
		logger: logger.Get(),
	}
}

// Insert assigns the fragment to a cluster and returns the cluster ID. The
// centroid blends the text embedding with the embedding of the newline-joined
// relation triples; an empty tripleText falls back to the text alone.
func (c *Index) Insert(ctx context.Context, text, tripleText string) (string, error) {
	textVec, err := c.embed.Embed(ctx, text)
	if err != nil {
		return "", apperrors.NewVectorError("failed to embed fragment text", err)
	}

	centroid := textVec
	if tripleText != "" {
		factVec, err := c.embed.Embed(ctx, tripleText)
		if err != nil {
			return "", apperrors.NewVectorError("failed to embed fact text", err)
		}
		centroid = blend(textVec, factVec)
	}

	hits, err := c.index.Nearest(ctx, vector.CollectionClusters, centroid, nil, 1)
	if err != nil {
		return "", apperrors.NewVectorError("cluster search failed", err)
	}
	if len(hits) > 0 {
		if dist := 1 - hits[0].Score; dist <= mergeDistance {
			c.logger.Debug("Fragment merged into existing cluster",
				zap.String("cluster_id", hits[0].ID),
				zap.Float64("distance", dist),
			)
			return hits[0].ID, nil
		}
	}

	id := uuid.NewString()
	rec := vector.Record{
		ID:     id,
		Vector: centroid,
		Payload: map[string]any{
			"text":        text,
			"triple_text": tripleText,
		},
	}
	if err := c.index.Upsert(ctx, vector.CollectionClusters, rec); err != nil {
		return "", apperrors.NewVectorError(fmt.Sprintf("failed to store cluster %s", id), err)
	}

	c.logger.Debug("New cluster created", zap.String("cluster_id", id))
	return id, nil
}

func blend(textVec, factVec []float32) []float32 {
	out := make([]float32, len(textVec))
	for i := range textVec {
		out[i] = float32(alpha)*textVec[i] + float32(1-alpha)*factVec[i]
	}
	return out
}
