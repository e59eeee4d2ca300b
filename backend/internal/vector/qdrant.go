package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"storygraph/backend/pkg/logger"
)

// Qdrant implements Index against a Qdrant instance over gRPC.
type Qdrant struct {
	client *qdrant.Client
	logger *zap.Logger
}

// NewQdrant connects to Qdrant at host:port.
func NewQdrant(host string, port int) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Qdrant{
		client: client,
		logger: logger.Get(),
	}, nil
}

// Close closes the underlying gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// EnsureCollection creates the collection with cosine distance if absent.
func (q *Qdrant) EnsureCollection(ctx context.Context, collection string, dims int) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	q.logger.Info("Vector collection created",
		zap.String("collection", collection),
		zap.Int("dims", dims),
	)
	return nil
}

// Upsert writes a record, replacing any record with the same ID.
func (q *Qdrant) Upsert(ctx context.Context, collection string, rec Record) error {
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(rec.ID),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(normalizePayload(rec.Payload)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return nil
}

// Nearest runs a filtered nearest-neighbor query. Qdrant reports cosine
// results as similarity, which matches the 1 - distance convention of Hit.
func (q *Qdrant) Nearest(ctx context.Context, collection string, vec []float32, filter map[string]string, limit int) ([]Hit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vec...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("nearest query on %s failed: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			Record: Record{
				ID:      p.GetId().GetUuid(),
				Payload: decodePayload(p.GetPayload()),
			},
			Score: float64(p.GetScore()),
		})
	}
	return hits, nil
}

// FetchByKeyword scrolls records whose payload field matches any value.
func (q *Qdrant) FetchByKeyword(ctx context.Context, collection, field string, values []string, limit int) ([]Record, error) {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords(field, values...),
			},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll on %s failed: %w", collection, err)
	}

	records := make([]Record, 0, len(points))
	for _, p := range points {
		records = append(records, Record{
			ID:      p.GetId().GetUuid(),
			Payload: decodePayload(p.GetPayload()),
		})
	}
	return records, nil
}

func buildFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: conditions}
}

// normalizePayload converts payload values into types NewValueMap accepts.
func normalizePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch t := v.(type) {
		case []float64:
			list := make([]any, len(t))
			for i, f := range t {
				list[i] = f
			}
			out[k] = list
		case []string:
			list := make([]any, len(t))
			for i, s := range t {
				list[i] = s
			}
			out[k] = list
		default:
			out[k] = v
		}
	}
	return out
}

func decodePayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, decodeValue(item))
		}
		return list
	default:
		return nil
	}
}
