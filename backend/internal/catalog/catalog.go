package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storygraph/backend/internal/vector"
	"storygraph/backend/pkg/logger"
)

// lowScoreDistance is the distance above which the best search hit is
// considered a poor match and logged for inspection.
const lowScoreDistance = 0.5

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Catalog stores template definitions in the vector index and resolves
// free-text queries to the best-matching templates.
type Catalog struct {
	index  vector.Index
	embed  Embedder
	dims   int
	logger *zap.Logger
}

// New creates a catalog over the given index and embedder.
func New(index vector.Index, embed Embedder, dims int) *Catalog {
	return &Catalog{
		index:  index,
		embed:  embed,
		dims:   dims,
		logger: logger.Get(),
	}
}

// Bootstrap creates the template collection and imports the seed templates.
// Individual seed failures are logged, not fatal.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	if err := c.index.EnsureCollection(ctx, vector.CollectionTemplates, c.dims); err != nil {
		return fmt.Errorf("failed to ensure template collection: %w", err)
	}

	for _, tpl := range SeedTemplates() {
		if _, err := c.Upsert(ctx, tpl); err != nil {
			c.logger.Warn("Failed to import seed template",
				zap.String("template", tpl.Name),
				zap.Error(err),
			)
			continue
		}
		c.logger.Debug("Imported template", zap.String("template", tpl.Name))
	}
	return nil
}

// Upsert creates or updates a template by name and returns it with a stable
// ID: an existing template keeps its ID across updates.
func (c *Catalog) Upsert(ctx context.Context, tpl Template) (Template, error) {
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}

	existing, err := c.index.FetchByKeyword(ctx, vector.CollectionTemplates, "name", []string{tpl.Name}, 1)
	if err != nil {
		return Template{}, fmt.Errorf("failed to look up template %s: %w", tpl.Name, err)
	}
	if len(existing) > 0 {
		tpl.ID = existing[0].ID
	} else if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}

	vec, err := c.embed.Embed(ctx, tpl.CanonicalText())
	if err != nil {
		return Template{}, fmt.Errorf("failed to embed template %s: %w", tpl.Name, err)
	}

	body, err := json.Marshal(tpl)
	if err != nil {
		return Template{}, fmt.Errorf("failed to marshal template %s: %w", tpl.Name, err)
	}

	rec := vector.Record{
		ID:     tpl.ID,
		Vector: vec,
		Payload: map[string]any{
			"name":             tpl.Name,
			"category":         tpl.Category,
			"supports_extract": strconv.FormatBool(tpl.SupportsExtract),
			"supports_augment": strconv.FormatBool(tpl.SupportsAugment),
			"json":             string(body),
		},
	}
	if err := c.index.Upsert(ctx, vector.CollectionTemplates, rec); err != nil {
		return Template{}, fmt.Errorf("failed to store template %s: %w", tpl.Name, err)
	}
	return tpl, nil
}

// GetByName fetches a template by its unique name.
func (c *Catalog) GetByName(ctx context.Context, name string) (Template, error) {
	records, err := c.index.FetchByKeyword(ctx, vector.CollectionTemplates, "name", []string{name}, 1)
	if err != nil {
		return Template{}, fmt.Errorf("failed to fetch template %s: %w", name, err)
	}
	if len(records) == 0 {
		return Template{}, fmt.Errorf("template %q not found", name)
	}
	return decodeTemplate(records[0])
}

// TopK returns the k templates most relevant to the query text that support
// the given mode, in relevance order.
func (c *Catalog) TopK(ctx context.Context, query string, mode Mode, k int) ([]Template, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := c.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter := map[string]string{"supports_" + string(mode): "true"}
	hits, err := c.index.Nearest(ctx, vector.CollectionTemplates, vec, filter, k)
	if err != nil {
		return nil, fmt.Errorf("template search failed: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	if dist := 1 - hits[0].Score; dist > lowScoreDistance {
		c.logger.Warn("Top template match scored below threshold",
			zap.String("query", query),
			zap.String("template", hits[0].StringField("name")),
			zap.Float64("distance", dist),
		)
	}

	templates := make([]Template, 0, len(hits))
	for _, hit := range hits {
		tpl, err := decodeTemplate(hit.Record)
		if err != nil {
			c.logger.Warn("Skipping undecodable template record",
				zap.String("id", hit.ID),
				zap.Error(err),
			)
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func decodeTemplate(rec vector.Record) (Template, error) {
	raw := rec.StringField("json")
	if raw == "" {
		return Template{}, fmt.Errorf("template record %s has no body", rec.ID)
	}
	var tpl Template
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		return Template{}, fmt.Errorf("failed to decode template record %s: %w", rec.ID, err)
	}
	tpl.ID = rec.ID
	return tpl, nil
}
