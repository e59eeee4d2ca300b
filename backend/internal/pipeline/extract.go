package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/compose"
	"storygraph/backend/internal/graph"
	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

// ExtractResult is what the write path returns to the caller.
type ExtractResult struct {
	ChunkID       string   `json:"chunkId"`
	ClusterID     string   `json:"clusterId"`
	Relationships []string `json:"relationships"`
	Aliases       []string `json:"aliases"`
}

// Extraction drives the full write path for one fragment: persist the chunk,
// extract facts per matching template, resolve identities, write the graph
// statements, and cluster the fragment.
type Extraction struct {
	templates TemplateFinder
	filler    SlotFiller
	resolver  EntityResolver
	clusters  Clusterer
	runner    graph.Runner
	topK      int
	logger    *zap.Logger
}

// NewExtraction wires the write-path orchestrator.
func NewExtraction(templates TemplateFinder, filler SlotFiller, resolver EntityResolver, clusters Clusterer, runner graph.Runner, topK int) *Extraction {
	return &Extraction{
		templates: templates,
		filler:    filler,
		resolver:  resolver,
		clusters:  clusters,
		runner:    runner,
		topK:      topK,
		logger:    logger.Get(),
	}
}

// ExtractAndSave processes one fragment. The chunk ID is content-addressed,
// so identical text reuses the same chunk node; the per-template graph writes
// are merge-by-key but otherwise not guarded against re-processing.
func (e *Extraction) ExtractAndSave(ctx context.Context, in ChunkInput) (*ExtractResult, error) {
	chunkID := ChunkID(in.Text)

	if err := e.runner.RunWrite(ctx, []graph.Statement{chunkStatement(chunkID, in)}); err != nil {
		return nil, err
	}

	templates, err := e.templates.TopK(ctx, in.Text, catalog.ModeExtract, e.topK)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Processing fragment",
		zap.String("chunk_id", chunkID),
		zap.Int("chapter", in.Chapter),
		zap.Int("templates", len(templates)),
	)

	meta := compose.Meta{
		ChunkID:    chunkID,
		Chapter:    in.Chapter,
		Stage:      int(in.Stage),
		Confidence: in.Stage.Confidence(),
		Tags:       in.Tags,
	}

	var relationships, aliases []string
	for _, tpl := range templates {
		triple, aliasSummaries, err := e.processTemplate(ctx, tpl, in, meta)
		if err != nil {
			return nil, err
		}
		if triple != "" {
			relationships = append(relationships, triple)
		}
		aliases = append(aliases, aliasSummaries...)
	}

	clusterID, err := e.clusters.Insert(ctx, in.Text, strings.Join(relationships, "\n"))
	if err != nil {
		return nil, err
	}
	if err := e.runner.RunWrite(ctx, []graph.Statement{{
		Text:   `MATCH (c:Chunk {id: $id}) SET c.cluster_id = $cluster_id`,
		Params: map[string]any{"id": chunkID, "cluster_id": clusterID},
	}}); err != nil {
		return nil, err
	}

	return &ExtractResult{
		ChunkID:       chunkID,
		ClusterID:     clusterID,
		Relationships: relationships,
		Aliases:       aliases,
	}, nil
}

// processTemplate runs one template end to end. Slot-extraction failures are
// isolated to the template; resolution, composition and graph failures
// propagate.
func (e *Extraction) processTemplate(ctx context.Context, tpl catalog.Template, in ChunkInput, meta compose.Meta) (string, []string, error) {
	fills, err := e.filler.FillSlots(ctx, tpl, in.Text)
	if err != nil {
		e.logger.Warn("Slot extraction failed, skipping template",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		return "", nil, nil
	}
	if len(fills) == 0 {
		return "", nil, nil
	}
	fill := fills[0]

	resolved, err := e.resolver.ResolveBulk(ctx, fill.Slots, tpl.EntityTypeOf(), in.Chapter, meta.ChunkID, in.Text)
	if err != nil {
		return "", nil, err
	}

	aliasStatements, err := e.resolver.CommitAliases(ctx, resolved.Tasks)
	if err != nil {
		return "", nil, err
	}

	plan, err := compose.Render(tpl, resolved.MappedSlots, meta, catalog.ModeExtract)
	if err != nil {
		if apperrors.IsValidation(err) {
			e.logger.Warn("Skipping template with unrenderable fill",
				zap.String("template", tpl.Name),
				zap.Error(err),
			)
			return "", nil, nil
		}
		return "", nil, err
	}

	domainStatements, err := compose.Split(plan.Statement)
	if err != nil {
		return "", nil, err
	}

	// Entities must exist before the domain statement references them.
	batch := append(aliasStatements, domainStatements...)
	if err := e.runner.RunWrite(ctx, batch); err != nil {
		return "", nil, err
	}

	aliasSummaries := make([]string, 0, len(resolved.Tasks))
	for _, task := range resolved.Tasks {
		aliasSummaries = append(aliasSummaries, fmt.Sprintf("%s = %s", task.AliasText, task.EntityID))
	}
	return plan.TripleText, aliasSummaries, nil
}

func chunkStatement(chunkID string, in ChunkInput) graph.Statement {
	return graph.Statement{
		Text: `MERGE (c:Chunk {id: $id})
SET c.text = $text,
    c.chapter = $chapter,
    c.stage = $stage,
    c.tags = $tags`,
		Params: map[string]any{
			"id":      chunkID,
			"text":    in.Text,
			"chapter": in.Chapter,
			"stage":   int(in.Stage),
			"tags":    in.Tags,
		},
	}
}
