package pipeline

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/compose"
	"storygraph/backend/internal/graph"
	"storygraph/backend/internal/stage"
	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

// augmentFragmentID is the sentinel used for resolutions on the read path,
// which have no chunk to associate provenance with.
const augmentFragmentID = "augment-query"

// entityIDPattern matches minted entity IDs like "character-3fa8b21c".
var entityIDPattern = regexp.MustCompile(`^[a-z_]+-[0-9a-f]{8}$`)

// Summarizer optionally condenses the retrieved rows into prose.
type Summarizer func(ctx context.Context, rows []map[string]any) (string, error)

// AugmentResult is what the read path returns to the caller.
type AugmentResult struct {
	Rows    []map[string]any `json:"rows"`
	Summary string           `json:"summary,omitempty"`
}

// Augmentation drives the read-only context-retrieval path: match templates
// to the query, resolve mentioned entities, run the augment queries, and
// rewrite opaque IDs back into display names.
type Augmentation struct {
	templates  TemplateFinder
	filler     SlotFiller
	resolver   EntityResolver
	runner     graph.Runner
	topK       int
	summarizer Summarizer
	logger     *zap.Logger
}

// NewAugmentation wires the read-path orchestrator. summarizer may be nil.
func NewAugmentation(templates TemplateFinder, filler SlotFiller, resolver EntityResolver, runner graph.Runner, topK int, summarizer Summarizer) *Augmentation {
	return &Augmentation{
		templates:  templates,
		filler:     filler,
		resolver:   resolver,
		runner:     runner,
		topK:       topK,
		summarizer: summarizer,
		logger:     logger.Get(),
	}
}

// AugmentContext retrieves graph context relevant to the query text. One
// template's extraction failure is logged and skipped; the remaining
// templates still run.
func (a *Augmentation) AugmentContext(ctx context.Context, in ChunkInput) (*AugmentResult, error) {
	templates, err := a.templates.TopK(ctx, in.Text, catalog.ModeAugment, a.topK)
	if err != nil {
		return nil, err
	}

	meta := compose.Meta{
		ChunkID:    augmentFragmentID,
		Chapter:    in.Chapter,
		Stage:      int(in.Stage),
		Confidence: in.Stage.Confidence(),
		Tags:       in.Tags,
	}

	var rows []map[string]any
	aliasMap := make(map[string]string)
	for _, tpl := range templates {
		tplRows, err := a.queryTemplate(ctx, tpl, in, meta, aliasMap)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tplRows...)
	}

	if err := a.substituteDisplayNames(ctx, rows, aliasMap); err != nil {
		return nil, err
	}
	for _, row := range rows {
		nameStageFields(row)
		deriveDisplayTriple(row)
	}

	result := &AugmentResult{Rows: rows}
	if a.summarizer != nil && len(rows) > 0 {
		summary, err := a.summarizer(ctx, rows)
		if err != nil {
			a.logger.Warn("Summarizer failed, returning rows without summary", zap.Error(err))
		} else {
			result.Summary = summary
		}
	}
	return result, nil
}

func (a *Augmentation) queryTemplate(ctx context.Context, tpl catalog.Template, in ChunkInput, meta compose.Meta, aliasMap map[string]string) ([]map[string]any, error) {
	fills, err := a.filler.FillSlots(ctx, tpl, in.Text)
	if err != nil {
		a.logger.Warn("Slot extraction failed, skipping template",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		return nil, nil
	}
	if len(fills) == 0 {
		return nil, nil
	}
	fill := fills[0]

	resolved, err := a.resolver.ResolveBulk(ctx, fill.Slots, tpl.EntityTypeOf(), in.Chapter, augmentFragmentID, in.Text)
	if err != nil {
		return nil, err
	}
	// Read path: pending alias tasks are discarded, only the name map is kept.
	for id, name := range resolved.AliasMap {
		aliasMap[id] = name
	}

	plan, err := compose.Render(tpl, resolved.MappedSlots, meta, catalog.ModeAugment)
	if err != nil {
		if apperrors.IsValidation(err) {
			a.logger.Warn("Skipping template with unrenderable fill",
				zap.String("template", tpl.Name),
				zap.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}

	statements, err := compose.Split(plan.Statement)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, stmt := range statements {
		stmtRows, err := a.runner.RunRead(ctx, stmt)
		if err != nil {
			return nil, err
		}
		rows = append(rows, stmtRows...)
	}
	patchNullRelationFields(rows, tpl, resolved.MappedSlots)
	return rows, nil
}

// patchNullRelationFields backfills null source/target/value columns from the
// template's relation descriptor and the resolved slot fill, so a query that
// returns no stored value still surfaces the mention from the request.
func patchNullRelationFields(rows []map[string]any, tpl catalog.Template, mapped map[string]any) {
	if tpl.Relation == nil {
		return
	}
	refs := map[string]string{
		"source": tpl.Relation.Subject,
		"target": tpl.Relation.Object,
		"value":  tpl.Relation.Value,
	}
	for _, row := range rows {
		for column, ref := range refs {
			current, present := row[column]
			if !present || current != nil || ref == "" {
				continue
			}
			name, isRef := cutSlotRef(ref)
			if !isRef {
				row[column] = ref
				continue
			}
			if v, ok := mapped[name].(string); ok && v != "" {
				row[column] = v
			}
		}
	}
}

func cutSlotRef(ref string) (string, bool) {
	if len(ref) > 1 && ref[0] == '$' {
		return ref[1:], true
	}
	return "", false
}

// substituteDisplayNames replaces opaque entity IDs in row values with
// display names: first from the resolution pass's alias map, then via one
// batched lookup for whatever is still unresolved.
func (a *Augmentation) substituteDisplayNames(ctx context.Context, rows []map[string]any, aliasMap map[string]string) error {
	var residual []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for key, value := range row {
			id, ok := value.(string)
			if !ok || !entityIDPattern.MatchString(id) {
				continue
			}
			if name, known := aliasMap[id]; known {
				row[key] = name
			} else if !seen[id] {
				seen[id] = true
				residual = append(residual, id)
			}
		}
	}
	if len(residual) == 0 {
		return nil
	}

	names, err := a.resolver.LookupDisplayNames(ctx, residual)
	if err != nil {
		return err
	}
	for _, row := range rows {
		for key, value := range row {
			if id, ok := value.(string); ok {
				if name, known := names[id]; known {
					row[key] = name
				}
			}
		}
	}
	return nil
}

// nameStageFields converts a numeric stage column to its symbolic name.
func nameStageFields(row map[string]any) {
	v, ok := row["stage"]
	if !ok {
		return
	}
	s, err := stage.Parse(v)
	if err != nil {
		return
	}
	row["stage"] = s.Name()
}

// deriveDisplayTriple attaches a human-readable "source RELATION object"
// string when the row carries all three parts.
func deriveDisplayTriple(row map[string]any) {
	source, _ := row["source"].(string)
	relation, _ := row["relation"].(string)
	object, _ := row["target"].(string)
	if object == "" {
		object, _ = row["value"].(string)
	}
	if source == "" || relation == "" || object == "" {
		return
	}
	row["display"] = source + " " + relation + " " + object
}
