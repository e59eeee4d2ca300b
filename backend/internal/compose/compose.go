package compose

import (
	"fmt"
	"strings"
	"text/template"

	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/graph"
	apperrors "storygraph/backend/pkg/errors"
)

// SeparatorMarker splits a rendered statement into independently executable
// Cypher statements. Template bodies must not contain it; only the base
// wrapper introduces it.
const SeparatorMarker = "WITH *"

// baseAttach links the chunk node to every entity the statement referenced.
// It runs as the second statement of a base-wrapped extract plan.
const baseAttach = `MATCH (c:Chunk {id: $chunk_id})
UNWIND $related_entity_ids AS eid
MATCH (e:Entity {id: eid})
MERGE (c)-[:MENTIONS]->(e)`

// Meta carries the per-fragment context interpolated into every statement.
type Meta struct {
	ChunkID string
	Chapter int
	Stage   int
	// Confidence derived from the stage, unless the template overrides it.
	Confidence float64
	Tags       []string
}

// Plan is a rendered template: the statement to execute plus the fact it
// asserts.
type Plan struct {
	TemplateID   string
	TemplateName string
	Statement    graph.Statement
	// TripleText is the human-readable "subject PREDICATE object" form of the
	// asserted fact, empty when the template declares no relation.
	TripleText string
	// RelatedEntityIDs are the resolved entity IDs the statement references.
	RelatedEntityIDs []string
	ReturnMap        map[string]string
}

// Render interpolates the filled slot values and fragment metadata into the
// template body for the given mode. String values are escaped before
// interpolation; chunk metadata travels as statement parameters.
func Render(tpl catalog.Template, fill map[string]any, meta Meta, mode catalog.Mode) (Plan, error) {
	if !tpl.Supports(mode) {
		return Plan{}, apperrors.NewValidationError(
			fmt.Sprintf("template %s does not support %s mode", tpl.Name, mode), nil)
	}
	if mode == catalog.ModeExtract && len(tpl.ReturnMap) == 0 {
		return Plan{}, apperrors.NewValidationError(
			fmt.Sprintf("template %s has no return map", tpl.Name), nil)
	}

	for _, name := range tpl.RequiredSlots(mode) {
		if v, ok := fill[name]; !ok || v == nil || v == "" {
			return Plan{}, apperrors.NewValidationError(
				fmt.Sprintf("template %s: required slot %q is missing", tpl.Name, name), nil)
		}
	}

	ctx := buildContext(tpl, fill, meta)

	body := tpl.Body(mode)
	if strings.Contains(body, SeparatorMarker) {
		return Plan{}, apperrors.NewCompositionError(
			fmt.Sprintf("template %s body contains the separator marker", tpl.Name), nil)
	}
	if mode == catalog.ModeExtract && tpl.UseBase {
		body = body + "\n" + SeparatorMarker + "\n" + baseAttach
	}

	text, err := execute(tpl.Name, body, ctx)
	if err != nil {
		return Plan{}, apperrors.NewCompositionError(
			fmt.Sprintf("template %s failed to render", tpl.Name), err)
	}

	related := relatedEntityIDs(tpl, fill)
	plan := Plan{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Statement: graph.Statement{
			Text: text,
			Params: map[string]any{
				"chunk_id":           meta.ChunkID,
				"related_entity_ids": related,
			},
		},
		TripleText:       tripleText(tpl, fill),
		RelatedEntityIDs: related,
		ReturnMap:        tpl.ReturnMap,
	}
	return plan, nil
}

// Split breaks a rendered statement at the separator marker. No marker means
// one statement, one marker means two. More than one is a composition bug and
// aborts the whole batch.
func Split(stmt graph.Statement) ([]graph.Statement, error) {
	switch n := strings.Count(stmt.Text, SeparatorMarker); n {
	case 0:
		return []graph.Statement{stmt}, nil
	case 1:
		idx := strings.Index(stmt.Text, SeparatorMarker)
		first := strings.TrimSpace(stmt.Text[:idx])
		second := strings.TrimSpace(stmt.Text[idx+len(SeparatorMarker):])
		return []graph.Statement{
			{Text: first, Params: stmt.Params},
			{Text: second, Params: stmt.Params},
		}, nil
	default:
		return nil, apperrors.NewCompositionError(
			fmt.Sprintf("statement contains %d separator markers, at most 1 allowed", n), nil)
	}
}

func buildContext(tpl catalog.Template, fill map[string]any, meta Meta) map[string]any {
	ctx := make(map[string]any, len(tpl.Slots)+6)
	for name, slot := range tpl.Slots {
		v, ok := fill[name]
		if !ok || v == nil {
			if slot.Default != nil {
				v = slot.Default
			} else {
				v = ""
			}
		}
		if s, isStr := v.(string); isStr {
			v = catalog.EscapeString(s)
		}
		ctx[name] = v
	}

	details := ""
	if d, ok := fill["details"].(string); ok {
		details = d
	}

	confidence := meta.Confidence
	if tpl.DefaultConfidence > 0 {
		confidence = tpl.DefaultConfidence
	}

	ctx["chunk_id"] = meta.ChunkID
	ctx["chapter"] = meta.Chapter
	ctx["stage"] = meta.Stage
	ctx["confidence"] = confidence
	ctx["details"] = catalog.EscapeString(details)
	ctx["tags"] = catalog.EscapeString(strings.Join(meta.Tags, ","))
	return ctx
}

func execute(name, body string, ctx map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, ctx); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// resolveRef turns a "$slot" reference into the filled value, or returns the
// reference text verbatim when it is a literal.
func resolveRef(ref string, fill map[string]any) string {
	if name, ok := strings.CutPrefix(ref, "$"); ok {
		if v, present := fill[name]; present && v != nil {
			return fmt.Sprintf("%v", v)
		}
		return ""
	}
	return ref
}

func tripleText(tpl catalog.Template, fill map[string]any) string {
	if tpl.Relation == nil {
		return ""
	}
	subject := resolveRef(tpl.Relation.Subject, fill)
	object := resolveRef(tpl.Relation.Object, fill)
	if object == "" {
		object = resolveRef(tpl.Relation.Value, fill)
	}
	if subject == "" || object == "" {
		return ""
	}
	return fmt.Sprintf("%s %s %s", subject, tpl.Relation.Predicate, object)
}

// relatedEntityIDs collects the resolved IDs of entity-typed slots referenced
// by the relation, for the chunk-to-entity attachment.
func relatedEntityIDs(tpl catalog.Template, fill map[string]any) []string {
	if tpl.Relation == nil {
		return nil
	}
	entityTypes := tpl.EntityTypeOf()
	ids := make([]string, 0, 2)
	for _, ref := range []string{tpl.Relation.Subject, tpl.Relation.Object} {
		name, ok := strings.CutPrefix(ref, "$")
		if !ok {
			continue
		}
		if _, isEntity := entityTypes[name]; !isEntity {
			continue
		}
		if v, present := fill[name].(string); present && v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}
