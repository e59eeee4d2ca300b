package compose

import (
	"strings"
	"testing"

	"storygraph/backend/internal/catalog"
	"storygraph/backend/internal/graph"
	apperrors "storygraph/backend/pkg/errors"
)

func membershipTemplate() catalog.Template {
	return catalog.Template{
		ID:   "tpl-1",
		Name: "membership_change_v1",
		Slots: map[string]catalog.SlotDefinition{
			"character": {Name: "character", Type: catalog.SlotString, Required: true, EntityType: "CHARACTER"},
			"faction":   {Name: "faction", Type: catalog.SlotString, Required: true, EntityType: "FACTION"},
			"summary":   {Name: "summary", Type: catalog.SlotString},
		},
		Relation: &catalog.RelationDescriptor{
			Predicate: "MEMBER_OF",
			Subject:   "$character",
			Object:    "$faction",
		},
		ExtractCypher: `MERGE (ch:Entity {id: '{{.character}}'})
MERGE (f:Entity {id: '{{.faction}}'})
MERGE (ch)-[r:MEMBER_OF {chunk_id: $chunk_id}]->(f)
SET r.summary = '{{.summary}}', r.chapter = {{.chapter}}`,
		AugmentCypher:   `MATCH (ch:Entity {id: '{{.character}}'})-[r:MEMBER_OF]->(f) RETURN ch.id AS source, f.id AS target`,
		SupportsExtract: true,
		SupportsAugment: true,
		UseBase:         true,
		ReturnMap:       map[string]string{"source": "entity", "target": "entity"},
	}
}

func testMeta() Meta {
	return Meta{ChunkID: "chunk-1", Chapter: 3, Stage: 2, Confidence: 0.6}
}

func TestRender_BaseWrapperSplitsIntoTwoStatements(t *testing.T) {
	fill := map[string]any{"character": "character-aabbccdd", "faction": "faction-11223344"}

	plan, err := Render(membershipTemplate(), fill, testMeta(), catalog.ModeExtract)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	statements, err := Split(plan.Statement)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(statements) != 2 {
		t.Fatalf("Base-wrapped statement must split into 2, got %d", len(statements))
	}
	for i, stmt := range statements {
		if strings.TrimSpace(stmt.Text) == "" {
			t.Errorf("Statement %d is empty", i)
		}
		if strings.Contains(stmt.Text, SeparatorMarker) {
			t.Errorf("Statement %d still contains the separator", i)
		}
	}
	if !strings.Contains(statements[0].Text, "MEMBER_OF") {
		t.Errorf("Domain statement should come first, got: %s", statements[0].Text)
	}
	if !strings.Contains(statements[1].Text, "MENTIONS") {
		t.Errorf("Attachment statement should come second, got: %s", statements[1].Text)
	}
	if statements[1].Params["chunk_id"] != "chunk-1" {
		t.Errorf("Params must carry the chunk ID, got %v", statements[1].Params)
	}
}

func TestRender_AugmentModeHasNoWrapper(t *testing.T) {
	fill := map[string]any{"character": "character-aabbccdd", "faction": "faction-11223344"}

	plan, err := Render(membershipTemplate(), fill, testMeta(), catalog.ModeAugment)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	statements, err := Split(plan.Statement)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("Augment statement must not split, got %d", len(statements))
	}
}

func TestRender_MissingRequiredSlotIsValidationError(t *testing.T) {
	_, err := Render(membershipTemplate(), map[string]any{"character": "character-aabbccdd"}, testMeta(), catalog.ModeExtract)
	if err == nil {
		t.Fatal("Expected an error for missing required slot")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestRender_EscapesStringValues(t *testing.T) {
	tpl := membershipTemplate()
	fill := map[string]any{
		"character": "character-aabbccdd",
		"faction":   "faction-11223344",
		"summary":   `joined O'Brien's guild \ left`,
	}

	plan, err := Render(tpl, fill, testMeta(), catalog.ModeExtract)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(plan.Statement.Text, `O\'Brien\'s guild \\ left`) {
		t.Errorf("Summary not escaped: %s", plan.Statement.Text)
	}
}

func TestRender_TripleAndRelatedEntities(t *testing.T) {
	fill := map[string]any{"character": "character-aabbccdd", "faction": "faction-11223344"}

	plan, err := Render(membershipTemplate(), fill, testMeta(), catalog.ModeExtract)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if plan.TripleText != "character-aabbccdd MEMBER_OF faction-11223344" {
		t.Errorf("Unexpected triple: %q", plan.TripleText)
	}
	if len(plan.RelatedEntityIDs) != 2 {
		t.Errorf("Expected both entity IDs as related, got %v", plan.RelatedEntityIDs)
	}
}

func TestRender_RelatedEntitiesExcludeLiteralSlots(t *testing.T) {
	tpl := catalog.Template{
		ID:   "tpl-2",
		Name: "trait_attribution_v1",
		Slots: map[string]catalog.SlotDefinition{
			"character": {Name: "character", Type: catalog.SlotString, Required: true, EntityType: "CHARACTER"},
			"trait":     {Name: "trait", Type: catalog.SlotString, Required: true},
		},
		Relation: &catalog.RelationDescriptor{
			Predicate: "HAS_TRAIT",
			Subject:   "$character",
			Object:    "$trait",
			Value:     "$trait",
		},
		ExtractCypher:   `MERGE (ch:Entity {id: '{{.character}}'})-[:HAS_TRAIT]->(:Trait {name: '{{.trait}}'})`,
		SupportsExtract: true,
		UseBase:         true,
		ReturnMap:       map[string]string{"source": "entity", "value": "literal"},
	}
	fill := map[string]any{"character": "character-aabbccdd", "trait": "brave"}

	plan, err := Render(tpl, fill, testMeta(), catalog.ModeExtract)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// Only resolved entity IDs get MENTIONS edges; literal values like trait
	// names would make the attachment MATCH miss and drop the whole row.
	if len(plan.RelatedEntityIDs) != 1 || plan.RelatedEntityIDs[0] != "character-aabbccdd" {
		t.Errorf("Expected only the entity-typed subject, got %v", plan.RelatedEntityIDs)
	}
	if plan.TripleText != "character-aabbccdd HAS_TRAIT brave" {
		t.Errorf("Literal object must still appear in the triple, got %q", plan.TripleText)
	}
}

func TestRender_UnsupportedModeRejected(t *testing.T) {
	tpl := membershipTemplate()
	tpl.SupportsAugment = false

	_, err := Render(tpl, map[string]any{"character": "c", "faction": "f"}, testMeta(), catalog.ModeAugment)
	if err == nil {
		t.Fatal("Expected an error for unsupported mode")
	}
}

func TestRender_MarkerInBodyIsCompositionError(t *testing.T) {
	tpl := membershipTemplate()
	tpl.ExtractCypher = "MERGE (a)\nWITH *\nMERGE (b)"

	_, err := Render(tpl, map[string]any{"character": "c", "faction": "f"}, testMeta(), catalog.ModeExtract)
	if err == nil {
		t.Fatal("Expected a composition error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeComposition) {
		t.Errorf("Expected a composition error, got %v", err)
	}
}

func TestSplit_NoMarkerReturnsSingleStatement(t *testing.T) {
	stmt := graph.Statement{Text: "MATCH (n) RETURN n", Params: map[string]any{}}
	statements, err := Split(stmt)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(statements) != 1 || statements[0].Text != stmt.Text {
		t.Errorf("Unexpected split result: %+v", statements)
	}
}

func TestSplit_MultipleMarkersAreFatal(t *testing.T) {
	stmt := graph.Statement{Text: "MERGE (a)\nWITH *\nMERGE (b)\nWITH *\nMERGE (c)"}
	_, err := Split(stmt)
	if err == nil {
		t.Fatal("Expected a composition error for multiple markers")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeComposition) {
		t.Errorf("Expected a composition error, got %v", err)
	}
}
