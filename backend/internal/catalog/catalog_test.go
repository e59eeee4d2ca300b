package catalog

import (
	"context"
	"testing"

	"storygraph/backend/internal/vector"
)

// axisEmbedder maps known texts to fixed vectors and everything else to a
// default axis, so relevance ordering in tests is deterministic.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (a *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := a.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func testTemplate(name string, extract, augment bool) Template {
	return Template{
		Name:        name,
		Version:     "1.0.0",
		Description: "desc " + name,
		Slots: map[string]SlotDefinition{
			"character": {Name: "character", Type: SlotString, Required: true, EntityType: "CHARACTER"},
		},
		ExtractCypher:   "MERGE (n)",
		AugmentCypher:   "MATCH (n) RETURN n",
		SupportsExtract: extract,
		SupportsAugment: augment,
		ReturnMap:       map[string]string{"source": "entity"},
	}
}

func TestUpsert_KeepsStableIDAcrossUpdates(t *testing.T) {
	index := vector.NewMemory()
	c := New(index, &axisEmbedder{}, 3)
	ctx := context.Background()

	first, err := c.Upsert(ctx, testTemplate("membership_change_v1", true, true))
	if err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Upsert must assign an ID")
	}

	updated := testTemplate("membership_change_v1", true, true)
	updated.Description = "changed"
	second, err := c.Upsert(ctx, updated)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Update must keep the ID: %s vs %s", first.ID, second.ID)
	}
}

func TestGetByName(t *testing.T) {
	index := vector.NewMemory()
	c := New(index, &axisEmbedder{}, 3)
	ctx := context.Background()

	stored, err := c.Upsert(ctx, testTemplate("trait_attribution_v1", true, false))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := c.GetByName(ctx, "trait_attribution_v1")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.ID != stored.ID || got.Name != "trait_attribution_v1" {
		t.Errorf("Unexpected template: %+v", got)
	}
	if !got.SupportsExtract || got.SupportsAugment {
		t.Errorf("Mode flags lost in round trip: %+v", got)
	}

	if _, err := c.GetByName(ctx, "missing"); err == nil {
		t.Error("Expected an error for unknown template")
	}
}

func TestTopK_FiltersByMode(t *testing.T) {
	index := vector.NewMemory()
	embed := &axisEmbedder{vectors: map[string][]float32{
		"desc both":         {1, 0, 0},
		"desc extract-only": {0.9, 0.1, 0},
		"query":             {1, 0, 0},
	}}
	c := New(index, embed, 3)
	ctx := context.Background()

	if _, err := c.Upsert(ctx, testTemplate("both", true, true)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := c.Upsert(ctx, testTemplate("extract-only", true, false)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	augment, err := c.TopK(ctx, "query", ModeAugment, 3)
	if err != nil {
		t.Fatalf("TopK failed: %v", err)
	}
	if len(augment) != 1 || augment[0].Name != "both" {
		t.Errorf("Augment filter wrong: %+v", augment)
	}

	extract, err := c.TopK(ctx, "query", ModeExtract, 3)
	if err != nil {
		t.Fatalf("TopK failed: %v", err)
	}
	if len(extract) != 2 {
		t.Errorf("Expected both templates for extract, got %d", len(extract))
	}
	if extract[0].Name != "both" {
		t.Errorf("Expected relevance ordering, got %+v", extract)
	}
}

func TestSeedTemplates_CoverBaseCatalog(t *testing.T) {
	seeds := SeedTemplates()
	if len(seeds) != 10 {
		t.Fatalf("Expected 10 seed templates, got %d", len(seeds))
	}

	byName := make(map[string]Template, len(seeds))
	for _, seed := range seeds {
		if err := seed.Validate(); err != nil {
			t.Errorf("Seed %s invalid: %v", seed.Name, err)
		}
		byName[seed.Name] = seed
	}

	predicates := map[string]string{
		"trait_attribution_v1":  "HAS_TRAIT",
		"membership_change_v1":  "MEMBER_OF",
		"character_relation_v1": "RELATION_WITH",
		"ownership_v1":          "OWNS_ITEM",
		"relocation_v1":         "AT_LOCATION",
		"emotion_state_v1":      "FEELS",
		"vow_promise_v1":        "VOWS",
		"death_event_v1":        "IS_ALIVE",
		"belief_ideology_v1":    "BELIEVES_IN",
		"title_acquisition_v1":  "HAS_TITLE",
	}
	for name, predicate := range predicates {
		seed, ok := byName[name]
		if !ok {
			t.Errorf("Seed %s missing", name)
			continue
		}
		if seed.Relation == nil || seed.Relation.Predicate != predicate {
			t.Errorf("Seed %s: expected predicate %s, got %+v", name, predicate, seed.Relation)
		}
		if char, ok := seed.Slots["character"]; ok && char.EntityType != "CHARACTER" {
			t.Errorf("Seed %s: character slot not entity-typed: %+v", name, char)
		}
	}

	// Death marks the subject dead with a literal, not a slot reference.
	death := byName["death_event_v1"]
	if death.Relation.Value != "false" || death.Relation.Subject != "$character" {
		t.Errorf("Unexpected death relation: %+v", death.Relation)
	}
}

func TestBootstrap_ImportsSeeds(t *testing.T) {
	index := vector.NewMemory()
	c := New(index, &axisEmbedder{}, 3)
	ctx := context.Background()

	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	for _, seed := range SeedTemplates() {
		got, err := c.GetByName(ctx, seed.Name)
		if err != nil {
			t.Errorf("Seed %s not imported: %v", seed.Name, err)
			continue
		}
		if err := got.Validate(); err != nil {
			t.Errorf("Seed %s invalid after round trip: %v", seed.Name, err)
		}
	}

	// Bootstrap is idempotent: IDs survive a second run.
	first, _ := c.GetByName(ctx, "membership_change_v1")
	if err := c.Bootstrap(ctx); err != nil {
		t.Fatalf("Second bootstrap failed: %v", err)
	}
	second, _ := c.GetByName(ctx, "membership_change_v1")
	if first.ID != second.ID {
		t.Errorf("Re-bootstrap changed template ID: %s vs %s", first.ID, second.ID)
	}
}

func TestValidate(t *testing.T) {
	tpl := testTemplate("ok", true, true)
	if err := tpl.Validate(); err != nil {
		t.Errorf("Valid template rejected: %v", err)
	}

	missing := testTemplate("missing-body", true, false)
	missing.ExtractCypher = ""
	if err := missing.Validate(); err == nil {
		t.Error("Supported mode with empty body must be rejected")
	}

	mismatch := testTemplate("mismatch", true, false)
	mismatch.Slots["other"] = SlotDefinition{Name: "different", Type: SlotString}
	if err := mismatch.Validate(); err == nil {
		t.Error("Slot key/name mismatch must be rejected")
	}

	badType := testTemplate("bad-type", true, false)
	badType.Slots["x"] = SlotDefinition{Name: "x", Type: "DATE"}
	if err := badType.Validate(); err == nil {
		t.Error("Unknown slot type must be rejected")
	}
}

func TestRequiredSlots_AugmentDefaultsToEntitySlots(t *testing.T) {
	tpl := testTemplate("t", true, true)
	tpl.Slots["summary"] = SlotDefinition{Name: "summary", Type: SlotString}

	augment := tpl.RequiredSlots(ModeAugment)
	if len(augment) != 1 || augment[0] != "character" {
		t.Errorf("Augment required slots = %v, want [character]", augment)
	}

	tpl.AugmentRequired = []string{}
	if got := tpl.RequiredSlots(ModeAugment); len(got) != 0 {
		t.Errorf("Explicit empty AugmentRequired must win, got %v", got)
	}
}

func TestEscapeString(t *testing.T) {
	if got := EscapeString(`O'Brien \ co`); got != `O\'Brien \\ co` {
		t.Errorf("EscapeString wrong: %q", got)
	}
	// Backslashes escape first so quote escapes are not double-escaped.
	if got := EscapeString(`\'`); got != `\\\'` {
		t.Errorf("EscapeString order wrong: %q", got)
	}
}
