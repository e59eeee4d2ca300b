package catalog

import (
	"fmt"
	"strings"
)

// SlotType is the declared type of an extracted slot value.
type SlotType string

const (
	SlotString SlotType = "STRING"
	SlotInt    SlotType = "INT"
	SlotFloat  SlotType = "FLOAT"
	SlotBool   SlotType = "BOOL"
)

// Mode selects which statement body of a template is rendered.
type Mode string

const (
	// ModeExtract renders the graph-mutation body used on the write path.
	ModeExtract Mode = "extract"
	// ModeAugment renders the read-only query body used on the read path.
	ModeAugment Mode = "augment"
)

// SlotDefinition describes one value a template expects to be extracted
// from narrative text.
type SlotDefinition struct {
	Name        string   `json:"name"`
	Type        SlotType `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	// EntityType marks the slot as an entity reference (CHARACTER, FACTION,
	// LOCATION, ...). Empty means the value is a literal.
	EntityType string `json:"entity_type,omitempty"`
}

// RelationDescriptor describes the relation a template asserts. Subject and
// Object are either literals or "$slotName" references resolved at render
// time.
type RelationDescriptor struct {
	Predicate string `json:"predicate"`
	Subject   string `json:"subject"`
	Object    string `json:"object,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Template is a named, versioned definition mapping extracted slot values to
// a Cypher statement. A template may support extract mode, augment mode,
// both, or neither.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
	Category    string `json:"category,omitempty"`

	Slots    map[string]SlotDefinition `json:"slots"`
	Relation *RelationDescriptor       `json:"relation,omitempty"`

	ExtractCypher   string `json:"extract_cypher,omitempty"`
	AugmentCypher   string `json:"augment_cypher,omitempty"`
	SupportsExtract bool   `json:"supports_extract"`
	SupportsAugment bool   `json:"supports_augment"`

	// UseBase wraps the extract body in the shared base statement that
	// attaches chunk-to-entity MENTIONS edges.
	UseBase bool `json:"use_base"`

	// ReturnMap maps return-variable names to logical node roles.
	ReturnMap map[string]string `json:"return_map,omitempty"`

	// AugmentRequired lists slot names required in augment mode. When nil,
	// the entity-typed required slots are used.
	AugmentRequired []string `json:"augment_required,omitempty"`

	DefaultConfidence float64 `json:"default_confidence,omitempty"`
}

// Supports reports whether the template supports the given mode.
func (t Template) Supports(mode Mode) bool {
	switch mode {
	case ModeExtract:
		return t.SupportsExtract
	case ModeAugment:
		return t.SupportsAugment
	}
	return false
}

// Body returns the statement body for the given mode.
func (t Template) Body(mode Mode) string {
	if mode == ModeAugment {
		return t.AugmentCypher
	}
	return t.ExtractCypher
}

// RequiredSlots returns the slot names that must be present to render the
// template in the given mode.
func (t Template) RequiredSlots(mode Mode) []string {
	if mode == ModeAugment {
		if t.AugmentRequired != nil {
			return t.AugmentRequired
		}
		var names []string
		for name, slot := range t.Slots {
			if slot.Required && slot.EntityType != "" {
				names = append(names, name)
			}
		}
		return names
	}

	var names []string
	for name, slot := range t.Slots {
		if slot.Required {
			names = append(names, name)
		}
	}
	return names
}

// EntityTypeOf returns the slot-name to entity-type mapping for the
// template's entity-referencing slots.
func (t Template) EntityTypeOf() map[string]string {
	types := make(map[string]string)
	for name, slot := range t.Slots {
		if slot.EntityType != "" {
			types[name] = slot.EntityType
		}
	}
	return types
}

// Validate checks the template invariants: a supported mode must have a
// non-empty statement body, and slot names must match their map keys.
func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.SupportsExtract && strings.TrimSpace(t.ExtractCypher) == "" {
		return fmt.Errorf("template %s supports extract but has no extract body", t.Name)
	}
	if t.SupportsAugment && strings.TrimSpace(t.AugmentCypher) == "" {
		return fmt.Errorf("template %s supports augment but has no augment body", t.Name)
	}
	for name, slot := range t.Slots {
		if slot.Name != name {
			return fmt.Errorf("template %s: slot key %q does not match slot name %q", t.Name, name, slot.Name)
		}
		switch slot.Type {
		case SlotString, SlotInt, SlotFloat, SlotBool:
		default:
			return fmt.Errorf("template %s: slot %s has unknown type %q", t.Name, name, slot.Type)
		}
	}
	return nil
}

// CanonicalText returns the stable string fed to the embedder when the
// template is indexed. Description and details carry the semantics; field
// order changes elsewhere must not alter the vector.
func (t Template) CanonicalText() string {
	if t.Details == "" {
		return t.Description
	}
	return t.Description + " ‖ " + t.Details
}

/// EscapeString escapes a string for interpolation into a Cypher statement:
// backslashes first, then single quotes.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}
