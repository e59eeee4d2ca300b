package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is the draft-stage scale a fragment was written at, from early
// brainstorming through numbered drafts to the final text.
type Stage int

const (
	Brainstorm Stage = -1
	Outline    Stage = 0
	Final      Stage = 11
)

var names = map[Stage]string{
	Brainstorm: "brainstorm",
	Outline:    "outline",
	Final:      "final",
}

// Name returns the symbolic name for the stage ("draft_3" for numbered drafts).
func (s Stage) Name() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("draft_%d", int(s))
}

// Valid reports whether the stage is on the -1..11 scale.
func (s Stage) Valid() bool {
	return s >= Brainstorm && s <= Final
}

// Confidence derives the fact confidence written to the graph for this stage.
// Brainstorm and outline text is barely trusted, final text fully.
func (s Stage) Confidence() float64 {
	switch s {
	case Brainstorm, Outline:
		return 0.1
	case Final:
		return 1.0
	default:
		return 0.5 + float64(s)/20.0
	}
}

// Parse accepts either a symbolic name ("brainstorm", "draft_4", "final") or
// an ordinal on the -1..11 scale.
func Parse(v any) (Stage, error) {
	switch t := v.(type) {
	case nil:
		return Brainstorm, nil
	case string:
		return parseName(t)
	case int:
		return fromOrdinal(t)
	case int64:
		return fromOrdinal(int(t))
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("stage must be an integer, got %v", t)
		}
		return fromOrdinal(int(t))
	default:
		return 0, fmt.Errorf("unsupported stage value %v (%T)", v, v)
	}
}

func parseName(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "brainstorm":
		return Brainstorm, nil
	case "outline":
		return Outline, nil
	case "final":
		return Final, nil
	}
	if rest, ok := strings.CutPrefix(name, "draft_"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil {
			return fromOrdinal(n)
		}
	}
	if n, err := strconv.Atoi(name); err == nil {
		return fromOrdinal(n)
	}
	return 0, fmt.Errorf("unknown stage name %q", name)
}

func fromOrdinal(n int) (Stage, error) {
	s := Stage(n)
	if !s.Valid() {
		return 0, fmt.Errorf("stage ordinal %d out of range [-1, 11]", n)
	}
	return s, nil
}
