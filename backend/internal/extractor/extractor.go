package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storygraph/backend/internal/catalog"
	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

// SlotFill is one extracted instance of a template: slot name -> typed value.
type SlotFill struct {
	TemplateID string
	Slots      map[string]any
	Rationale  string
}

// ChatCompleter is the LLM surface the extractor needs.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// Extractor fills template slots from narrative text in up to three LLM
// phases: extract, fallback (when extraction came back incomplete), and
// generate (backfills optional fields such as summaries).
type Extractor struct {
	llm    ChatCompleter
	logger *zap.Logger
}

// New creates an extractor over the given LLM.
func New(llm ChatCompleter) *Extractor {
	return &Extractor{
		llm:    llm,
		logger: logger.Get(),
	}
}

// FillSlots runs the phase pipeline for one template against the text.
// Returns zero fills when the text does not instantiate the template.
func (e *Extractor) FillSlots(ctx context.Context, tpl catalog.Template, text string) ([]SlotFill, error) {
	items, err := e.runPhase(ctx, extractSystemPrompt, extractMessage(tpl, text))
	if err != nil {
		return nil, err
	}

	// The fallback decision looks at the raw extract output: an incomplete
	// item means the whole batch gets a second pass, not a silent drop.
	if e.needsFallback(tpl, items) {
		fallback, err := e.runPhase(ctx, fallbackSystemPrompt, fallbackMessage(tpl, text, items))
		if err != nil {
			return nil, err
		}
		if len(fallback) > 0 {
			items = fallback
		}
	}
	items = e.validateItems(tpl, items)

	if len(items) > 0 {
		generated, err := e.runPhase(ctx, generateSystemPrompt, generateMessage(tpl, text, items))
		if err != nil {
			return nil, err
		}
		generated = e.validateItems(tpl, generated)
		if len(generated) == len(items) {
			items = generated
		} else {
			e.logger.Warn("Generate phase changed item count, keeping previous output",
				zap.String("template", tpl.Name),
				zap.Int("before", len(items)),
				zap.Int("after", len(generated)),
			)
		}
	}

	fills := make([]SlotFill, 0, len(items))
	for _, item := range items {
		rationale, _ := item["rationale"].(string)
		delete(item, "rationale")
		fills = append(fills, SlotFill{
			TemplateID: tpl.ID,
			Slots:      item,
			Rationale:  rationale,
		})
	}
	return fills, nil
}

// runPhase sends one prompt and parses the reply as a JSON list of objects.
// A single JSON object is promoted to a one-element list. The call and the
// parse share one retry; a second failure propagates.
func (e *Extractor) runPhase(ctx context.Context, systemPrompt, userMsg string) ([]map[string]any, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		content, err := e.llm.CompleteJSON(ctx, systemPrompt, userMsg)
		if err != nil {
			lastErr = err
			continue
		}
		items, err := parseItems(content)
		if err != nil {
			lastErr = err
			continue
		}
		return items, nil
	}
	return nil, apperrors.NewLLMError("slot extraction phase failed", lastErr)
}

func parseItems(content string) ([]map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" || content == "[]" || content == "null" {
		return nil, nil
	}

	var list []map[string]any
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list, nil
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(content), &single); err == nil {
		return []map[string]any{single}, nil
	}
	return nil, fmt.Errorf("response is neither a JSON list nor an object")
}

// needsFallback reports whether the extract phase came back empty or with a
// required slot missing from any item.
func (e *Extractor) needsFallback(tpl catalog.Template, items []map[string]any) bool {
	if len(items) == 0 {
		return true
	}
	for _, item := range items {
		for _, name := range tpl.RequiredSlots(catalog.ModeExtract) {
			if v, ok := item[name]; !ok || v == nil || v == "" {
				return true
			}
		}
	}
	return false
}

// validateItems coerces each item against the template's slot schema.
// Items missing a required slot are dropped; unknown keys other than
// rationale and details are stripped.
func (e *Extractor) validateItems(tpl catalog.Template, items []map[string]any) []map[string]any {
	valid := make([]map[string]any, 0, len(items))
itemLoop:
	for _, item := range items {
		out := make(map[string]any, len(item))
		for name, slot := range tpl.Slots {
			v, ok := item[name]
			if !ok || v == nil || v == "" {
				if slot.Required {
					e.logger.Debug("Dropping item missing required slot",
						zap.String("template", tpl.Name),
						zap.String("slot", name),
					)
					continue itemLoop
				}
				continue
			}
			coerced, err := coerce(v, slot.Type)
			if err != nil {
				if slot.Required {
					e.logger.Debug("Dropping item with uncoercible slot",
						zap.String("template", tpl.Name),
						zap.String("slot", name),
						zap.Error(err),
					)
					continue itemLoop
				}
				continue
			}
			out[name] = coerced
		}
		if rationale, ok := item["rationale"].(string); ok {
			out["rationale"] = rationale
		}
		if details, ok := item["details"].(string); ok {
			out["details"] = details
		}
		valid = append(valid, out)
	}
	return valid
}

// coerce converts a decoded JSON value to the declared slot type.
func coerce(v any, t catalog.SlotType) (any, error) {
	switch t {
	case catalog.SlotString:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return strconv.FormatInt(int64(x), 10), nil
			}
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
	case catalog.SlotInt:
		switch x := v.(type) {
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%v is not an integer", x)
			}
			return int(x), nil
		case string:
			return strconv.Atoi(strings.TrimSpace(x))
		}
	case catalog.SlotFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(x), 64)
		}
	case catalog.SlotBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(strings.ToLower(x)))
		}
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", v, t)
}
