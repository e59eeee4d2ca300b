package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"storygraph/backend/internal/catalog"
)

const extractSystemPrompt = `You extract structured facts from narrative text.

Given a fact template and a passage, return every instance of the template the
passage supports as a JSON list of objects. Each object maps slot names to
values and includes a short "rationale" string quoting the supporting text.
Return [] if the passage contains no instance. Respond with JSON only.`

const fallbackSystemPrompt = `You extract structured facts from narrative text.

A previous extraction pass came back empty or incomplete. Re-read the passage
carefully, including implied and indirectly stated facts, and return a JSON
list of objects matching the slot schema. Return [] only if the passage truly
contains no instance. Respond with JSON only.`

const generateSystemPrompt = `You polish extracted narrative facts.

Given a passage and a list of extracted fact objects, return the same list in
the same order, with any empty optional fields (such as "summary") filled in
from the passage and a one-sentence "details" string added to each object.
Do not add, remove or reorder objects. Respond with JSON only.`

func slotSchema(tpl catalog.Template) string {
	var sb strings.Builder
	for name, slot := range tpl.Slots {
		req := "optional"
		if slot.Required {
			req = "required"
		}
		fmt.Fprintf(&sb, "- %s (%s, %s)", name, slot.Type, req)
		if slot.Description != "" {
			fmt.Fprintf(&sb, ": %s", slot.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func extractMessage(tpl catalog.Template, text string) string {
	return fmt.Sprintf("Template: %s — %s\nSlots:\n%s\nPassage:\n%s",
		tpl.Title, tpl.Description, slotSchema(tpl), text)
}

func fallbackMessage(tpl catalog.Template, text string, previous []map[string]any) string {
	prev, _ := json.Marshal(previous)
	return fmt.Sprintf("Template: %s — %s\nSlots:\n%s\nPrevious output: %s\nPassage:\n%s",
		tpl.Title, tpl.Description, slotSchema(tpl), prev, text)
}

func generateMessage(tpl catalog.Template, text string, items []map[string]any) string {
	current, _ := json.Marshal(items)
	return fmt.Sprintf("Template: %s — %s\nSlots:\n%s\nExtracted facts: %s\nPassage:\n%s",
		tpl.Title, tpl.Description, slotSchema(tpl), current, text)
}
