package identity

import (
	"fmt"
	"strings"

	"storygraph/backend/internal/vector"
)

const disambiguationSystemPrompt = `You resolve entity mentions in narrative text against a list of known entities.

Given a mention and candidate entities, decide:
- "use" if the mention refers to one of the candidates (correct obvious misspellings in alias_text)
- "skip" if the mention is not an entity reference at all (a pronoun, a generic noun, a description)
- "new" if the mention is a real entity but none of the candidates match

Respond with a single JSON object and nothing else:
{"action": "use", "entity_id": "<candidate id>", "alias_text": "<the mention as it should be recorded>"}
or {"action": "skip"}
or {"action": "new"}`

func disambiguationMessage(raw, entityType string, candidates []vector.Hit, chapter int, snippet string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mention: %q (type %s, chapter %d)\n", raw, entityType, chapter)
	if snippet != "" {
		fmt.Fprintf(&sb, "Context: %s\n", snippet)
	}
	sb.WriteString("Candidates:\n")
	for _, c := range candidates {
		name := c.StringField("display_name")
		if name == "" {
			name = c.StringField("alias_text")
		}
		fmt.Fprintf(&sb, "- id=%s known_as=%q similarity=%.2f\n",
			c.StringField("entity_id"), name, c.Score)
	}
	return sb.String()
}
