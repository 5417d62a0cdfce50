package ai

import (
	"strings"
)

// Clean strips markdown code fences wrapped around model output: one
// leading "```json" (or else one leading "```") and one trailing "```",
// trimming whitespace around the result. Clean(Clean(s)) == Clean(s) for
// any s that does not nest fences. It never repairs the JSON itself.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
