package llm

import "strings"

// ExtractJSON strips surrounding whitespace and a markdown code fence, if
// the model wrapped its JSON object in one.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.Contains(content, "```json") {
		start := strings.Index(content, "```json") + 7
		end := strings.Index(content[start:], "```")
		if end > 0 {
			return strings.TrimSpace(content[start : start+end])
		}
	} else if strings.Contains(content, "```") {
		start := strings.Index(content, "```") + 3
		end := strings.Index(content[start:], "```")
		if end > 0 {
			candidate := strings.TrimSpace(content[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}
	return content
}
