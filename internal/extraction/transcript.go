package extraction

import "strings"

// Turn is one utterance from a structured transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const userRole = "user"

// UserLines isolates what the caller said. Structured turns win when present;
// otherwise the flat transcript is split into "role: text" lines. Everything is
// lowercased and blank lines are dropped.
func UserLines(transcript string, turns []Turn) []string {
	if len(turns) > 0 {
		var lines []string
		for _, t := range turns {
			if !strings.EqualFold(strings.TrimSpace(t.Role), userRole) {
				continue
			}
			lines = appendLines(lines, t.Content)
		}
		return lines
	}

	var lines []string
	for _, raw := range strings.Split(transcript, "\n") {
		role, text, ok := strings.Cut(raw, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(role), userRole) {
			continue
		}
		lines = appendLines(lines, text)
	}
	return lines
}

func appendLines(lines []string, content string) []string {
	for _, part := range strings.Split(content, "\n") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}
