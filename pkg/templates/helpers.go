package templates

import (
	"encoding/json"
	"strings"
	"text/template"
)

// helperFuncs are available inside every prompt template.
var helperFuncs = template.FuncMap{
	"json":     ToJSON,
	"joinWith": JoinWith,
	"truncate": TruncateRunes,
}

// ToJSON renders a value as compact JSON for embedding in prompts.
func ToJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// JoinWith joins strings with a separator, skipping empties.
func JoinWith(sep string, items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, sep)
}

// TruncateRunes limits text to n runes, appending an ellipsis when cut.
// Keeps prompt payloads bounded without splitting multi-byte characters.
func TruncateRunes(n int, text string) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
