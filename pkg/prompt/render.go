// Package prompt provides prompt template storage and rendering for the
// extraction pipeline.
//
// Templates use {name} placeholders. Rendering substitutes the provided
// values and blanks any placeholder the caller did not supply.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// Render substitutes named {placeholder} values into template.
//
// Values are formatted with their default string representation.
// Placeholders without a supplied value render as empty strings, so a
// caller that wants a fallback must pass it as the value.
//
// Example:
//
//	prompt.Render("Hello {name}, top {top_k}", map[string]any{"name": "Ada", "top_k": 10})
//	// "Hello Ada, top 10"
func Render(template string, values map[string]any) string {
	if len(values) > 0 {
		pairs := make([]string, 0, len(values)*2)
		for name, value := range values {
			pairs = append(pairs, "{"+name+"}", toString(value))
		}
		template = strings.NewReplacer(pairs...).Replace(template)
	}
	return placeholderPattern.ReplaceAllString(template, "")
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
