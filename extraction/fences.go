package extraction

import (
	"regexp"
	"strings"
)

// fencePattern matches an opening fence (optionally tagged json) at the
// start of a line, or a closing fence at the end of one.
var fencePattern = regexp.MustCompile("(?mi)^```(?:json)?\\s*|\\s*```$")

// StripFences removes Markdown code fences around a model reply. Text
// without fences is only trimmed.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}
