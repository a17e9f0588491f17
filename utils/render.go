package utils

import (
	"regexp"
	"strings"
)

var templateVarPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z][a-zA-Z0-9_]*)\s*\}\}`)

// RenderTemplate substitutes {{variable}} markers with the supplied values.
// Unknown markers are left in place so the caller can see what is missing.
func RenderTemplate(body string, vars map[string]string) string {
	return templateVarPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := templateVarPattern.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

// ExtractVariables lists the distinct {{variable}} names used in a template,
// in order of first appearance.
func ExtractVariables(body string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range templateVarPattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// MissingVariables reports which markers in the template have no value.
func MissingVariables(body string, vars map[string]string) []string {
	var missing []string
	for _, name := range ExtractVariables(body) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Snippet shortens a body for list views, cutting on a rune boundary.
func Snippet(body string, max int) string {
	body = strings.Join(strings.Fields(body), " ")
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
