package presenter

import (
	"bytes"
	"fmt"
	"text/template"
)

// templateFuncs provides helper functions for schema templates.
var templateFuncs = template.FuncMap{
	"not": func(v any) bool {
		return !toBool(v)
	},
	"str": func(v any) string {
		return formatText(v)
	},
}

// RenderTemplate executes a Go text/template with the given data.
// Returns the rendered string, or empty string on error.
func RenderTemplate(tmpl string, data map[string]any) string {
	t, err := template.New("").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return ""
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

// EvalCondition evaluates a template condition (from a "when" field).
// An empty condition always holds.
func EvalCondition(condition string, data map[string]any) bool {
	if condition == "" {
		return true
	}
	return RenderTemplate(condition, data) == "true"
}

// RenderHeadline renders the first headline whose condition holds, falling
// back to the identity label.
func RenderHeadline(schema *EntitySchema, data map[string]any) string {
	for _, spec := range schema.Headline {
		if !EvalCondition(spec.When, data) {
			continue
		}
		if rendered := RenderTemplate(spec.Template, data); rendered != "" {
			return rendered
		}
	}

	if label := schema.Identity.Label; label != "" {
		if v, ok := data[label]; ok && v != nil {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
