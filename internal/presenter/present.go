package presenter

import "io"

// RenderMode controls the output format.
type RenderMode int

const (
	ModeStyled   RenderMode = iota // ANSI styled terminal output
	ModeMarkdown                   // Literal Markdown syntax
)

// PresentWith attempts schema-aware rendering of the data. It returns
// false when no schema matched and the caller should fall back to generic
// rendering.
func PresentWith(w io.Writer, data any, entityHint string, mode RenderMode, styles Styles, locale Locale) bool {
	data = asMaps(data)
	schema := Detect(data, entityHint)
	if schema == nil {
		return false
	}

	switch d := data.(type) {
	case map[string]any:
		if mode == ModeMarkdown {
			return RenderDetailMarkdown(w, schema, d, locale) == nil
		}
		return RenderDetail(w, schema, d, styles, locale) == nil
	case []map[string]any:
		if len(d) == 0 {
			return false
		}
		if mode == ModeMarkdown {
			return RenderListMarkdown(w, schema, d, locale) == nil
		}
		return RenderList(w, schema, d, styles, locale) == nil
	}
	return false
}

// asMaps turns a []any of objects into []map[string]any.
func asMaps(data any) any {
	items, ok := data.([]any)
	if !ok {
		return data
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return data
		}
		out = append(out, m)
	}
	return out
}
