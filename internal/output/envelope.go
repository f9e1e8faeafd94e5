package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/taskhub/taskhub-cli/internal/observability"
)

// Response is the envelope of a successful command.
type Response struct {
	OK          bool           `json:"ok"`
	Data        any            `json:"data,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Breadcrumbs []Breadcrumb   `json:"breadcrumbs,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`

	// Entity names the presenter schema for styled and Markdown output.
	Entity string `json:"-"`
}

// Breadcrumb suggests a command to run next.
type Breadcrumb struct {
	Action      string `json:"action"`
	Cmd         string `json:"cmd"`
	Description string `json:"description"`
}

// ErrorResponse is the envelope of a failed command.
type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Code   string `json:"code"`
	Hint   string `json:"hint,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Format is an output mode chosen by flag.
type Format int

const (
	FormatAuto Format = iota // styled on a terminal, JSON when piped
	FormatJSON
	FormatMarkdown
	FormatStyled // ANSI colors even when piped
	FormatQuiet
	FormatIDs
	FormatCount
)

// Options configures a Writer.
type Options struct {
	Format  Format
	Writer  io.Writer
	Verbose bool
	// JQ is a gojq filter applied to the JSON envelope. Forces JSON output.
	JQ string
}

// DefaultOptions writes to stdout in the auto-detected format.
func DefaultOptions() Options {
	return Options{
		Format: FormatAuto,
		Writer: os.Stdout,
	}
}

// Writer renders envelopes in the selected Format.
type Writer struct {
	opts Options
}

// New returns a Writer, defaulting to stdout.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// OK writes data as a success envelope.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}
	return w.write(resp)
}

// Err writes err as an error envelope.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	return w.write(&ErrorResponse{Error: e.Message, Code: e.Code, Hint: e.Hint, Reason: e.Reason})
}

// EffectiveFormat resolves FormatAuto: styled on a terminal, JSON otherwise.
// A --jq filter always means JSON.
func (w *Writer) EffectiveFormat() Format {
	switch {
	case w.opts.JQ != "":
		return FormatJSON
	case w.opts.Format != FormatAuto:
		return w.opts.Format
	}
	if _, tty := terminalInfo(w.opts.Writer); tty {
		return FormatStyled
	}
	return FormatJSON
}

// responseRenderer is what the styled and Markdown renderers share.
type responseRenderer interface {
	RenderResponse(io.Writer, *Response) error
	RenderError(io.Writer, *ErrorResponse) error
}

// write emits v, a *Response or *ErrorResponse, in the effective format.
// Formats that only describe data fall back to JSON for errors.
func (w *Writer) write(v any) error {
	if w.opts.JQ != "" {
		return w.writeJQ(v)
	}
	format := w.EffectiveFormat()
	resp, isResp := v.(*Response)

	switch {
	case format == FormatQuiet && isResp:
		return w.writeJSON(resp.Data)
	case format == FormatIDs && isResp:
		for _, id := range ids(NormalizeData(resp.Data)) {
			fmt.Fprintln(w.opts.Writer, id)
		}
		return nil
	case format == FormatCount && isResp:
		_, err := fmt.Fprintln(w.opts.Writer, count(NormalizeData(resp.Data)))
		return err
	case format == FormatMarkdown:
		return w.render(NewMarkdownRenderer(), v)
	case format == FormatStyled:
		return w.render(NewRenderer(w.opts.Writer, true), v)
	}
	return w.writeJSON(v)
}

func (w *Writer) render(r responseRenderer, v any) error {
	switch v := v.(type) {
	case *Response:
		return r.RenderResponse(w.opts.Writer, v)
	case *ErrorResponse:
		return r.RenderError(w.opts.Writer, v)
	}
	return w.writeJSON(v)
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ids returns the "id" of an object or of each object in a list.
func ids(data any) []any {
	var out []any
	switch d := data.(type) {
	case map[string]any:
		if id, ok := d["id"]; ok {
			out = append(out, id)
		}
	case []map[string]any:
		for _, item := range d {
			if id, ok := item["id"]; ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// count is the length of a list; anything else counts as one.
func count(data any) int {
	switch d := data.(type) {
	case []any:
		return len(d)
	case []map[string]any:
		return len(d)
	}
	return 1
}

// NormalizeData converts json.RawMessage and typed values to generic JSON
// shapes: map[string]any, []map[string]any, []any or scalars. A list of
// objects always comes back as []map[string]any, an empty list included.
func NormalizeData(data any) any {
	var raw []byte
	switch d := data.(type) {
	case nil, map[string]any, []map[string]any, []any:
		return data
	case json.RawMessage:
		raw = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return data
		}
		raw = b
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return data
	}
	list, ok := v.([]any)
	if !ok {
		return v
	}
	objects := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return list
		}
		objects = append(objects, m)
	}
	return objects
}

// ResponseOption decorates a Response.
type ResponseOption func(*Response)

// WithSummary sets the one-line human summary.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithEntity tags the data with a presenter entity name ("task", "project").
func WithEntity(name string) ResponseOption {
	return func(r *Response) { r.Entity = name }
}

// WithBreadcrumbs appends follow-up commands.
func WithBreadcrumbs(b ...Breadcrumb) ResponseOption {
	return func(r *Response) { r.Breadcrumbs = append(r.Breadcrumbs, b...) }
}

// WithContext records the workspace or project a result belongs to.
func WithContext(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Context == nil {
			r.Context = make(map[string]any)
		}
		r.Context[key] = value
	}
}

// WithMeta sets one key of the meta object.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}

// WithWarning reports something that went wrong after the operation
// itself succeeded.
func WithWarning(msg string) ResponseOption {
	return func(r *Response) {
		r.Warnings = append(r.Warnings, msg)
	}
}

// WithStats attaches session metrics under meta.stats.
func WithStats(stats *observability.SessionMetrics) ResponseOption {
	return func(r *Response) {
		if stats == nil {
			return
		}
		WithMeta("stats", stats.ToMap())(r)
	}
}
