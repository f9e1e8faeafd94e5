package output

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// writeJQ runs the configured filter over the envelope and prints each result.
// String results are printed raw, everything else as indented JSON.
func (w *Writer) writeJQ(v any) error {
	query, err := gojq.Parse(w.opts.JQ)
	if err != nil {
		return ErrUsageHint(fmt.Sprintf("invalid --jq filter: %v", err), "See https://jqlang.org/manual/")
	}

	input, err := toJQInput(v)
	if err != nil {
		return err
	}

	iter := query.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return ErrUsage(fmt.Sprintf("--jq: %v", err))
		}
		if s, isString := result.(string); isString {
			if _, err := fmt.Fprintln(w.opts.Writer, s); err != nil {
				return err
			}
			continue
		}
		if err := w.writeJSON(result); err != nil {
			return err
		}
	}
}

// toJQInput round-trips v through JSON so gojq sees only maps, slices and scalars.
func toJQInput(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
