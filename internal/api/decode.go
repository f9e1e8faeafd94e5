package api

import (
	"encoding/json"
	"fmt"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// Decode parses a gateway response body into T and validates it.
// Malformed bodies become output.ErrMalformed; the parse error is kept as Cause.
func Decode[T any](resp *Response) (T, error) {
	var v T
	if resp == nil || len(resp.Data) == 0 {
		return v, output.ErrMalformed(fmt.Errorf("empty response body"))
	}
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return v, output.ErrMalformed(err)
	}
	if val, ok := any(&v).(models.Validator); ok {
		if err := val.Validate(); err != nil {
			return v, output.ErrMalformed(err)
		}
	}
	return v, nil
}

// DecodeList parses a plain JSON array and validates each element.
func DecodeList[T any](resp *Response) ([]T, error) {
	if resp == nil || len(resp.Data) == 0 {
		return nil, output.ErrMalformed(fmt.Errorf("empty response body"))
	}
	var items []T
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		return nil, output.ErrMalformed(err)
	}
	if items == nil {
		items = []T{}
	}
	for i := range items {
		if val, ok := any(&items[i]).(models.Validator); ok {
			if err := val.Validate(); err != nil {
				return nil, output.ErrMalformed(fmt.Errorf("item %d: %w", i, err))
			}
		}
	}
	return items, nil
}
