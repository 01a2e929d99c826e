package shared

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes v as JSON, indented when pretty is true.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// ValidateJSON reports whether data is well-formed JSON.
func ValidateJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidInput)
	}
	return nil
}
