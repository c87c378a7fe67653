package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape is the expected top-level JSON type of a model reply.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) delimiters() (byte, byte) {
	if s == ShapeArray {
		return '[', ']'
	}
	return '{', '}'
}

func (s Shape) String() string {
	if s == ShapeArray {
		return "array"
	}
	return "object"
}

// ErrInvalidResponse means the reply held no parseable JSON of the expected shape.
var ErrInvalidResponse = errors.New("invalid response from model")

// Extract pulls the JSON value of the given shape out of free model text.
// It takes the span from the first opening delimiter to the last closing one
// (greedy), falling back to the whole text when there is no such span.
func Extract(text string, shape Shape) (json.RawMessage, error) {
	opening, closing := shape.delimiters()

	candidate := strings.TrimSpace(text)
	if i := strings.IndexByte(text, opening); i >= 0 {
		if j := strings.LastIndexByte(text, closing); j > i {
			candidate = text[i : j+1]
		}
	}

	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	switch v.(type) {
	case []any:
		if shape != ShapeArray {
			return nil, fmt.Errorf("%w: expected %s, got array", ErrInvalidResponse, shape)
		}
	case map[string]any:
		if shape != ShapeObject {
			return nil, fmt.Errorf("%w: expected %s, got object", ErrInvalidResponse, shape)
		}
	default:
		return nil, fmt.Errorf("%w: expected %s", ErrInvalidResponse, shape)
	}

	return json.RawMessage(candidate), nil
}
