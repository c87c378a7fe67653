package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldInt
)

// FieldRule describes one input field of an endpoint.
type FieldRule struct {
	Name  string // JSON key
	Label string // used in rejection messages
	// RequiredLabel replaces Label in the "is required" message when set.
	RequiredLabel string
	Type          FieldType
	Min, Max      int
	Options       []string
}

// ValidationError is a client-correctable rejection. Message is safe to
// return to the caller as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Values holds the sanitized inputs keyed by field name: strings for text and
// enum fields, ints for integer fields.
type Values map[string]any

var validate = validator.New()

// Validate checks body against rules in order and returns the sanitized
// values, or the first rejection. body must come from a decoder with
// UseNumber enabled.
func Validate(body map[string]any, rules []FieldRule) (Values, error) {
	out := make(Values, len(rules))
	for _, rule := range rules {
		v, err := rule.check(body[rule.Name])
		if err != nil {
			return nil, err
		}
		out[rule.Name] = v
	}
	return out, nil
}

func (r FieldRule) reject(msg string) *ValidationError {
	return &ValidationError{Field: r.Name, Message: msg}
}

func (r FieldRule) check(raw any) (any, error) {
	switch r.Type {
	case FieldText:
		return r.checkText(raw)
	case FieldEnum:
		return r.checkEnum(raw)
	case FieldInt:
		return r.checkInt(raw)
	}
	return nil, fmt.Errorf("field %s: unknown rule type %d", r.Name, r.Type)
}

func (r FieldRule) checkText(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		label := r.Label
		if r.RequiredLabel != "" {
			label = r.RequiredLabel
		}
		return nil, r.reject(label + " is required and must be a non-empty string")
	}

	clean := Sanitize(s)
	if r.Min > 0 && validate.Var(clean, "min="+strconv.Itoa(r.Min)) != nil {
		return nil, r.reject(fmt.Sprintf("%s must be at least %d characters", r.Label, r.Min))
	}
	if r.Max > 0 && validate.Var(clean, "max="+strconv.Itoa(r.Max)) != nil {
		return nil, r.reject(fmt.Sprintf("%s must be %d characters or less", r.Label, r.Max))
	}
	if utf8.RuneCountInString(clean) == 0 {
		return nil, r.reject(r.Label + " cannot be empty after sanitization")
	}
	return clean, nil
}

func (r FieldRule) checkEnum(raw any) (any, error) {
	s, _ := raw.(string)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || validate.Var(s, "oneof="+strings.Join(r.Options, " ")) != nil {
		return nil, r.reject(fmt.Sprintf("%s must be one of: %s", r.Label, strings.Join(r.Options, ", ")))
	}
	return s, nil
}

// checkInt accepts a JSON number or a numeric string. Fractional values are
// rejected rather than truncated.
func (r FieldRule) checkInt(raw any) (any, error) {
	bad := r.reject(fmt.Sprintf("%s must be between %d and %d", r.Label, r.Min, r.Max))

	var n int
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return nil, bad
		}
		n = int(f)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, bad
		}
		n = parsed
	default:
		return nil, bad
	}

	if validate.Var(n, fmt.Sprintf("min=%d,max=%d", r.Min, r.Max)) != nil {
		return nil, bad
	}
	return n, nil
}
