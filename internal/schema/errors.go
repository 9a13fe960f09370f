package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoInput is returned by Load when the body is empty, null or {}.
var ErrNoInput = errors.New("no input data provided")

// NoInputMessage is the client-facing text for ErrNoInput.
const NoInputMessage = "No input data provided."

// MalformedError reports a request body that is not a JSON object.
type MalformedError struct {
	Msg string
	Err error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// ValidationError carries every field-level violation found by Load, keyed by
// JSON field name. Each list is non-empty and keeps detection order.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	for _, existing := range e.Fields[field] {
		if existing == msg {
			return
		}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
