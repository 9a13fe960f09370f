// Package schema is the gate between untrusted JSON and domain.Todo. Load
// validates request bodies into a Fields map; Dump renders stored todos.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Tomlord1122/http-todo/internal/domain"
)

// Mode selects how Load treats required fields.
type Mode int

const (
	// ModeFull requires title. Used on create.
	ModeFull Mode = iota
	// ModePartial validates only the fields present. Used on update.
	ModePartial
)

const (
	TitleMinLen       = 2
	TitleMaxLen       = 100
	DescriptionMaxLen = 200
)

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
)

var (
	msgRequired         = "Missing data for required field."
	msgNull             = "Field may not be null."
	msgNotString        = "Not a valid string."
	msgNotBoolean       = "Not a valid boolean."
	msgTitleBlank       = "Title cannot be empty or just whitespace."
	msgTitleLength      = fmt.Sprintf("Title must be between %d and %d characters long.", TitleMinLen, TitleMaxLen)
	msgDescriptionLimit = fmt.Sprintf("Description cannot exceed %d characters.", DescriptionMaxLen)
)

// fieldOrder is the canonical order of writable fields. Anything else in the
// input, including id and the timestamps, is ignored.
var fieldOrder = []string{FieldTitle, FieldDescription, FieldCompleted}

var goFieldNames = map[string]string{
	FieldTitle:       "Title",
	FieldDescription: "Description",
}

const todoTypes = `{
	"type": "object",
	"properties": {
		"title":       {"type": "string"},
		"description": {"type": ["string", "null"]},
		"completed":   {"type": "boolean"}
	}
}`

var typeSchema = jsonschema.MustCompileString("todo.json", todoTypes)

// todoInput holds the rule phase. Title arrives already trimmed, so the
// required rule rejects whitespace-only titles.
type todoInput struct {
	Title       string  `json:"title" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitnil,max=200"`
	Completed   *bool   `json:"completed"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Fields is the validated, unpersisted result of Load. Keys are limited to
// title (string, trimmed), description (*string) and completed (bool).
type Fields map[string]any

func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Names lists the present fields in canonical order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for _, name := range fieldOrder {
		if f.Has(name) {
			names = append(names, name)
		}
	}
	return names
}

// Todo builds a candidate entity from the fields. Absent fields take the
// entity defaults.
func (f Fields) Todo() *domain.Todo {
	todo := domain.NewTodo("")
	if v, ok := f[FieldTitle].(string); ok {
		todo.Title = v
	}
	if v, ok := f[FieldDescription].(*string); ok {
		todo.Description = v
	}
	if v, ok := f[FieldCompleted].(bool); ok {
		todo.Completed = v
	}
	return todo
}

// Load decodes data and validates it according to mode. It returns ErrNoInput,
// a *MalformedError or a *ValidationError on failure.
func Load(data []byte, mode Mode) (Fields, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if mode == ModeFull {
		if _, ok := doc[FieldTitle]; !ok {
			verr.add(FieldTitle, msgRequired)
		}
	}
	checkTypes(doc, verr)

	var in todoInput
	var partial []string
	for _, name := range fieldOrder {
		raw, ok := doc[name]
		if !ok || verr.has(name) {
			continue
		}
		switch name {
		case FieldTitle:
			in.Title = strings.TrimSpace(raw.(string))
		case FieldDescription:
			if raw != nil {
				s := raw.(string)
				in.Description = &s
			}
		case FieldCompleted:
			b := raw.(bool)
			in.Completed = &b
		}
		if goName, ok := goFieldNames[name]; ok {
			partial = append(partial, goName)
		}
	}

	if len(partial) > 0 {
		if err := validate.StructPartial(&in, partial...); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return nil, fmt.Errorf("validate todo input: %w", err)
			}
			for _, fe := range fieldErrs {
				verr.add(fe.Field(), ruleMessage(fe))
			}
		}
	}

	if !verr.empty() {
		return nil, verr
	}

	fields := make(Fields, len(fieldOrder))
	for _, name := range fieldOrder {
		if _, ok := doc[name]; !ok {
			continue
		}
		switch name {
		case FieldTitle:
			fields[name] = in.Title
		case FieldDescription:
			fields[name] = in.Description
		case FieldCompleted:
			fields[name] = *in.Completed
		}
	}
	return fields, nil
}

func decode(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoInput
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &MalformedError{Msg: "Request body contains badly-formed JSON", Err: err}
	}
	if v == nil {
		return nil, ErrNoInput
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedError{Msg: "Request body must be a JSON object"}
	}
	if len(doc) == 0 {
		return nil, ErrNoInput
	}
	return doc, nil
}

// checkTypes runs the JSON schema and records one message per offending field.
func checkTypes(doc map[string]any, verr *ValidationError) {
	err := typeSchema.Validate(doc)
	if err == nil {
		return
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		verr.add("_schema", err.Error())
		return
	}
	collectTypeErrors(ve, doc, verr)
}

func collectTypeErrors(ve *jsonschema.ValidationError, doc map[string]any, verr *ValidationError) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectTypeErrors(cause, doc, verr)
		}
		return
	}

	field, _, _ := strings.Cut(strings.TrimPrefix(ve.InstanceLocation, "/"), "/")
	if field == "" {
		verr.add("_schema", ve.Message)
		return
	}
	switch field {
	case FieldCompleted:
		verr.add(field, msgNotBoolean)
	case FieldTitle:
		if doc[field] == nil {
			verr.add(field, msgNull)
		} else {
			verr.add(field, msgNotString)
		}
	default:
		verr.add(field, msgNotString)
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case FieldTitle:
		if fe.Tag() == "required" {
			return msgTitleBlank
		}
		return msgTitleLength
	case FieldDescription:
		return msgDescriptionLimit
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}
