package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/http-todo/internal/domain"
)

func loadErr(t *testing.T, body string, mode Mode) *ValidationError {
	t.Helper()
	_, err := Load([]byte(body), mode)
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T: %v", err, err)
	return verr
}

func TestLoadFull(t *testing.T) {
	t.Run("valid title and description", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Test Todo", "description": "A description for the test todo"}`), ModeFull)
		require.NoError(t, err)

		todo := fields.Todo()
		assert.Equal(t, "Test Todo", todo.Title)
		require.NotNil(t, todo.Description)
		assert.Equal(t, "A description for the test todo", *todo.Description)
		assert.False(t, todo.Completed)
		assert.False(t, todo.IsPersisted())
	})

	t.Run("all fields", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Test Todo Full", "description": "A full description", "completed": true}`), ModeFull)
		require.NoError(t, err)

		todo := fields.Todo()
		assert.Equal(t, "Test Todo Full", todo.Title)
		assert.True(t, todo.Completed)
		assert.Equal(t, []string{"title", "description", "completed"}, fields.Names())
	})

	t.Run("title only defaults", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Buy milk"}`), ModeFull)
		require.NoError(t, err)

		todo := fields.Todo()
		assert.Nil(t, todo.Description)
		assert.False(t, todo.Completed)
	})

	t.Run("title is trimmed", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "  Padded  "}`), ModeFull)
		require.NoError(t, err)
		assert.Equal(t, "Padded", fields[FieldTitle])
	})

	t.Run("null description", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Nullable", "description": null}`), ModeFull)
		require.NoError(t, err)
		assert.True(t, fields.Has(FieldDescription))
		assert.Nil(t, fields.Todo().Description)
	})

	t.Run("unknown field is ignored", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Test Unknown", "extra_field": "should be ignored"}`), ModeFull)
		require.NoError(t, err)
		assert.False(t, fields.Has("extra_field"))
		assert.Equal(t, []string{"title"}, fields.Names())
	})

	t.Run("read-only fields are ignored", func(t *testing.T) {
		fields, err := Load([]byte(`{"title": "Read only", "id": 42, "created_at": "2020-01-01T00:00:00Z", "updated_at": "x"}`), ModeFull)
		require.NoError(t, err)

		todo := fields.Todo()
		assert.Zero(t, todo.ID)
		assert.True(t, todo.CreatedAt.IsZero())
	})
}

func TestLoadFullValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"missing title", `{"description": "A todo without a title"}`, "title", "Missing data for required field."},
		{"title too short", `{"title": "T", "description": "Short title"}`, "title", "Title must be between 2 and 100 characters long."},
		{"title too long", `{"title": "` + strings.Repeat("T", 101) + `", "description": "Long title"}`, "title", "Title must be between 2 and 100 characters long."},
		{"title whitespace only", `{"title": "   ", "description": "Whitespace title"}`, "title", "Title cannot be empty or just whitespace."},
		{"title empty", `{"title": ""}`, "title", "Title cannot be empty or just whitespace."},
		{"title null", `{"title": null}`, "title", "Field may not be null."},
		{"title wrong type", `{"title": 12}`, "title", "Not a valid string."},
		{"description too long", `{"title": "Valid Title", "description": "` + strings.Repeat("D", 201) + `"}`, "description", "Description cannot exceed 200 characters."},
		{"description wrong type", `{"title": "Valid Title", "description": ["a"]}`, "description", "Not a valid string."},
		{"completed wrong type", `{"title": "Valid Title", "completed": "yes"}`, "completed", "Not a valid boolean."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := loadErr(t, tt.body, ModeFull)
			require.Contains(t, verr.Fields, tt.field)
			assert.Equal(t, tt.msg, verr.Fields[tt.field][0])
		})
	}
}

func TestLoadWhitespaceTitleRejectedAtAnyLength(t *testing.T) {
	for _, n := range []int{1, 2, 5, 50, 100, 150} {
		verr := loadErr(t, `{"title": "`+strings.Repeat(" ", n)+`"}`, ModeFull)
		assert.Contains(t, verr.Fields, "title", "length %d", n)
	}
	verr := loadErr(t, `{"title": "\t\n  \t"}`, ModeFull)
	assert.Contains(t, verr.Fields, "title")
}

func TestLoadTitleBounds(t *testing.T) {
	_, err := Load([]byte(`{"title": "ab"}`), ModeFull)
	assert.NoError(t, err)

	_, err = Load([]byte(`{"title": "`+strings.Repeat("x", 100)+`"}`), ModeFull)
	assert.NoError(t, err)

	// Length is counted in characters, not bytes.
	_, err = Load([]byte(`{"title": "`+strings.Repeat("é", 100)+`"}`), ModeFull)
	assert.NoError(t, err)

	_, err = Load([]byte(`{"title": "Ok", "description": "`+strings.Repeat("d", 200)+`"}`), ModeFull)
	assert.NoError(t, err)
}

func TestLoadReportsAllViolations(t *testing.T) {
	verr := loadErr(t, `{"title": "T", "description": "`+strings.Repeat("D", 201)+`", "completed": "nope"}`, ModeFull)

	assert.Len(t, verr.Fields, 3)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "completed")
	for field, msgs := range verr.Fields {
		assert.NotEmpty(t, msgs, field)
	}
	assert.Contains(t, verr.Error(), "title:")
}

func TestLoadMissingTitleAndBadType(t *testing.T) {
	verr := loadErr(t, `{"completed": 1}`, ModeFull)

	assert.Equal(t, []string{"Missing data for required field."}, verr.Fields["title"])
	assert.Equal(t, []string{"Not a valid boolean."}, verr.Fields["completed"])
}

func TestLoadPartial(t *testing.T) {
	t.Run("title not required", func(t *testing.T) {
		fields, err := Load([]byte(`{"description": "Updated Description Only"}`), ModePartial)
		require.NoError(t, err)

		assert.False(t, fields.Has(FieldTitle))
		assert.False(t, fields.Has(FieldCompleted))
		desc, ok := fields[FieldDescription].(*string)
		require.True(t, ok)
		assert.Equal(t, "Updated Description Only", *desc)
	})

	t.Run("completed only", func(t *testing.T) {
		fields, err := Load([]byte(`{"completed": true}`), ModePartial)
		require.NoError(t, err)
		assert.Equal(t, []string{"completed"}, fields.Names())
		assert.Equal(t, true, fields[FieldCompleted])
	})

	t.Run("false is kept as present", func(t *testing.T) {
		fields, err := Load([]byte(`{"completed": false}`), ModePartial)
		require.NoError(t, err)
		assert.True(t, fields.Has(FieldCompleted))
	})

	t.Run("present field still validated", func(t *testing.T) {
		verr := loadErr(t, `{"title": "T"}`, ModePartial)
		assert.Equal(t, "Title must be between 2 and 100 characters long.", verr.Fields["title"][0])
	})

	t.Run("only unknown fields", func(t *testing.T) {
		fields, err := Load([]byte(`{"whatever": 1}`), ModePartial)
		require.NoError(t, err)
		assert.Empty(t, fields.Names())
	})
}

func TestLoadNoInput(t *testing.T) {
	for _, body := range []string{"", "   ", "null", "{}", " {} \n"} {
		_, err := Load([]byte(body), ModeFull)
		assert.ErrorIs(t, err, ErrNoInput, "body %q", body)

		_, err = Load([]byte(body), ModePartial)
		assert.ErrorIs(t, err, ErrNoInput, "body %q", body)
	}
}

func TestLoadMalformed(t *testing.T) {
	for _, body := range []string{`{"title": `, `not json`, `[1, 2]`, `"title"`, `42`} {
		_, err := Load([]byte(body), ModeFull)
		var merr *MalformedError
		assert.True(t, errors.As(err, &merr), "body %q: got %v", body, err)
	}
}

func TestDump(t *testing.T) {
	desc := "Test Description"
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	todo := &domain.Todo{ID: 3, Title: "Test Todo", Description: &desc, CreatedAt: created, UpdatedAt: created}

	out := Dump(todo)

	assert.Equal(t, uint(3), out.ID)
	assert.Equal(t, "Test Todo", out.Title)
	assert.Equal(t, &desc, out.Description)
	assert.False(t, out.Completed)
	assert.Equal(t, "2025-01-02T03:04:05Z", out.CreatedAt)

	_, err := time.Parse(time.RFC3339, out.CreatedAt)
	assert.NoError(t, err)
}

func TestDumpMany(t *testing.T) {
	assert.NotNil(t, DumpMany(nil))
	assert.Empty(t, DumpMany(nil))

	out := DumpMany([]domain.Todo{
		{ID: 1, Title: "Todo 1"},
		{ID: 2, Title: "Todo 2", Completed: true},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "Todo 1", out[0].Title)
	assert.Equal(t, "Todo 2", out[1].Title)
	assert.True(t, out[1].Completed)
}

func TestDumpMatchesToMap(t *testing.T) {
	desc := "Walk the dog"
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	local := time.FixedZone("UTC+2", 2*60*60)

	cases := map[string]domain.Todo{
		"with description":    {ID: 7, Title: "Chores", Description: &desc, Completed: true, CreatedAt: created, UpdatedAt: created.Add(time.Hour)},
		"without description": {ID: 8, Title: "Read", CreatedAt: created, UpdatedAt: created},
		"non-UTC timestamps":  {ID: 9, Title: "Zoned", CreatedAt: created.In(local), UpdatedAt: created.In(local)},
	}
	for name, todo := range cases {
		t.Run(name, func(t *testing.T) {
			dumped, err := json.Marshal(Dump(&todo))
			require.NoError(t, err)
			mapped, err := json.Marshal(todo.ToMap())
			require.NoError(t, err)
			assert.JSONEq(t, string(mapped), string(dumped))
		})
	}
}
