package schema

import "github.com/Tomlord1122/http-todo/internal/domain"

// TodoOutput is the JSON representation of a stored Todo.
type TodoOutput struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func Dump(t *domain.Todo) TodoOutput {
	return TodoOutput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   domain.FormatTime(t.CreatedAt),
		UpdatedAt:   domain.FormatTime(t.UpdatedAt),
	}
}

// DumpMany never returns nil so an empty store encodes as [].
func DumpMany(todos []domain.Todo) []TodoOutput {
	out := make([]TodoOutput, 0, len(todos))
	for i := range todos {
		out = append(out, Dump(&todos[i]))
	}
	return out
}
