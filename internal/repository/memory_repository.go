package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/Tomlord1122/http-todo/internal/domain"
)

// memoryTodoRepository keeps todos in process memory. It follows the same
// contract as the GORM repository, including the sentinel errors.
type memoryTodoRepository struct {
	mu     sync.RWMutex
	nextID uint
	todos  map[uint]domain.Todo
}

// NewMemoryTodoRepository creates an empty in-memory todo repository
func NewMemoryTodoRepository() TodoRepository {
	return &memoryTodoRepository{todos: make(map[uint]domain.Todo)}
}

func (r *memoryTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	todo.ID = r.nextID
	r.todos[todo.ID] = clone(*todo)
	return nil
}

func (r *memoryTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	todo, ok := r.todos[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := clone(todo)
	return &out, nil
}

func (r *memoryTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]domain.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		todos = append(todos, clone(todo))
	}
	slices.SortFunc(todos, func(a, b domain.Todo) int {
		return int(a.ID) - int(b.ID)
	})
	return todos, nil
}

func (r *memoryTodoRepository) Update(ctx context.Context, todo *domain.Todo, columns []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.todos[todo.ID]
	if !ok || todo.ID == 0 {
		return ErrNoRowsAffected
	}
	for _, column := range columns {
		switch column {
		case "title":
			stored.Title = todo.Title
		case "description":
			stored.Description = todo.Description
		case "completed":
			stored.Completed = todo.Completed
		case "updated_at":
			stored.UpdatedAt = todo.UpdatedAt
		}
	}
	r.todos[todo.ID] = clone(stored)
	return nil
}

func (r *memoryTodoRepository) Delete(ctx context.Context, todo *domain.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[todo.ID]; !ok {
		return ErrNoRowsAffected
	}
	delete(r.todos, todo.ID)
	return nil
}

func (r *memoryTodoRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.todos)), nil
}

// clone detaches the description pointer so callers cannot mutate stored state.
func clone(t domain.Todo) domain.Todo {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}
