package repository

import (
	"context"
	"errors"

	"github.com/Tomlord1122/http-todo/internal/domain"

	"gorm.io/gorm"
)

var (
	// ErrRecordNotFound is returned by FindByID when no row has the id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoRowsAffected is returned by Update and Delete when the row is gone.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	GetAll(ctx context.Context) ([]domain.Todo, error)
	// Update writes only the named columns of todo.
	Update(ctx context.Context, todo *domain.Todo, columns []string) error
	Delete(ctx context.Context, todo *domain.Todo) error
	Count(ctx context.Context) (int64, error)
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

// Create inserts the todo inside GORM's default transaction and fills in its ID.
func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

// FindByID retrieves a todo by its ID. A missing row is ErrRecordNotFound.
func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var todo domain.Todo
	result := r.db.WithContext(ctx).First(&todo, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &todo, nil
}

// GetAll returns every todo in insertion order.
func (r *gormTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	todos := []domain.Todo{}
	result := r.db.WithContext(ctx).Order("id asc").Find(&todos)
	if result.Error != nil {
		return nil, result.Error
	}
	return todos, nil
}

// Update writes the named columns of todo. An empty column list is a no-op
// and a vanished row is ErrNoRowsAffected.
func (r *gormTodoRepository) Update(ctx context.Context, todo *domain.Todo, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	// Select forces zero values such as completed=false or a nil description
	// to be written.
	result := r.db.WithContext(ctx).Model(todo).Select(columns).Updates(todo)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Delete removes the row permanently.
func (r *gormTodoRepository) Delete(ctx context.Context, todo *domain.Todo) error {
	result := r.db.WithContext(ctx).Delete(&domain.Todo{}, todo.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Count returns the number of stored todos.
func (r *gormTodoRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Todo{}).Count(&n).Error
	return n, err
}
