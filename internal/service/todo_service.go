package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tomlord1122/http-todo/internal/database"
	"github.com/Tomlord1122/http-todo/internal/domain"
	"github.com/Tomlord1122/http-todo/internal/repository"
)

var tracer = otel.Tracer("github.com/Tomlord1122/http-todo/internal/service")

// TodoService defines the operations for managing todos.
// It is the only component that reads or writes the backing store.
type TodoService interface {
	// ListAll returns every todo ordered by increasing id.
	ListAll(ctx context.Context) ([]domain.Todo, error)

	// GetByID returns nil and no error when the id does not exist.
	GetByID(ctx context.Context, id uint) (*domain.Todo, error)

	// Create stores an unpersisted candidate and returns it with its id.
	Create(ctx context.Context, candidate *domain.Todo) (*domain.Todo, error)

	// Update copies the present fields of values onto existing and stores them.
	// Unrecognized names in present are ignored.
	Update(ctx context.Context, existing *domain.Todo, present []string, values *domain.Todo) (*domain.Todo, error)

	// Delete removes existing. Deleting a record that is not stored fails
	// with ErrStaleRecord.
	Delete(ctx context.Context, existing *domain.Todo) error

	// Count returns the number of stored todos.
	Count(ctx context.Context) (int64, error)
}

// todoService implements the TodoService interface.
type todoService struct {
	repo   repository.TodoRepository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a TodoService.
type Option func(*todoService)

// WithClock replaces the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *todoService) {
		s.now = now
	}
}

// NewTodoService creates a new TodoService backed by repo.
func NewTodoService(repo repository.TodoRepository, logger *slog.Logger, opts ...Option) TodoService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &todoService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *todoService) ListAll(ctx context.Context) ([]domain.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.ListAll")
	defer span.End()

	todos, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, "list", 0, err)
	}
	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

func (s *todoService) GetByID(ctx context.Context, id uint) (*domain.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.GetByID", trace.WithAttributes(todoID(id)))
	defer span.End()

	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("todo.found", false))
			return nil, nil
		}
		return nil, s.fail(ctx, span, "get", id, err)
	}
	span.SetAttributes(attribute.Bool("todo.found", true))
	return todo, nil
}

func (s *todoService) Create(ctx context.Context, candidate *domain.Todo) (*domain.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Create")
	defer span.End()

	if candidate.IsPersisted() {
		return nil, s.fail(ctx, span, "create", candidate.ID, errors.New("candidate already has an id"))
	}

	now := s.now()
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = now
	}
	if candidate.UpdatedAt.IsZero() {
		candidate.UpdatedAt = candidate.CreatedAt
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		candidate.ID = 0
		return nil, s.fail(ctx, span, "create", 0, err)
	}

	span.SetAttributes(todoID(candidate.ID))
	s.logger.InfoContext(ctx, "todo created", slog.Uint64("id", uint64(candidate.ID)))
	s.logger.DebugContext(ctx, "stored todo", slog.Any("todo", candidate.ToMap()))
	return candidate, nil
}

func (s *todoService) Update(ctx context.Context, existing *domain.Todo, present []string, values *domain.Todo) (*domain.Todo, error) {
	ctx, span := tracer.Start(ctx, "TodoService.Update")
	defer span.End()

	if existing == nil || !existing.IsPersisted() {
		return nil, s.fail(ctx, span, "update", 0, ErrStaleRecord)
	}
	span.SetAttributes(todoID(existing.ID))

	// existing is only touched once the write has succeeded.
	next := *existing
	columns := make([]string, 0, len(present)+1)
	for _, name := range present {
		switch name {
		case "title":
			next.Title = values.Title
		case "description":
			next.Description = values.Description
		case "completed":
			next.Completed = values.Completed
		default:
			continue
		}
		columns = append(columns, name)
	}
	next.UpdatedAt = s.now()
	columns = append(columns, "updated_at")

	if err := s.repo.Update(ctx, &next, columns); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			err = fmt.Errorf("%w: %w", ErrStaleRecord, err)
		}
		return nil, s.fail(ctx, span, "update", existing.ID, err)
	}
	*existing = next

	s.logger.InfoContext(ctx, "todo updated",
		slog.Uint64("id", uint64(existing.ID)),
		slog.Any("fields", columns[:len(columns)-1]),
	)
	return existing, nil
}

func (s *todoService) Delete(ctx context.Context, existing *domain.Todo) error {
	ctx, span := tracer.Start(ctx, "TodoService.Delete")
	defer span.End()

	if existing == nil || !existing.IsPersisted() {
		return s.fail(ctx, span, "delete", 0, ErrStaleRecord)
	}
	span.SetAttributes(todoID(existing.ID))

	if err := s.repo.Delete(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			err = fmt.Errorf("%w: %w", ErrStaleRecord, err)
		}
		return s.fail(ctx, span, "delete", existing.ID, err)
	}

	s.logger.InfoContext(ctx, "todo deleted", slog.Uint64("id", uint64(existing.ID)))
	return nil
}

func (s *todoService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// fail wraps err in a StorageError, records it on the span and logs it.
func (s *todoService) fail(ctx context.Context, span trace.Span, op string, id uint, err error) error {
	serr := &StorageError{Op: op, ID: id, Err: err}
	span.RecordError(serr)
	span.SetStatus(codes.Error, op+" failed")

	attrs := []any{slog.String("op", op), slog.Any("error", err)}
	if id != 0 {
		attrs = append(attrs, slog.Uint64("id", uint64(id)))
	}
	if code := database.SQLState(err); code != "" {
		attrs = append(attrs, slog.String("sqlstate", code))
	}
	s.logger.ErrorContext(ctx, "todo storage operation failed", attrs...)
	return serr
}

func todoID(id uint) attribute.KeyValue {
	return attribute.Int64("todo.id", int64(id))
}
