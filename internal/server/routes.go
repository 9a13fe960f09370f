package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/http-todo/internal/domain"
	"github.com/Tomlord1122/http-todo/internal/schema"
)

// maxBodyBytes caps request bodies read by the todo handlers.
const maxBodyBytes = 1 << 20

//go:embed static
var assets embed.FS

var staticFS = mustSub(assets, "static")

// mustSub panics when dir is missing from fsys, so a broken embed fails at
// startup.
func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("server: embedded %s: %v", dir, err))
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		panic(fmt.Sprintf("server: embedded %s: %v", dir, err))
	}
	return sub
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "The requested URL was not found on the server.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "The method is not allowed for the requested URL.")
	})

	r.Get("/", s.indexHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Get("/health", s.healthHandler)

	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", s.listTodosHandler)
		r.Post("/", s.createTodoHandler)
		r.Get("/{id}", s.getTodoHandler)
		r.Put("/{id}", s.updateTodoHandler)
		r.Delete("/{id}", s.deleteTodoHandler)
	})

	return r
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		s.logger.ErrorContext(r.Context(), "index page missing", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Index page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todoService.ListAll(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}
	respondWithJSON(w, http.StatusOK, schema.DumpMany(todos))
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	todo, ok := s.lookupTodo(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, schema.Dump(todo))
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.loadTodo(w, r, schema.ModeFull)
	if !ok {
		return
	}

	todo, err := s.todoService.Create(r.Context(), fields.Todo())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/todos/%d", todo.ID))
	respondWithJSON(w, http.StatusCreated, schema.Dump(todo))
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.lookupTodo(w, r)
	if !ok {
		return
	}
	fields, ok := s.loadTodo(w, r, schema.ModePartial)
	if !ok {
		return
	}

	todo, err := s.todoService.Update(r.Context(), existing, fields.Names(), fields.Todo())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}
	respondWithJSON(w, http.StatusOK, schema.Dump(todo))
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.lookupTodo(w, r)
	if !ok {
		return
	}

	if err := s.todoService.Delete(r.Context(), existing); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete todo")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully."})
}

// lookupTodo resolves the {id} URL parameter. On failure it has already
// written the response.
func (s *Server) lookupTodo(w http.ResponseWriter, r *http.Request) (*domain.Todo, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return nil, false
	}

	todo, err := s.todoService.GetByID(r.Context(), uint(id))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todo")
		return nil, false
	}
	if todo == nil {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Todo with id %d not found.", id))
		return nil, false
	}
	return todo, true
}

// loadTodo reads the body and validates it in mode. On failure it has
// already written the response.
func (s *Server) loadTodo(w http.ResponseWriter, r *http.Request, mode schema.Mode) (schema.Fields, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		respondWithError(w, http.StatusBadRequest, "Request body could not be read")
		return nil, false
	}

	fields, err := schema.Load(body, mode)
	if err == nil {
		return fields, true
	}

	var verr *schema.ValidationError
	var merr *schema.MalformedError
	switch {
	case errors.As(err, &verr):
		s.logger.InfoContext(r.Context(), "todo input rejected", slog.Any("fields", verr.Fields))
		respondWithJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, schema.ErrNoInput):
		respondWithError(w, http.StatusBadRequest, schema.NoInputMessage)
	case errors.As(err, &merr):
		respondWithError(w, http.StatusBadRequest, merr.Msg)
	default:
		s.logger.ErrorContext(r.Context(), "todo input could not be validated", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return nil, false
}

// respondWithError writes {"error": <status text>, "description": description}.
func respondWithError(w http.ResponseWriter, code int, description string) {
	respondWithJSON(w, code, map[string]string{
		"error":       http.StatusText(code),
		"description": description,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal JSON response", slog.Any("error", err))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error","description":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
