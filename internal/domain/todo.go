package domain

import "time"

// TimeFormat is the layout used whenever a Todo timestamp leaves the process.
const TimeFormat = time.RFC3339

type Todo struct {
	ID          uint      `gorm:"primaryKey"`
	Title       string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:200"`
	Completed   bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// NewTodo returns an unpersisted Todo. ID and timestamps stay zero until the
// persistence service stores it.
func NewTodo(title string) *Todo {
	return &Todo{
		Title:     title,
		Completed: false,
	}
}

func (t Todo) IsPersisted() bool {
	return t.ID != 0
}

// ToMap converts the Todo to a plain output mapping.
func (t Todo) ToMap() map[string]any {
	var description any
	if t.Description != nil {
		description = *t.Description
	}
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": description,
		"completed":   t.Completed,
		"created_at":  FormatTime(t.CreatedAt),
		"updated_at":  FormatTime(t.UpdatedAt),
	}
}

// FormatTime renders ts in UTC using TimeFormat.
func FormatTime(ts time.Time) string {
	return ts.UTC().Format(TimeFormat)
}
