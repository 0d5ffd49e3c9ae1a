package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrInvalidTodo  = errors.New("invalid todo")
	ErrPastDate     = errors.New("cannot add todos to past dates")
)

// DateLayout is the day-granularity key used for calendar dates.
const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Rank orders priorities Low < Medium < High. Unknown values rank as Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	default:
		return 0
	}
}

// Color is the calendar color for the priority.
func (p Priority) Color() string {
	switch p {
	case PriorityHigh:
		return "red"
	case PriorityMedium:
		return "orange"
	default:
		return "green"
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const (
	CategoryAll           = "all"
	CategoryGeneral       = "General"
	CategoryWork          = "work"
	CategoryPersonal      = "personal"
	CategoryEntertainment = "entertainment"
)

// FilterCategories are the values the calendar offers as category filters.
var FilterCategories = []string{CategoryAll, CategoryWork, CategoryPersonal, CategoryEntertainment}

// IsStorableCategory reports whether c may be persisted on a todo.
// "all" only exists as a filter value.
func IsStorableCategory(c string) bool {
	return c != "" && c != CategoryAll
}

// Todo is a dated, prioritized, categorized to-do item.
type Todo struct {
	ID       string    `json:"_id" db:"id"`
	Text     string    `json:"text" db:"text"`
	Priority Priority  `json:"priority" db:"priority"`
	Category string    `json:"category" db:"category"`
	Date     time.Time `json:"date" db:"date"`
	IsDone   bool      `json:"isDone" db:"is_done"`
}

// DateKey returns the calendar day the todo belongs to.
func (t *Todo) DateKey() string {
	return t.Date.UTC().Format(DateLayout)
}

// UpsertInput carries the fields of a create request. The pair (Text, Category)
// identifies an existing todo.
type UpsertInput struct {
	Text     string
	Priority Priority
	Category string
	Date     time.Time
}

// Normalize applies defaults and validates the input.
func (in *UpsertInput) Normalize(now time.Time) error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidTodo)
	}
	if in.Priority == "" {
		in.Priority = PriorityLow
	}
	if !in.Priority.IsValid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTodo, in.Priority)
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}
	if !IsStorableCategory(in.Category) {
		return fmt.Errorf("%w: category %q is filter-only", ErrInvalidTodo, in.Category)
	}
	if in.Date.IsZero() {
		in.Date = now
	}
	return nil
}

// ParseDate accepts either a calendar day (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTodo, s)
	}
	return d, nil
}
