package perf

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("perf: invalid input")
	ErrNotFound     = errors.New("perf: not found")
)

// TaskStatus is the lifecycle state of a tracked project task.
type TaskStatus string

const (
	TaskPlanned    TaskStatus = "planned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOnHold     TaskStatus = "on_hold"
)

// Task is a unit of project work assigned to an employee.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assigned_to"`
	Department  string     `json:"department"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// KPI is a scoring definition shared across departments.
type KPI struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Target      float64   `json:"target"`
	Weight      float64   `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
}

// Score records a KPI measurement for a user over a review period.
type Score struct {
	ID        string    `json:"id"`
	KPIID     string    `json:"kpi_id"`
	UserID    string    `json:"user_id"`
	Period    string    `json:"period"`
	Value     float64   `json:"value"`
	Remarks   string    `json:"remarks,omitempty"`
	ScoredBy  string    `json:"scored_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Survey is a questionnaire published to employees.
type Survey struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Questions   []string  `json:"questions"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// SurveyResponse holds one user's answers to a survey.
type SurveyResponse struct {
	ID          string    `json:"id"`
	SurveyID    string    `json:"survey_id"`
	UserID      string    `json:"user_id"`
	Answers     []string  `json:"answers"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Feedback is a remark one user leaves about another.
type Feedback struct {
	ID          string    `json:"id"`
	FromUserID  string    `json:"from_user_id"`
	AboutUserID string    `json:"about_user_id"`
	Body        string    `json:"body"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskUpdate carries optional task mutations.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	DueDate     *time.Time
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	AssignedTo string
	Department string
}
