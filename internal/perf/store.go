package perf

import (
	"context"

	"sevadarpan.org/internal/auth"
)

// Store describes persistence for the performance domain. Implementations
// also resolve resource ownership for department-scoped access checks.
type Store interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error)

	CreateKPI(ctx context.Context, k *KPI) error
	ListKPIs(ctx context.Context) ([]*KPI, error)

	CreateScore(ctx context.Context, s *Score) error
	GetScore(ctx context.Context, id string) (*Score, error)
	ListScoresByUser(ctx context.Context, userID string) ([]*Score, error)

	CreateSurvey(ctx context.Context, s *Survey) error
	ListSurveys(ctx context.Context) ([]*Survey, error)
	GetSurvey(ctx context.Context, id string) (*Survey, error)
	CreateSurveyResponse(ctx context.Context, r *SurveyResponse) error
	ListSurveyResponses(ctx context.Context, surveyID string) ([]*SurveyResponse, error)

	CreateFeedback(ctx context.Context, f *Feedback) error
	ListFeedbackAbout(ctx context.Context, userID string) ([]*Feedback, error)

	// Owner implements auth.OwnerStore over tasks and scores.
	Owner(ctx context.Context, category auth.Category, id string) (string, error)
}
