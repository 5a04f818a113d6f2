package perf

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service validates input before delegating to the store.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("perf store is required")
	}
	return &Service{store: store}, nil
}

// Store exposes the underlying store; it doubles as the auth.OwnerStore.
func (s *Service) Store() Store { return s.store }

func (s *Service) CreateTask(ctx context.Context, t *Task) (*Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	t.AssignedTo = strings.TrimSpace(t.AssignedTo)
	if t.AssignedTo == "" {
		return nil, fmt.Errorf("%w: assigned_to is required", ErrInvalidInput)
	}
	t.Department = strings.TrimSpace(t.Department)
	if t.Department == "" {
		return nil, fmt.Errorf("%w: department is required", ErrInvalidInput)
	}
	if t.Status == "" {
		t.Status = TaskPlanned
	}
	if !validTaskStatus(t.Status) {
		return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, t.Status)
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	return s.store.GetTask(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	return s.store.ListTasks(ctx, f)
}

func (s *Service) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		upd.Title = &title
	}
	if upd.Status != nil && !validTaskStatus(*upd.Status) {
		return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, *upd.Status)
	}
	return s.store.UpdateTask(ctx, id, upd)
}

func (s *Service) CreateKPI(ctx context.Context, k *KPI) (*KPI, error) {
	k.Name = strings.TrimSpace(k.Name)
	if k.Name == "" {
		return nil, fmt.Errorf("%w: kpi name is required", ErrInvalidInput)
	}
	if k.Target < 0 {
		return nil, fmt.Errorf("%w: target must be >= 0", ErrInvalidInput)
	}
	if k.Weight <= 0 || k.Weight > 1 {
		return nil, fmt.Errorf("%w: weight must be in (0,1]", ErrInvalidInput)
	}
	if err := s.store.CreateKPI(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *Service) ListKPIs(ctx context.Context) ([]*KPI, error) {
	return s.store.ListKPIs(ctx)
}

func (s *Service) CreateScore(ctx context.Context, sc *Score) (*Score, error) {
	sc.KPIID = strings.TrimSpace(sc.KPIID)
	sc.UserID = strings.TrimSpace(sc.UserID)
	sc.Period = strings.TrimSpace(sc.Period)
	if sc.KPIID == "" || sc.UserID == "" || sc.Period == "" {
		return nil, fmt.Errorf("%w: kpi_id, user_id and period are required", ErrInvalidInput)
	}
	if sc.Value < 0 {
		return nil, fmt.Errorf("%w: value must be >= 0", ErrInvalidInput)
	}
	if err := s.store.CreateScore(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) GetScore(ctx context.Context, id string) (*Score, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: score id is required", ErrInvalidInput)
	}
	return s.store.GetScore(ctx, id)
}

func (s *Service) ListScoresByUser(ctx context.Context, userID string) ([]*Score, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.ListScoresByUser(ctx, userID)
}

func (s *Service) CreateSurvey(ctx context.Context, sv *Survey) (*Survey, error) {
	sv.Title = strings.TrimSpace(sv.Title)
	if sv.Title == "" {
		return nil, fmt.Errorf("%w: survey title is required", ErrInvalidInput)
	}
	questions := make([]string, 0, len(sv.Questions))
	for _, q := range sv.Questions {
		q = strings.TrimSpace(q)
		if q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", ErrInvalidInput)
	}
	sv.Questions = questions
	if err := s.store.CreateSurvey(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *Service) ListSurveys(ctx context.Context) ([]*Survey, error) {
	return s.store.ListSurveys(ctx)
}

func (s *Service) SubmitSurveyResponse(ctx context.Context, r *SurveyResponse) (*SurveyResponse, error) {
	r.SurveyID = strings.TrimSpace(r.SurveyID)
	r.UserID = strings.TrimSpace(r.UserID)
	if r.SurveyID == "" || r.UserID == "" {
		return nil, fmt.Errorf("%w: survey_id and user_id are required", ErrInvalidInput)
	}
	survey, err := s.store.GetSurvey(ctx, r.SurveyID)
	if err != nil {
		return nil, err
	}
	if !survey.Active {
		return nil, fmt.Errorf("%w: survey is closed", ErrInvalidInput)
	}
	if len(r.Answers) != len(survey.Questions) {
		return nil, fmt.Errorf("%w: expected %d answers", ErrInvalidInput, len(survey.Questions))
	}
	if err := s.store.CreateSurveyResponse(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListSurveyResponses(ctx context.Context, surveyID string) ([]*SurveyResponse, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey id is required", ErrInvalidInput)
	}
	return s.store.ListSurveyResponses(ctx, surveyID)
}

func (s *Service) CreateFeedback(ctx context.Context, f *Feedback) (*Feedback, error) {
	f.FromUserID = strings.TrimSpace(f.FromUserID)
	f.AboutUserID = strings.TrimSpace(f.AboutUserID)
	f.Body = strings.TrimSpace(f.Body)
	if f.FromUserID == "" || f.AboutUserID == "" {
		return nil, fmt.Errorf("%w: from_user_id and about_user_id are required", ErrInvalidInput)
	}
	if f.Body == "" {
		return nil, fmt.Errorf("%w: feedback body is required", ErrInvalidInput)
	}
	if f.Rating < 1 || f.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) ListFeedbackAbout(ctx context.Context, userID string) ([]*Feedback, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.ListFeedbackAbout(ctx, userID)
}

func validTaskStatus(st TaskStatus) bool {
	switch st {
	case TaskPlanned, TaskInProgress, TaskCompleted, TaskOnHold:
		return true
	default:
		return false
	}
}
