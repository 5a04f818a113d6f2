package perf

import (
	"context"
	"sync"
	"time"

	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. Backs local
// development and tests.
type InMemory struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	kpis      map[string]*KPI
	scores    map[string]*Score
	surveys   map[string]*Survey
	responses map[string][]*SurveyResponse
	feedback  map[string][]*Feedback
}

func NewInMemory() *InMemory {
	return &InMemory{
		tasks:     make(map[string]*Task),
		kpis:      make(map[string]*KPI),
		scores:    make(map[string]*Score),
		surveys:   make(map[string]*Survey),
		responses: make(map[string][]*SurveyResponse),
		feedback:  make(map[string][]*Feedback),
	}
}

func (s *InMemory) CreateTask(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *InMemory) GetTask(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Task
	for _, t := range s.tasks {
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Department != "" && t.Department != f.Department {
			continue
		}
		cp := *t
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.DueDate != nil {
		due := *upd.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (s *InMemory) CreateKPI(ctx context.Context, k *KPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = ids.New()
	}
	k.CreatedAt = time.Now().UTC()
	cp := *k
	s.kpis[k.ID] = &cp
	return nil
}

func (s *InMemory) ListKPIs(ctx context.Context) ([]*KPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*KPI, 0, len(s.kpis))
	for _, k := range s.kpis {
		cp := *k
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) CreateScore(ctx context.Context, sc *Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == "" {
		sc.ID = ids.New()
	}
	sc.CreatedAt = time.Now().UTC()
	cp := *sc
	s.scores[sc.ID] = &cp
	return nil
}

func (s *InMemory) GetScore(ctx context.Context, id string) (*Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *InMemory) ListScoresByUser(ctx context.Context, userID string) ([]*Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Score
	for _, sc := range s.scores {
		if sc.UserID == userID {
			cp := *sc
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *InMemory) CreateSurvey(ctx context.Context, sv *Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sv.ID == "" {
		sv.ID = ids.New()
	}
	sv.CreatedAt = time.Now().UTC()
	cp := *sv
	cp.Questions = append([]string(nil), sv.Questions...)
	s.surveys[sv.ID] = &cp
	return nil
}

func (s *InMemory) ListSurveys(ctx context.Context) ([]*Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Survey, 0, len(s.surveys))
	for _, sv := range s.surveys {
		cp := *sv
		cp.Questions = append([]string(nil), sv.Questions...)
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.surveys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sv
	cp.Questions = append([]string(nil), sv.Questions...)
	return &cp, nil
}

func (s *InMemory) CreateSurveyResponse(ctx context.Context, r *SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	r.SubmittedAt = time.Now().UTC()
	cp := *r
	cp.Answers = append([]string(nil), r.Answers...)
	s.responses[r.SurveyID] = append(s.responses[r.SurveyID], &cp)
	return nil
}

func (s *InMemory) ListSurveyResponses(ctx context.Context, surveyID string) ([]*SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.responses[surveyID]
	res := make([]*SurveyResponse, 0, len(list))
	for _, r := range list {
		cp := *r
		cp.Answers = append([]string(nil), r.Answers...)
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) CreateFeedback(ctx context.Context, f *Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = ids.New()
	}
	f.CreatedAt = time.Now().UTC()
	cp := *f
	s.feedback[f.AboutUserID] = append(s.feedback[f.AboutUserID], &cp)
	return nil
}

func (s *InMemory) ListFeedbackAbout(ctx context.Context, userID string) ([]*Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.feedback[userID]
	res := make([]*Feedback, 0, len(list))
	for _, f := range list {
		cp := *f
		res = append(res, &cp)
	}
	return res, nil
}

// Owner resolves a task or score to its owning user for scoped access checks.
func (s *InMemory) Owner(ctx context.Context, category auth.Category, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch category {
	case auth.CategoryTask:
		if t, ok := s.tasks[id]; ok {
			return t.AssignedTo, nil
		}
	case auth.CategoryScore:
		if sc, ok := s.scores[id]; ok {
			return sc.UserID, nil
		}
	}
	return "", auth.ErrNotFound
}
