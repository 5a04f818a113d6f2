package perf

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into tasks(id, title, description, assigned_to, department, status, due_date, created_by)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Title, t.Description, t.AssignedTo, t.Department, string(t.Status), t.DueDate, t.CreatedBy,
	)
	return err
}

const taskColumns = `id, title, description, assigned_to, department, status, due_date, created_by, created_at, updated_at`

func (s *PGStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id=$1`, id)
	return scanTask(row)
}

func (s *PGStore) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+taskColumns+` from tasks
		 where ($1 = '' or assigned_to = $1) and ($2 = '' or department = $2)
		 order by created_at asc`,
		f.AssignedTo, f.Department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}
	row := s.db.QueryRowContext(ctx,
		`update tasks set
			title = coalesce($2, title),
			description = coalesce($3, description),
			status = coalesce($4, status),
			due_date = coalesce($5, due_date),
			updated_at = now()
		 where id=$1
		 returning `+taskColumns,
		id, upd.Title, upd.Description, status, upd.DueDate)
	return scanTask(row)
}

func (s *PGStore) CreateKPI(ctx context.Context, k *KPI) error {
	if k.ID == "" {
		k.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into kpis(id, name, description, unit, target, weight) values($1,$2,$3,$4,$5,$6)`,
		k.ID, k.Name, k.Description, k.Unit, k.Target, k.Weight)
	return err
}

func (s *PGStore) ListKPIs(ctx context.Context) ([]*KPI, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description, unit, target, weight, created_at from kpis order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*KPI
	for rows.Next() {
		var k KPI
		if err := rows.Scan(&k.ID, &k.Name, &k.Description, &k.Unit, &k.Target, &k.Weight, &k.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &k)
	}
	return res, rows.Err()
}

func (s *PGStore) CreateScore(ctx context.Context, sc *Score) error {
	if sc.ID == "" {
		sc.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into scores(id, kpi_id, user_id, period, value, remarks, scored_by)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		sc.ID, sc.KPIID, sc.UserID, sc.Period, sc.Value, sc.Remarks, sc.ScoredBy)
	return err
}

func (s *PGStore) GetScore(ctx context.Context, id string) (*Score, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, kpi_id, user_id, period, value, remarks, scored_by, created_at from scores where id=$1`, id)
	var sc Score
	err := row.Scan(&sc.ID, &sc.KPIID, &sc.UserID, &sc.Period, &sc.Value, &sc.Remarks, &sc.ScoredBy, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

func (s *PGStore) ListScoresByUser(ctx context.Context, userID string) ([]*Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, kpi_id, user_id, period, value, remarks, scored_by, created_at
		 from scores where user_id=$1 order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.ID, &sc.KPIID, &sc.UserID, &sc.Period, &sc.Value, &sc.Remarks, &sc.ScoredBy, &sc.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &sc)
	}
	return res, rows.Err()
}

func (s *PGStore) CreateSurvey(ctx context.Context, sv *Survey) error {
	if sv.ID == "" {
		sv.ID = ids.New()
	}
	questions, err := json.Marshal(sv.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into surveys(id, title, description, questions, active, created_by)
		 values($1,$2,$3,$4,$5,$6)`,
		sv.ID, sv.Title, sv.Description, questions, sv.Active, sv.CreatedBy)
	return err
}

func (s *PGStore) ListSurveys(ctx context.Context) ([]*Survey, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, description, questions, active, created_by, created_at
		 from surveys order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sv)
	}
	return res, rows.Err()
}

func (s *PGStore) GetSurvey(ctx context.Context, id string) (*Survey, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, description, questions, active, created_by, created_at from surveys where id=$1`, id)
	return scanSurvey(row)
}

func (s *PGStore) CreateSurveyResponse(ctx context.Context, r *SurveyResponse) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into survey_responses(id, survey_id, user_id, answers) values($1,$2,$3,$4)`,
		r.ID, r.SurveyID, r.UserID, answers)
	return err
}

func (s *PGStore) ListSurveyResponses(ctx context.Context, surveyID string) ([]*SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, survey_id, user_id, answers, submitted_at
		 from survey_responses where survey_id=$1 order by submitted_at asc`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*SurveyResponse
	for rows.Next() {
		var (
			r       SurveyResponse
			answers []byte
		)
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.UserID, &answers, &r.SubmittedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(answers, &r.Answers)
		res = append(res, &r)
	}
	return res, rows.Err()
}

func (s *PGStore) CreateFeedback(ctx context.Context, f *Feedback) error {
	if f.ID == "" {
		f.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into feedback(id, from_user_id, about_user_id, body, rating)
		 values($1,$2,$3,$4,$5)`,
		f.ID, f.FromUserID, f.AboutUserID, f.Body, f.Rating)
	return err
}

func (s *PGStore) ListFeedbackAbout(ctx context.Context, userID string) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, from_user_id, about_user_id, body, rating, created_at
		 from feedback where about_user_id=$1 order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []*Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.FromUserID, &f.AboutUserID, &f.Body, &f.Rating, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &f)
	}
	return res, rows.Err()
}

// Owner resolves a task or score to its owning user for scoped access checks.
func (s *PGStore) Owner(ctx context.Context, category auth.Category, id string) (string, error) {
	var (
		owner string
		err   error
	)
	switch category {
	case auth.CategoryTask:
		err = s.db.QueryRowContext(ctx, `select assigned_to from tasks where id=$1`, id).Scan(&owner)
	case auth.CategoryScore:
		err = s.db.QueryRowContext(ctx, `select user_id from scores where id=$1`, id).Scan(&owner)
	default:
		return "", auth.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", auth.ErrNotFound
		}
		return "", err
	}
	return owner, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t      Task
		status string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.Department,
		&status, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Status = TaskStatus(status)
	return &t, nil
}

func scanSurvey(row rowScanner) (*Survey, error) {
	var (
		sv        Survey
		questions []byte
	)
	err := row.Scan(&sv.ID, &sv.Title, &sv.Description, &questions, &sv.Active, &sv.CreatedBy, &sv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(questions, &sv.Questions)
	return &sv, nil
}
