package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/obs"
	"sevadarpan.org/internal/perf"
)

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTasks(w, r)
	case http.MethodPost:
		a.createTask(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listTasks constrains the filter by role before it reaches the store, so a
// caller can never widen their view through query parameters.
func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	f := perf.TaskFilter{
		AssignedTo: strings.TrimSpace(r.URL.Query().Get("assigned_to")),
		Department: strings.TrimSpace(r.URL.Query().Get("department")),
	}
	switch requester.Role {
	case auth.RoleAdministrator:
	case auth.RoleDivisionHead:
		f.Department = requester.Department
	default:
		f = perf.TaskFilter{AssignedTo: requester.ID}
	}
	tasks, err := a.perf.ListTasks(r.Context(), f)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

// createTask is for administrators and division heads. A division head may
// only assign work inside their own department; the task inherits the
// assignee's department either way.
func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator, auth.RoleDivisionHead) {
		return
	}
	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	assignee, err := a.users.Find(r.Context(), strings.TrimSpace(req.AssignedTo))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "unknown assignee")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if requester.Role == auth.RoleDivisionHead && assignee.Department != requester.Department {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	task := &perf.Task{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignee.ID,
		Department:  assignee.Department,
		Status:      perf.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		CreatedBy:   requester.ID,
	}
	task, err = a.perf.CreateTask(r.Context(), task)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("task.create", "task", task.ID, task.Title, "task")
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getTask(w, r, id)
	case http.MethodPut:
		a.updateTask(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request, id string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryTask, id); err != nil {
		handleScopeError(w, r, err)
		return
	}
	task, err := a.perf.GetTask(r.Context(), id)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

// updateTask lets employees move their own task's status; anything beyond
// that needs a division head or administrator within scope.
func (a *API) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryTask, id); err != nil {
		handleScopeError(w, r, err)
		return
	}
	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if requester.Role == auth.RoleEmployee &&
		(req.Title != nil || req.Description != nil || req.DueDate != nil) {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	upd := perf.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		st := perf.TaskStatus(*req.Status)
		upd.Status = &st
	}
	task, err := a.perf.UpdateTask(r.Context(), id, upd)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("task.update", "task", task.ID, string(task.Status), "task")
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (a *API) handleKPIs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listKPIs(w, r)
	case http.MethodPost:
		a.createKPI(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listKPIs(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	kpis, err := a.perf.ListKPIs(r.Context())
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kpis": kpis})
}

type createKPIRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Target      float64 `json:"target"`
	Weight      float64 `json:"weight"`
}

func (a *API) createKPI(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator) {
		return
	}
	var req createKPIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kpi, err := a.perf.CreateKPI(r.Context(), &perf.KPI{
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
		Target:      req.Target,
		Weight:      req.Weight,
	})
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("kpi.create", "kpi", kpi.ID, kpi.Name, "score")
	writeJSON(w, http.StatusCreated, map[string]any{"kpi": kpi})
}

func (a *API) handleScoresCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listScores(w, r)
	case http.MethodPost:
		a.createScore(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listScores serves the scores of one user, defaulting to the caller. Viewing
// someone else's scores runs through the user-category scope check.
func (a *API) listScores(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = requester.ID
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryUser, userID); err != nil {
		handleScopeError(w, r, err)
		return
	}
	scores, err := a.perf.ListScoresByUser(r.Context(), userID)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

type createScoreRequest struct {
	KPIID   string  `json:"kpi_id"`
	UserID  string  `json:"user_id"`
	Period  string  `json:"period"`
	Value   float64 `json:"value"`
	Remarks string  `json:"remarks"`
}

// createScore records a KPI measurement. Division heads score only their own
// department.
func (a *API) createScore(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator, auth.RoleDivisionHead) {
		return
	}
	var req createScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryUser, strings.TrimSpace(req.UserID)); err != nil {
		handleScopeError(w, r, err)
		return
	}
	score, err := a.perf.CreateScore(r.Context(), &perf.Score{
		KPIID:    req.KPIID,
		UserID:   req.UserID,
		Period:   req.Period,
		Value:    req.Value,
		Remarks:  req.Remarks,
		ScoredBy: requester.ID,
	})
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("score.create", "score", score.ID, score.Period, "score")
	writeJSON(w, http.StatusCreated, map[string]any{"score": score})
}

func (a *API) handleScoreResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/scores/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryScore, id); err != nil {
		handleScopeError(w, r, err)
		return
	}
	score, err := a.perf.GetScore(r.Context(), id)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (a *API) handleSurveysCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSurveys(w, r)
	case http.MethodPost:
		a.createSurvey(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listSurveys(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	surveys, err := a.perf.ListSurveys(r.Context())
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": surveys})
}

type createSurveyRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
}

func (a *API) createSurvey(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator) {
		return
	}
	var req createSurveyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	survey, err := a.perf.CreateSurvey(r.Context(), &perf.Survey{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		Active:      true,
		CreatedBy:   requester.ID,
	})
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("survey.create", "survey", survey.ID, survey.Title, "survey")
	writeJSON(w, http.StatusCreated, map[string]any{"survey": survey})
}

func (a *API) handleSurveyResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/surveys/"), "/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		a.getSurvey(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "responses":
		a.surveyResponses(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (a *API) getSurvey(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	survey, err := a.perf.Store().GetSurvey(r.Context(), id)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"survey": survey})
}

type surveyResponseRequest struct {
	Answers []string `json:"answers"`
}

// surveyResponses submits the caller's answers on POST; reading the collected
// responses stays with administrators and division heads.
func (a *API) surveyResponses(w http.ResponseWriter, r *http.Request, surveyID string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req surveyResponseRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		resp, err := a.perf.SubmitSurveyResponse(r.Context(), &perf.SurveyResponse{
			SurveyID: surveyID,
			UserID:   requester.ID,
			Answers:  req.Answers,
		})
		if err != nil {
			handlePerfError(w, r, err)
			return
		}
		audit.NoteFromContext(r.Context()).Set("survey.respond", "survey", surveyID, "", "survey")
		writeJSON(w, http.StatusCreated, map[string]any{"response": resp})
	case http.MethodGet:
		if !ensureRole(w, r, requester, auth.RoleAdministrator, auth.RoleDivisionHead) {
			return
		}
		responses, err := a.perf.ListSurveyResponses(r.Context(), surveyID)
		if err != nil {
			handlePerfError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleFeedback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listFeedback(w, r)
	case http.MethodPost:
		a.createFeedback(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listFeedback returns feedback about one user, defaulting to the caller.
func (a *API) listFeedback(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	about := strings.TrimSpace(r.URL.Query().Get("about"))
	if about == "" {
		about = requester.ID
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryUser, about); err != nil {
		handleScopeError(w, r, err)
		return
	}
	items, err := a.perf.ListFeedbackAbout(r.Context(), about)
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": items})
}

type createFeedbackRequest struct {
	AboutUserID string `json:"about_user_id"`
	Body        string `json:"body"`
	Rating      int    `json:"rating"`
}

func (a *API) createFeedback(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req createFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fb, err := a.perf.CreateFeedback(r.Context(), &perf.Feedback{
		FromUserID:  requester.ID,
		AboutUserID: req.AboutUserID,
		Body:        req.Body,
		Rating:      req.Rating,
	})
	if err != nil {
		handlePerfError(w, r, err)
		return
	}
	audit.NoteFromContext(r.Context()).Set("feedback.create", "feedback", fb.ID, "", "feedback")
	writeJSON(w, http.StatusCreated, map[string]any{"feedback": fb})
}
