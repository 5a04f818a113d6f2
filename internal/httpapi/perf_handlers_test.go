package httpapi

import (
	"context"
	"net/http"
	"testing"

	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/perf"
)

// seedGeologyTask creates an out-of-department employee and a task assigned
// to them, directly through the stores.
func seedGeologyTask(t *testing.T, env *testEnv) (*auth.User, *perf.Task) {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("geo12345")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	geo := &auth.User{
		Name: "Geo Employee", Email: "geo@brahmaputra.gov.in", PasswordHash: hash,
		Role: auth.RoleEmployee, Department: "Geology", Active: true,
	}
	if err := env.users.Create(ctx, geo); err != nil {
		t.Fatalf("create user: %v", err)
	}
	task := &perf.Task{
		Title: "Soil sampling", AssignedTo: geo.ID, Department: "Geology",
		Status: perf.TaskPlanned, CreatedBy: "seed",
	}
	if err := env.perfStore.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return geo, task
}

func TestTaskCreateRoles(t *testing.T) {
	env := newTestEnv(t)
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")

	body := map[string]any{"title": "River gauging", "assigned_to": emp.ID}

	rr := env.do(t, http.MethodPost, "/api/tasks", empToken, body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("employee create task: expected 403, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/tasks", headToken, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("head create task: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Task struct {
			ID         string `json:"id"`
			Department string `json:"department"`
		} `json:"task"`
	}
	decodeBody(t, rr, &resp)
	if resp.Task.Department != "Hydrology" {
		t.Fatalf("task must inherit assignee department, got %q", resp.Task.Department)
	}
}

func TestDivisionHeadCannotAssignOutsideDepartment(t *testing.T) {
	env := newTestEnv(t)
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	geo, _ := seedGeologyTask(t, env)

	rr := env.do(t, http.MethodPost, "/api/tasks", headToken, map[string]any{
		"title": "Cross-dept work", "assigned_to": geo.ID,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestTaskScopeMatrixOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin@brahmaputra.gov.in", "admin123")
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")

	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")
	hydroTask := &perf.Task{
		Title: "Discharge reading", AssignedTo: emp.ID, Department: "Hydrology",
		Status: perf.TaskPlanned, CreatedBy: "seed",
	}
	if err := env.perfStore.CreateTask(context.Background(), hydroTask); err != nil {
		t.Fatalf("create task: %v", err)
	}
	_, geoTask := seedGeologyTask(t, env)

	cases := []struct {
		name   string
		token  string
		taskID string
		want   int
	}{
		{"admin any task", adminToken, geoTask.ID, http.StatusOK},
		{"head own department", headToken, hydroTask.ID, http.StatusOK},
		{"head other department", headToken, geoTask.ID, http.StatusForbidden},
		{"employee own task", empToken, hydroTask.ID, http.StatusOK},
		{"employee other task", empToken, geoTask.ID, http.StatusForbidden},
		{"missing task is denial", empToken, "does-not-exist", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/tasks/"+tc.taskID, tc.token, nil)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestEmployeeUpdatesOwnTaskStatusOnly(t *testing.T) {
	env := newTestEnv(t)
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")
	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")

	task := &perf.Task{
		Title: "Discharge reading", AssignedTo: emp.ID, Department: "Hydrology",
		Status: perf.TaskPlanned, CreatedBy: "seed",
	}
	if err := env.perfStore.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	rr := env.do(t, http.MethodPut, "/api/tasks/"+task.ID, empToken, map[string]any{"title": "Renamed"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("retitle: expected 403, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, empToken, map[string]any{"status": "in_progress"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Task struct {
			Status string `json:"status"`
		} `json:"task"`
	}
	decodeBody(t, rr, &resp)
	if resp.Task.Status != "in_progress" {
		t.Fatalf("unexpected status: %s", resp.Task.Status)
	}
}

func TestTaskListingNarrowedByRole(t *testing.T) {
	env := newTestEnv(t)
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")

	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")
	head := env.userByEmail(t, "head@brahmaputra.gov.in")
	ctx := context.Background()
	for _, task := range []*perf.Task{
		{Title: "A", AssignedTo: emp.ID, Department: "Hydrology", Status: perf.TaskPlanned},
		{Title: "B", AssignedTo: head.ID, Department: "Hydrology", Status: perf.TaskPlanned},
	} {
		if err := env.perfStore.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	seedGeologyTask(t, env)

	var resp struct {
		Tasks []struct {
			Department string `json:"department"`
			AssignedTo string `json:"assigned_to"`
		} `json:"tasks"`
	}

	// The head sees the whole department but cannot widen the filter.
	rr := env.do(t, http.MethodGet, "/api/tasks?department=Geology", headToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("head list: expected 200, got %d", rr.Code)
	}
	decodeBody(t, rr, &resp)
	if len(resp.Tasks) != 2 {
		t.Fatalf("head should see 2 hydrology tasks, got %d", len(resp.Tasks))
	}
	for _, task := range resp.Tasks {
		if task.Department != "Hydrology" {
			t.Fatalf("head leaked foreign department task: %+v", task)
		}
	}

	// The employee sees only their own assignments.
	rr = env.do(t, http.MethodGet, "/api/tasks", empToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("employee list: expected 200, got %d", rr.Code)
	}
	resp.Tasks = nil
	decodeBody(t, rr, &resp)
	if len(resp.Tasks) != 1 || resp.Tasks[0].AssignedTo != emp.ID {
		t.Fatalf("employee should see exactly their own task, got %+v", resp.Tasks)
	}
}

func TestScoreScopeOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")
	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")
	geo, _ := seedGeologyTask(t, env)

	// Head scores own department.
	rr := env.do(t, http.MethodPost, "/api/scores", headToken, map[string]any{
		"kpi_id": "kpi-1", "user_id": emp.ID, "period": "2026-Q3", "value": 4.5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("head score: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	// Head denied outside department.
	rr = env.do(t, http.MethodPost, "/api/scores", headToken, map[string]any{
		"kpi_id": "kpi-1", "user_id": geo.ID, "period": "2026-Q3", "value": 4.5,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-department score: expected 403, got %d", rr.Code)
	}

	// Employee cannot score at all.
	rr = env.do(t, http.MethodPost, "/api/scores", empToken, map[string]any{
		"kpi_id": "kpi-1", "user_id": emp.ID, "period": "2026-Q3", "value": 5,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("employee score: expected 403, got %d", rr.Code)
	}

	// Employee reads own scores, not a colleague's.
	rr = env.do(t, http.MethodGet, "/api/scores", empToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("own scores: expected 200, got %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/api/scores?user_id="+geo.ID, empToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign scores: expected 403, got %d", rr.Code)
	}
}

func TestAuditEndpointAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin@brahmaputra.gov.in", "admin123")
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	env.recorder.Flush()

	rr := env.do(t, http.MethodGet, "/api/audit", headToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("head audit access: expected 403, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/audit", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin audit access: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Entries) == 0 {
		t.Fatal("expected login audit entries")
	}
}

func TestUserListingNarrowedByRole(t *testing.T) {
	env := newTestEnv(t)
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	empToken := env.login(t, "employee@brahmaputra.gov.in", "employee123")
	seedGeologyTask(t, env)

	var resp struct {
		Users []struct {
			Department string `json:"department"`
			Email      string `json:"email"`
		} `json:"users"`
	}

	rr := env.do(t, http.MethodGet, "/api/users", headToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("head users: expected 200, got %d", rr.Code)
	}
	decodeBody(t, rr, &resp)
	for _, u := range resp.Users {
		if u.Department != "Hydrology" {
			t.Fatalf("head must only see own department: %+v", u)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/users", empToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("employee users: expected 200, got %d", rr.Code)
	}
	resp.Users = nil
	decodeBody(t, rr, &resp)
	if len(resp.Users) != 1 || resp.Users[0].Email != "employee@brahmaputra.gov.in" {
		t.Fatalf("employee should only see self, got %+v", resp.Users)
	}
}

func TestMutationWritesAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	headToken := env.login(t, "head@brahmaputra.gov.in", "head123")
	emp := env.userByEmail(t, "employee@brahmaputra.gov.in")

	rr := env.do(t, http.MethodPost, "/api/tasks", headToken, map[string]any{
		"title": "Audited task", "assigned_to": emp.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d", rr.Code)
	}
	env.recorder.Flush()

	entries, err := env.sink.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) == 0 || entries[0].Action != "task.create" {
		t.Fatalf("expected task.create entry first, got %+v", entries)
	}
	head := env.userByEmail(t, "head@brahmaputra.gov.in")
	if entries[0].ActorID != head.ID {
		t.Fatalf("entry should carry the acting user: %+v", entries[0])
	}
}
