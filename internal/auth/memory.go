package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"sevadarpan.org/internal/ids"
)

var _ UserStore = (*InMemory)(nil)

// InMemory implements UserStore with in-process concurrency safety. It backs
// local development (no DSN configured) and tests.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
}

// NewInMemory creates an empty user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) ListByDepartment(ctx context.Context, department string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*User
	for _, u := range s.users {
		if u.Department == department {
			cp := *u
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *InMemory) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	email := strings.TrimSpace(strings.ToLower(u.Email))
	if email != cur.Email {
		if _, taken := s.byEmail[email]; taken {
			return ErrAlreadyExists
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[email] = u.ID
	}
	cur.Name = u.Name
	cur.Email = email
	cur.Role = u.Role
	cur.Department = u.Department
	cur.Active = u.Active
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) SetPassword(ctx context.Context, userID, passwordHash string) error {
	return s.mutate(userID, func(u *User) { u.PasswordHash = passwordHash })
}

func (s *InMemory) SetTwoFactor(ctx context.Context, userID string, enabled bool, secret string) error {
	return s.mutate(userID, func(u *User) {
		u.TwoFactorEnabled = enabled
		u.TwoFactorSecret = secret
	})
}

func (s *InMemory) Deactivate(ctx context.Context, userID string) error {
	return s.mutate(userID, func(u *User) { u.Active = false })
}

func (s *InMemory) mutate(userID string, fn func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SeedDemo loads the development fixture accounts. This replaces the
// hard-coded credential lists of the old demo servers; it is only wired when
// no database is configured.
func SeedDemo(ctx context.Context, store UserStore) error {
	fixtures := []struct {
		name, email, password, department string
		role                              Role
	}{
		{"System Administrator", "admin@brahmaputra.gov.in", "admin123", "Administration", RoleAdministrator},
		{"Division Head", "head@brahmaputra.gov.in", "head123", "Hydrology", RoleDivisionHead},
		{"Field Employee", "employee@brahmaputra.gov.in", "employee123", "Hydrology", RoleEmployee},
	}
	for _, f := range fixtures {
		hash, err := HashPassword(f.password)
		if err != nil {
			return err
		}
		u := &User{
			Name:         f.name,
			Email:        f.email,
			PasswordHash: hash,
			Role:         f.role,
			Department:   f.department,
			Active:       true,
		}
		if err := store.Create(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
