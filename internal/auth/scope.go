package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category identifies the kind of resource guarded by scoped access checks.
type Category string

const (
	CategoryUser  Category = "user"
	CategoryTask  Category = "task"
	CategoryScore Category = "score"
)

// Scope decides resource-scoped access: administrators see everything,
// division heads see resources owned by users in their own department,
// employees see only their own.
type Scope struct {
	users  UserStore
	owners OwnerStore
}

// NewScope builds a scope checker over the given stores.
func NewScope(users UserStore, owners OwnerStore) *Scope {
	return &Scope{users: users, owners: owners}
}

type decision func(s *Scope, ctx context.Context, requester *User, category Category, targetID string) error

// One decision function per role keeps the policy table closed and testable.
var roleDecisions = map[Role]decision{
	RoleAdministrator: decideAdministrator,
	RoleDivisionHead:  decideDivisionHead,
	RoleEmployee:      decideEmployee,
}

// Authorize returns nil when the requester may access the target resource,
// ErrForbidden on a policy denial, and a wrapped store error on unexpected
// lookup failures. A missing resource is a denial, not an error.
func (s *Scope) Authorize(ctx context.Context, requester *User, category Category, targetID string) error {
	if requester == nil {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(targetID) == "" {
		return ErrForbidden
	}
	decide, ok := roleDecisions[requester.Role]
	if !ok {
		return ErrForbidden
	}
	return decide(s, ctx, requester, category, targetID)
}

func decideAdministrator(*Scope, context.Context, *User, Category, string) error {
	return nil
}

func decideDivisionHead(s *Scope, ctx context.Context, requester *User, category Category, targetID string) error {
	ownerID, err := s.ownerID(ctx, category, targetID)
	if err != nil {
		return err
	}
	owner, err := s.users.Find(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("resolve owner %s: %w", ownerID, err)
	}
	if owner.Department != requester.Department {
		return ErrForbidden
	}
	return nil
}

func decideEmployee(s *Scope, ctx context.Context, requester *User, category Category, targetID string) error {
	ownerID, err := s.ownerID(ctx, category, targetID)
	if err != nil {
		return err
	}
	if ownerID != requester.ID {
		return ErrForbidden
	}
	return nil
}

// ownerID maps the target to the user that owns it. For the user category the
// target id is already a user id.
func (s *Scope) ownerID(ctx context.Context, category Category, targetID string) (string, error) {
	if category == CategoryUser {
		return targetID, nil
	}
	ownerID, err := s.owners.Owner(ctx, category, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrForbidden
		}
		return "", fmt.Errorf("resolve %s %s: %w", category, targetID, err)
	}
	return ownerID, nil
}
