package auth

import "context"

// UserStore describes persistence operations required by the auth subsystem.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByDepartment(ctx context.Context, department string) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SetPassword(ctx context.Context, userID, passwordHash string) error
	SetTwoFactor(ctx context.Context, userID string, enabled bool, secret string) error
	Deactivate(ctx context.Context, userID string) error
}

// OwnerStore resolves a scoped resource to its owning user id.
type OwnerStore interface {
	Owner(ctx context.Context, category Category, id string) (string, error)
}
