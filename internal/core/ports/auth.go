package ports

import (
	"context"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// AuthRepository defines the interface for user persistence.
type AuthRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	// List returns users, optionally filtered by role.
	List(ctx context.Context, role string, skip, limit int) ([]*domain.User, error)
	// TouchLastLogin records a successful login timestamp (best effort).
	TouchLastLogin(ctx context.Context, id string) error
}

// RegisterInput carries the fields accepted at registration time. Role may
// be "customer" or "courier"; admins are provisioned out of band.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

// UpdateProfileInput carries the mutable profile fields; nil means unchanged.
type UpdateProfileInput struct {
	FullName *string
	Phone    *string
	Password *string
}

// AuthService implements registration, login and profile management.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]*domain.User, error)
	ListCouriers(ctx context.Context, skip, limit int) ([]*domain.User, error)
}
