package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

type stubAuthRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	nextID  int
	touched []string
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{byID: make(map[string]*domain.User)}
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	clone := *user
	clone.ID = fmt.Sprintf("u%d", r.nextID)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubAuthRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	r.byID[user.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubAuthRepo) List(_ context.Context, role string, skip, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if role == "" || u.Role == role {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubAuthRepo) TouchLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func registerUser(t *testing.T, svc *AuthService, email, role string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Email:    email,
		Password: "correct horse",
		FullName: "Test User",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func TestAuthService_Register_DefaultsToCustomer(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)

	user := registerUser(t, svc, "a@example.com", "")

	if user.Role != domain.RoleCustomer {
		t.Fatalf("expected customer role, got %q", user.Role)
	}
	if !user.Active {
		t.Fatalf("expected active account")
	}
	if user.PasswordHash == "correct horse" || user.PasswordHash == "" {
		t.Fatalf("password not hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestAuthService_Register_AdminRoleRejected(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), "secret", time.Minute)

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Email:    "a@example.com",
		Password: "pw12345678",
		Role:     domain.RoleAdmin,
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), "secret", time.Minute)
	registerUser(t, svc, "a@example.com", "")

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Email:    "a@example.com",
		Password: "another pw",
	})
	if err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_ReturnsSignedToken(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)
	registered := registerUser(t, svc, "a@example.com", domain.RoleCourier)

	token, user, err := svc.Login(context.Background(), "a@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("wrong user returned")
	}
	if len(repo.touched) != 1 || repo.touched[0] != registered.ID {
		t.Fatalf("last login not touched: %v", repo.touched)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims["sub"] != "a@example.com" {
		t.Fatalf("sub claim = %v", claims["sub"])
	}
	if claims["user_id"] != registered.ID {
		t.Fatalf("user_id claim = %v", claims["user_id"])
	}
	if claims["role"] != domain.RoleCourier {
		t.Fatalf("role claim = %v", claims["role"])
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), "secret", time.Minute)
	registerUser(t, svc, "a@example.com", "")

	if _, _, err := svc.Login(context.Background(), "a@example.com", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), "secret", time.Minute)

	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "pw"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)
	user := registerUser(t, svc, "a@example.com", "")

	repo.mu.Lock()
	repo.byID[user.ID].Active = false
	repo.mu.Unlock()

	if _, _, err := svc.Login(context.Background(), "a@example.com", "correct horse"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_UpdateProfile_PartialUpdate(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)
	user := registerUser(t, svc, "a@example.com", "")

	name := "Renamed User"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, ports.UpdateProfileInput{
		FullName: &name,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FullName != "Renamed User" {
		t.Fatalf("full name not updated: %q", updated.FullName)
	}
	if updated.Email != "a@example.com" {
		t.Fatalf("email changed unexpectedly: %q", updated.Email)
	}
	if updated.PasswordHash != user.PasswordHash {
		t.Fatalf("password hash changed without a password update")
	}
}

func TestAuthService_UpdateProfile_RehashesPassword(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)
	user := registerUser(t, svc, "a@example.com", "")

	pw := "new password 9"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, ports.UpdateProfileInput{
		Password: &pw,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(pw)); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "a@example.com", pw); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAuthService_ListCouriers_FiltersRole(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, "secret", time.Minute)
	registerUser(t, svc, "c1@example.com", domain.RoleCourier)
	registerUser(t, svc, "c2@example.com", domain.RoleCourier)
	registerUser(t, svc, "shopper@example.com", "")

	couriers, err := svc.ListCouriers(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("list couriers: %v", err)
	}
	if len(couriers) != 2 {
		t.Fatalf("expected 2 couriers, got %d", len(couriers))
	}
	for _, u := range couriers {
		if u.Role != domain.RoleCourier {
			t.Fatalf("non-courier in result: %+v", u)
		}
	}
}
