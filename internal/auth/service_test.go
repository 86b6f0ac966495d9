package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/promptvault/promptvault/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn          func(ctx context.Context, user *User) error
	findByIDFn        func(ctx context.Context, id string) (*User, error)
	findByEmailFn     func(ctx context.Context, email string) (*User, error)
	emailExistsFn     func(ctx context.Context, email string) (bool, error)
	updateLastLoginFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

// --- Test Helpers ---

// newTestAuthService creates an authService backed by a mock repo and an
// in-process miniredis instance for session storage.
func newTestAuthService(t *testing.T, repo *mockUserRepo) *authService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &authService{
		repo:       repo,
		redis:      rdb,
		sessionTTL: 24 * time.Hour,
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// mustHash hashes a password or fails the test.
func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return hash
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:       "  Alice@Example.COM ",
		DisplayName: "Alice",
		Password:    "correct horse battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email alice@example.com, got %s", user.Email)
	}
	if user.DisplayName == nil || *user.DisplayName != "Alice" {
		t.Errorf("expected display name Alice, got %v", user.DisplayName)
	}
	if user.ID == "" {
		t.Error("expected generated user ID")
	}
	if !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %q", user.PasswordHash)
	}
	if created == nil {
		t.Fatal("expected repository Create to be called")
	}
}

func TestRegister_EmptyDisplayNameIsOptional(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestAuthService(t, repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.DisplayName != nil {
		t.Errorf("expected nil display name, got %q", *user.DisplayName)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "longenoughpw",
	})
	assertAppError(t, err, 409)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "carol@example.com",
		Password: "short",
	})
	assertAppError(t, err, 422)

	var appErr *apperror.AppError
	errors.As(err, &appErr)
	if appErr.Fields["password"] == "" {
		t.Error("expected field-level error for password")
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})

	for _, email := range []string{"", "noat.example.com", "@example.com", "trailing@"} {
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:    email,
			Password: "longenoughpw",
		})
		assertAppError(t, err, 422)
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	hash := mustHash(t, "correct horse battery")
	name := "Alice"
	lastLoginUpdated := false

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized email lookup, got %s", email)
			}
			return &User{
				ID:           "user-1",
				Email:        email,
				DisplayName:  &name,
				PasswordHash: hash,
			}, nil
		},
		updateLastLoginFn: func(ctx context.Context, id string) error {
			lastLoginUpdated = true
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	token, user, err := svc.Login(context.Background(), LoginInput{
		Email:    " ALICE@example.com ",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected session token")
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %s", user.ID)
	}
	if !lastLoginUpdated {
		t.Error("expected last login timestamp to be updated")
	}

	// The token must resolve to a session carrying the user's identity.
	session, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("validating fresh session: %v", err)
	}
	if session.UserID != "user-1" || session.Name != "Alice" {
		t.Errorf("unexpected session data: %+v", session)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash := mustHash(t, "the real password")

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_UnknownEmail(t *testing.T) {
	// Default mock returns NotFound; the service must not leak that the
	// email is unregistered.
	svc := newTestAuthService(t, &mockUserRepo{})
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_UnusableHashRejected(t *testing.T) {
	// Seeded system accounts store "!" as their hash. No password may
	// ever verify against it.
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "system", Email: email, PasswordHash: "!"}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "system@promptvault.local",
		Password: "!",
	})
	assertAppError(t, err, 401)
}

// --- Session Tests ---

func TestValidateSession_UnknownToken(t *testing.T) {
	svc := newTestAuthService(t, &mockUserRepo{})
	_, err := svc.ValidateSession(context.Background(), "deadbeef")
	assertAppError(t, err, 401)
}

func TestDestroySession_InvalidatesToken(t *testing.T) {
	hash := mustHash(t, "correct horse battery")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	token, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.DestroySession(context.Background(), token); err != nil {
		t.Fatalf("destroying session: %v", err)
	}

	_, err = svc.ValidateSession(context.Background(), token)
	assertAppError(t, err, 401)
}

// --- Password Hashing Tests ---

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hash := mustHash(t, "s3cret-passphrase")

	if !verifyPassword("s3cret-passphrase", hash) {
		t.Error("expected password to verify against its own hash")
	}
	if verifyPassword("other-passphrase", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, bad := range []string{"", "!", "$argon2id$garbage", "plaintext"} {
		if verifyPassword("anything", bad) {
			t.Errorf("expected malformed hash %q to fail verification", bad)
		}
	}
}
