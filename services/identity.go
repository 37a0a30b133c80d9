package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"saborlimeno/gorest/models"
	"saborlimeno/gorest/store"
)

type IdentityStore interface {
	store.Counters
	store.Users
}

// Identity manages accounts and bearer sessions.
type Identity struct {
	store    IdentityStore
	sessions store.Sessions
	now      func() time.Time
}

func NewIdentity(st IdentityStore, sessions store.Sessions) *Identity {
	return &Identity{store: st, sessions: sessions, now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	switch {
	case in.Name == "":
		return invalid("nombre", "is required")
	case in.Email == "":
		return invalid("email", "is required")
	case !strings.Contains(in.Email, "@"):
		return invalid("email", "is not a valid address")
	case in.Password == "":
		return invalid("password", "is required")
	}
	return nil
}

// Register creates a client account in the "nuevo" loyalty tier.
func (s *Identity) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleClient, models.CategoryNew)
}

func (s *Identity) createUser(ctx context.Context, in RegisterInput, role models.Role, category models.Category) (*models.User, error) {
	ctx, span := otel.Tracer("identity").Start(ctx, "Register")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.store.NextSequence(ctx, store.SeqUsers)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           id,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Category:     category,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))
	return user, nil
}

// EnsureAdmin creates the admin account unless one with that email exists.
// The boolean reports whether a new account was created.
func (s *Identity) EnsureAdmin(ctx context.Context, in RegisterInput) (*models.User, bool, error) {
	if existing, err := s.store.FindUserByEmail(ctx, normalizeEmail(in.Email)); err == nil {
		return existing, false, nil
	}
	u, err := s.createUser(ctx, in, models.RoleAdmin, models.CategoryNew)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// Login checks credentials and opens a session.
func (s *Identity) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	ctx, span := otel.Tracer("identity").Start(ctx, "Login")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, invalid("email", "email and password are required")
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Identity) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	id, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *Identity) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

func (s *Identity) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Identity) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// UserUpdate carries the admin editable profile fields. Nil fields are left alone.
type UserUpdate struct {
	Name     *string          `json:"nombre,omitempty"`
	Role     *models.Role     `json:"role,omitempty"`
	Category *models.Category `json:"categoria,omitempty"`
}

func (u UserUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return invalid("nombre", "must not be empty")
	}
	if u.Role != nil && !u.Role.Valid() {
		return invalid("role", "must be admin or cliente")
	}
	if u.Category != nil && !u.Category.Valid() {
		return invalid("categoria", "must be nuevo, frecuente or vip")
	}
	return nil
}

func (s *Identity) UpdateUser(ctx context.Context, id int, upd UserUpdate) (*models.User, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.Category != nil {
		user.Category = *upd.Category
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return user, nil
}

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
