package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const revokedTokenPrefix = "auth:revoked:"

type RegisterInput struct {
	Username string `json:"username" form:"username"`
	Name     string `json:"name" form:"name"` // the mobile client sends name instead of username
	Email    string `json:"email" form:"email" validate:"required,email"`
	Phone    string `json:"phone" form:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" form:"role" validate:"omitempty,oneof=user admin"`
}

func (in *RegisterInput) displayName() string {
	if in.Username != "" {
		return strings.TrimSpace(in.Username)
	}
	return strings.TrimSpace(in.Name)
}

// AuthResult is what register and login return to clients.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users       store.UserStore
	tokens      *TokenManager
	cache       cache.Cache
	now         func() time.Time
	compareHash func(hash, password []byte) error
}

func NewAuthService(users store.UserStore, tokens *TokenManager, c cache.Cache) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		cache:       c,
		now:         time.Now,
		compareHash: bcrypt.CompareHashAndPassword,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// unknownUserHash is compared against when the email is not registered so
// that both login failures cost one bcrypt comparison.
func unknownUserHash() []byte {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			logger.Errorf("generate placeholder password hash: %v", err)
			return
		}
		dummyHash = h
	})
	return dummyHash
}

// Register creates a customer account and signs it in. The role in the
// input is ignored; only admins can hand out roles.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Role = models.RoleUser
	u, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.signIn(u)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	name := in.displayName()
	if name == "" {
		return nil, invalidf("username is required")
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("email %s: %w", u.Email, store.ErrConflict)
		}
		return nil, err
	}
	logger.Infow("user created", "user", u.ID, "role", u.Role)
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		_ = s.compareHash(unknownUserHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.compareHash([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(u)
}

func (s *AuthService) signIn(u *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

// Authenticate verifies a bearer token and rejects revoked ones. The role
// comes from the stored account, so demotions and deletions take effect
// before the token expires.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	_, err = s.cache.Get(ctx, revokedTokenPrefix+claims.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	case !errors.Is(err, cache.ErrMiss):
		return nil, fmt.Errorf("check token revocation: %w", err)
	}

	u, err := s.users.GetUser(ctx, claims.UserID())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("load token subject: %w", err)
	}
	claims.Role = u.Role
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedTokenPrefix+claims.ID, []byte("1"), ttl)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUser(ctx, userID)
}

// EnsureAdmin seeds an admin account when none exists with that email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			logger.Warnf("ADMIN_EMAIL %s belongs to a non-admin account", email)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err = s.createUser(ctx, RegisterInput{
		Username: "admin",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	return err
}
