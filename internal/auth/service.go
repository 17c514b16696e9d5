package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/models"
	"krishi-backend/internal/store"
	"krishi-backend/internal/validation"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/bcrypt"
)

const profileCacheSize = 1024

var (
	fieldUsername = store.Field{Column: "username", Path: "username"}
	fieldEmail    = store.Field{Column: "email", Path: "email"}

	errInvalidCredentials = apperr.Authentication("Invalid credentials")
)

type RegisterInput struct {
	FullName string `json:"fullname" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,numeric,len=10"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service verifies credentials and issues tokens. Profiles served by Me are
// kept in an LRU; users are never modified after registration.
type Service struct {
	users    store.Repository[models.User]
	secret   string
	ttl      time.Duration
	cost     int
	profiles *lru.Cache
}

func NewService(users store.Repository[models.User], secret string, ttl time.Duration) *Service {
	profiles, _ := lru.New(profileCacheSize)
	return &Service{
		users:    users,
		secret:   secret,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		profiles: profiles,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	taken, err := s.users.Count(ctx, store.Query{AnyOf: []store.Cond{
		store.Eq(fieldUsername, in.Username),
		store.Eq(fieldEmail, in.Email),
	}})
	if err != nil {
		return nil, apperr.Unexpected("Failed to register user", err)
	}
	if taken > 0 {
		return nil, apperr.Conflict("Email or username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Unexpected("Failed to hash password", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Email or username already exists")
		}
		return nil, apperr.Unexpected("Failed to register user", err)
	}

	return s.session(user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	found, err := s.users.Find(ctx, store.Query{
		Where: []store.Cond{store.Eq(fieldUsername, in.Username)},
		Limit: 1,
	})
	if err != nil {
		return nil, apperr.Unexpected("Failed to log in", err)
	}
	if len(found) == 0 {
		return nil, errInvalidCredentials
	}
	user := &found[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.session(user)
}

// Me returns the profile of the authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperr.Authentication("Authentication required")
	}
	if cached, ok := s.profiles.Get(userID); ok {
		return cached.(*models.User), nil
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Unexpected("Failed to load user", err)
	}
	s.profiles.Add(userID, user)
	return user, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := GenerateToken(s.secret, s.ttl, user)
	if err != nil {
		return nil, apperr.Unexpected("Failed to issue token", err)
	}
	return &Session{Token: token, User: user}, nil
}
