package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/market"
)

// ErrBadCredentials covers unknown users, wrong passwords and inactive
// accounts alike.
var ErrBadCredentials = errors.New("invalid username or password")

type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone,omitempty"`
	Role         market.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Registration struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Phone    string      `json:"phone"`
	Role     market.Role `json:"role"`
}

type Session struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type UserStore interface {
	// Insert returns market.ErrInvalidRequest when the username or email is taken.
	Insert(ctx context.Context, u *User) error
	// ByLogin matches username or email. Missing users are market.ErrNotFound.
	ByLogin(ctx context.Context, login string) (User, error)
}

type Service struct {
	users  UserStore
	hasher Hasher
	tokens *Tokens
	log    zerolog.Logger
}

func NewService(users UserStore, hasher Hasher, tokens *Tokens, log zerolog.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, log: log}
}

var selfRegistrable = map[market.Role]bool{
	market.RoleFarmer: true,
	market.RoleBuyer:  true,
	market.RoleGuest:  true,
}

func (s *Service) Register(ctx context.Context, in Registration) (User, error) {
	if in.Role == "" {
		in.Role = market.RoleBuyer
	}
	if err := validateRegistration(in); err != nil {
		return User{}, err
	}
	return s.create(ctx, in)
}

// SeedAdmin creates an admin account unless the username or email is
// already taken.
func (s *Service) SeedAdmin(ctx context.Context, username, email, password string) error {
	_, err := s.create(ctx, Registration{Username: username, Email: email, Password: password, Role: market.RoleAdmin})
	if errors.Is(err, market.ErrInvalidRequest) {
		return nil
	}
	return err
}

func (s *Service) create(ctx context.Context, in Registration) (User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.Insert(ctx, &u); err != nil {
		return User{}, err
	}
	s.log.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

// bcrypt refuses longer input.
const maxPasswordBytes = 72

func validateRegistration(in Registration) error {
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 50 {
		return fmt.Errorf("%w: username must be 3-50 characters", market.ErrInvalidRequest)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: email is not valid", market.ErrInvalidRequest)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", market.ErrInvalidRequest)
	}
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", market.ErrInvalidRequest, maxPasswordBytes)
	}
	if !selfRegistrable[in.Role] {
		return fmt.Errorf("%w: role %q cannot be registered", market.ErrInvalidRequest, in.Role)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	u, err := s.users.ByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, market.ErrNotFound) {
		return Session{}, ErrBadCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !u.IsActive || !s.hasher.Matches(u.PasswordHash, password) {
		return Session{}, ErrBadCredentials
	}
	tok, exp, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, TokenType: "bearer", ExpiresAt: exp, User: u}, nil
}

// Verify resolves a bearer token to the caller it was issued for.
func (s *Service) Verify(token string) (market.Caller, error) {
	return s.tokens.Verify(token)
}
