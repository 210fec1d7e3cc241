package app

import (
	"context"
	"strings"
	"time"

	"quiz-backend/internal/domain"
)

// UserRepository persists accounts. CreateUser must return domain.ErrUsernameTaken
// when the username already exists.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByUsername(ctx context.Context, username string) (domain.User, error)
}

// PasswordHasher is a one-way hash with verification. Compare returns
// domain.ErrInvalidPassword on mismatch.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, domain.TokenClaims, error)
	Parse(token string) (domain.TokenClaims, error)
}

// TokenBlacklist remembers revoked token ids until they would have expired anyway.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AccountService handles registration, login and bearer token lifecycle.
type AccountService struct {
	users     UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	blacklist TokenBlacklist
}

func NewAccountService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, blacklist TokenBlacklist) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens, blacklist: blacklist}
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a user with a hashed password.
func (s *AccountService) Register(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateStruct(credentials{Username: username, Password: password}); err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{Username: username, PasswordHash: hash}
	// Uniqueness is enforced by the repository, not by a prior lookup.
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	user, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.Session{}, err
	}

	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{UserID: user.ID, Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

// Authenticate resolves a bearer token to its user id.
func (s *AccountService) Authenticate(ctx context.Context, token string) (int64, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, err
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return 0, err
	}
	if revoked {
		return 0, domain.ErrInvalidToken
	}
	return claims.UserID, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.TokenID, ttl)
}
