// Package auth is the sign-in service for the Golf Scorekeeper API.
// It owns the auth_accounts table (email + bcrypt password hash), issues signed
// bearer tokens, and resolves tokens back to the account they were issued for.
//
// Profiles (name, handicap, role) are NOT stored here; they live in the users
// table and are linked to an account through users.auth_user_id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	// jwt builds and verifies the signed bearer tokens (HS256).
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	// bcrypt stores passwords as slow, salted hashes; plaintext never touches the DB.
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/models"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

var (
	ErrEmailTaken         = errors.New("User already registered")
	ErrWeakPassword       = fmt.Errorf("Password should be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("Invalid email address")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrInvalidToken       = errors.New("Invalid or expired token")
)

// Claims is the payload of every token we issue.
// Subject carries the auth account ID; Email is a convenience copy for the
// lazy profile creation in the Auth middleware.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Session is what sign-in and sign-up hand back to the client.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
}

// Identity is what a valid token resolves to.
type Identity struct {
	AuthUserID uuid.UUID
	Email      string
}

// Service signs people up, signs them in, and verifies their tokens.
type Service struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an auth Service backed by db that signs tokens with secret.
func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	return &Service{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithTx returns a copy of the service that runs its queries on tx, so a
// sign-up can share a transaction with the profile insert.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	cp := *s
	cp.db = tx
	return &cp
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a new account for email/password.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.AuthAccount, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AuthAccount{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// A concurrent sign-up can still win the race past the count above; the
	// unique index on email settles it.
	account := &models.AuthAccount{Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// ChangeEmail moves the account authUserID signs in with to email.
func (s *Service) ChangeEmail(ctx context.Context, authUserID uuid.UUID, email string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	err := s.db.WithContext(ctx).Model(&models.AuthAccount{}).
		Where("id = ?", authUserID).
		Update("email", email).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to change email: %w", err)
	}
	return nil
}

func validEmail(email string) bool {
	return strings.Contains(email, "@") && !strings.HasPrefix(email, "@") && !strings.HasSuffix(email, "@")
}

// SignIn checks email/password and returns the matching account.
// Unknown emails and wrong passwords produce the same error so the response
// does not reveal which accounts exist.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.AuthAccount, error) {
	var account models.AuthAccount
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &account, nil
}

// IssueToken signs a bearer token for account.
func (s *Service) IssueToken(account *models.AuthAccount) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: account.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Session{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.ttl / time.Second),
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// ResolveToken verifies the token's signature and expiry and returns who it was
// issued for. Tokens signed with any algorithm other than HS256 are rejected.
func (s *Service) ResolveToken(tokenStr string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{AuthUserID: id, Email: claims.Email}, nil
}

// DeleteAccount removes the sign-in identity for authUserID.
func (s *Service) DeleteAccount(ctx context.Context, authUserID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.AuthAccount{}, "id = ?", authUserID).Error
}
