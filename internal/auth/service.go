// Package auth issues and validates session tokens and manages account credentials.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hirewire/backend/internal/email"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username may only contain letters, numbers, dots and underscores")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrTooManyAttempts    = errors.New("too many attempts, request a new code")
	ErrAlreadyVerified    = errors.New("email already verified")
)

const (
	MinPasswordLength = 8
	CodeLength        = 6
	CodeTTL           = 15 * time.Minute
	MaxCodeAttempts   = 5
	issuer            = "hirewire"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

// Claims are the JWT claims carried by session tokens
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Service handles all authentication operations
type Service struct {
	users    repository.UserRepository
	codes    repository.VerificationCodeRepository
	mailer   email.Sender
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates the authentication service
func NewService(users repository.UserRepository, codes repository.VerificationCodeRepository, mailer email.Sender, secret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		users:    users,
		codes:    codes,
		mailer:   mailer,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Register creates an account, mails a verification code and signs the user in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if _, err := s.users.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        emailAddr,
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.sendCode(ctx, user, models.CodePurposeVerifyEmail); err != nil {
		logger.WarnWithFields("Failed to send verification code", err, logger.WithUserID(user.ID))
	}
	return s.respond(user)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastActiveAt = &now
	if err := s.users.UpdateUserFields(ctx, user.ID, map[string]interface{}{"last_active_at": now}); err != nil {
		logger.WarnWithFields("Failed to update last_active_at", err, logger.WithUserID(user.ID))
	}
	return s.respond(user)
}

func (s *Service) respond(user *models.User) (*AuthResponse, error) {
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// IssueToken signs an HS256 session token for user.
func (s *Service) IssueToken(user *models.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates signature, expiry and issuer.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthenticateToken resolves a token to its (still existing) user.
func (s *Service) AuthenticateToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// ResendVerification mails a fresh verification code, replacing the previous one.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	return s.sendCode(ctx, user, models.CodePurposeVerifyEmail)
}

// VerifyEmail consumes a verification code.
func (s *Service) VerifyEmail(ctx context.Context, userID, code string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	if err := s.consumeCode(ctx, userID, models.CodePurposeVerifyEmail, code); err != nil {
		return err
	}
	return s.users.UpdateUserFields(ctx, userID, map[string]interface{}{"email_verified": true})
}

// RequestPasswordReset mails a reset code. Unknown addresses succeed silently so
// the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.sendCode(ctx, user, models.CodePurposeResetPassword)
}

// ResetPassword sets a new password using a mailed reset code.
func (s *Service) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.users.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if err := s.consumeCode(ctx, user.ID, models.CodePurposeResetPassword, code); err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdateUserFields(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

func (s *Service) sendCode(ctx context.Context, user *models.User, purpose models.CodePurpose) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}
	record := &models.VerificationCode{
		UserID:    user.ID,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().UTC().Add(CodeTTL),
	}
	if err := s.codes.ReplaceCode(ctx, record); err != nil {
		return err
	}

	if purpose == models.CodePurposeResetPassword {
		return s.mailer.SendPasswordResetCode(ctx, user.Email, user.Name, code)
	}
	return s.mailer.SendVerificationCode(ctx, user.Email, user.Name, code)
}

func (s *Service) consumeCode(ctx context.Context, userID string, purpose models.CodePurpose, code string) error {
	record, err := s.codes.GetActiveCode(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if record.Attempts >= MaxCodeAttempts {
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		if err := s.codes.IncrementAttempts(ctx, record.ID); err != nil {
			logger.WarnWithFields("Failed to count code attempt", err, logger.WithUserID(userID))
		}
		return ErrInvalidCode
	}
	return s.codes.MarkUsed(ctx, record.ID)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
