package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hirewire/backend/internal/database"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/util"
	"github.com/stretchr/testify/suite"
)

// captureMailer keeps the last code mailed to each address
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes["verify:"+to] = code
	return nil
}

func (m *captureMailer) SendPasswordResetCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes["reset:"+to] = code
	return nil
}

func (m *captureMailer) code(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[key]
}

type AuthServiceTestSuite struct {
	suite.Suite
	repos  *repository.Repositories
	mailer *captureMailer
	svc    *Service
	ctx    context.Context
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := database.Open("sqlite", ":memory:", database.Options{})
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(db))
	suite.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	suite.ctx = context.Background()
	suite.repos = repository.New(db)
	suite.mailer = &captureMailer{codes: map[string]string{}}
	suite.svc = NewService(suite.repos.Users, suite.repos.VerificationCode, suite.mailer, []byte("test-secret"), time.Hour)
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.svc.Register(suite.ctx, RegisterRequest{
		Email:    email,
		Username: username,
		Password: "password123",
		Name:     "Test " + username,
	})
	suite.Require().NoError(err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	resp := suite.register("Ada@Example.com", "ada")
	suite.NotEmpty(resp.Token)
	suite.Equal("ada@example.com", resp.User.Email)
	suite.False(resp.User.EmailVerified)
	suite.NotEqual("password123", resp.User.PasswordHash)
	suite.WithinDuration(time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)
	suite.Len(suite.mailer.code("verify:ada@example.com"), CodeLength)

	login, err := suite.svc.Login(suite.ctx, LoginRequest{Email: "ADA@example.com", Password: "password123"})
	suite.Require().NoError(err)
	suite.Equal(resp.User.ID, login.User.ID)
	suite.NotNil(login.User.LastActiveAt)

	_, err = suite.svc.Login(suite.ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	suite.ErrorIs(err, ErrInvalidCredentials)
	_, err = suite.svc.Login(suite.ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsDuplicatesAndBadInput() {
	suite.register("ada@example.com", "ada")

	_, err := suite.svc.Register(suite.ctx, RegisterRequest{Email: "ADA@example.com", Username: "other", Password: "password123", Name: "x"})
	suite.ErrorIs(err, ErrEmailTaken)

	_, err = suite.svc.Register(suite.ctx, RegisterRequest{Email: "new@example.com", Username: "ADA", Password: "password123", Name: "x"})
	suite.ErrorIs(err, ErrUsernameTaken)

	_, err = suite.svc.Register(suite.ctx, RegisterRequest{Email: "new@example.com", Username: "bad name", Password: "password123", Name: "x"})
	suite.ErrorIs(err, ErrInvalidUsername)

	_, err = suite.svc.Register(suite.ctx, RegisterRequest{Email: "new@example.com", Username: "newbie", Password: "short", Name: "x"})
	suite.ErrorIs(err, ErrWeakPassword)
}

func (suite *AuthServiceTestSuite) TestTokens() {
	resp := suite.register("ada@example.com", "ada")

	claims, err := suite.svc.ParseToken(resp.Token)
	suite.Require().NoError(err)
	suite.Equal(resp.User.ID, claims.UserID)
	suite.Equal(resp.User.ID, claims.Subject)

	user, err := suite.svc.AuthenticateToken(suite.ctx, resp.Token)
	suite.Require().NoError(err)
	suite.Equal("ada", user.Username)

	other := NewService(suite.repos.Users, suite.repos.VerificationCode, suite.mailer, []byte("another-secret"), time.Hour)
	_, err = other.ParseToken(resp.Token)
	suite.ErrorIs(err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: resp.User.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	suite.Require().NoError(err)
	_, err = suite.svc.ParseToken(signed)
	suite.ErrorIs(err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: resp.User.ID, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	suite.Require().NoError(err)
	_, err = suite.svc.ParseToken(unsigned)
	suite.ErrorIs(err, ErrInvalidToken)

	// deleted accounts can no longer authenticate
	suite.Require().NoError(suite.repos.Users.DeleteUser(suite.ctx, resp.User.ID))
	_, err = suite.svc.AuthenticateToken(suite.ctx, resp.Token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestVerifyEmail() {
	resp := suite.register("ada@example.com", "ada")
	userID := resp.User.ID

	suite.ErrorIs(suite.svc.VerifyEmail(suite.ctx, userID, "000000x"), ErrInvalidCode)

	// resend replaces the first code
	first := suite.mailer.code("verify:ada@example.com")
	suite.Require().NoError(suite.svc.ResendVerification(suite.ctx, userID))
	second := suite.mailer.code("verify:ada@example.com")
	if first != second {
		suite.ErrorIs(suite.svc.VerifyEmail(suite.ctx, userID, first), ErrInvalidCode)
	}

	suite.Require().NoError(suite.svc.VerifyEmail(suite.ctx, userID, second))
	user, err := suite.repos.Users.GetUser(suite.ctx, userID)
	suite.Require().NoError(err)
	suite.True(user.EmailVerified)

	suite.ErrorIs(suite.svc.VerifyEmail(suite.ctx, userID, second), ErrAlreadyVerified)
	suite.ErrorIs(suite.svc.ResendVerification(suite.ctx, userID), ErrAlreadyVerified)
}

func (suite *AuthServiceTestSuite) TestCodeAttemptsAreLimited() {
	resp := suite.register("ada@example.com", "ada")
	code := suite.mailer.code("verify:ada@example.com")

	for i := 0; i < MaxCodeAttempts; i++ {
		suite.ErrorIs(suite.svc.VerifyEmail(suite.ctx, resp.User.ID, "not-it"), ErrInvalidCode)
	}
	suite.ErrorIs(suite.svc.VerifyEmail(suite.ctx, resp.User.ID, code), ErrTooManyAttempts)
}

func (suite *AuthServiceTestSuite) TestPasswordReset() {
	suite.register("ada@example.com", "ada")

	suite.NoError(suite.svc.RequestPasswordReset(suite.ctx, "ghost@example.com"), "unknown addresses are not revealed")
	suite.Empty(suite.mailer.code("reset:ghost@example.com"))

	suite.Require().NoError(suite.svc.RequestPasswordReset(suite.ctx, "ada@example.com"))
	code := suite.mailer.code("reset:ada@example.com")
	suite.Require().Len(code, CodeLength)

	suite.ErrorIs(suite.svc.ResetPassword(suite.ctx, "ada@example.com", code, "short"), ErrWeakPassword)
	suite.Require().NoError(suite.svc.ResetPassword(suite.ctx, "ada@example.com", code, "new-password-1"))
	suite.ErrorIs(suite.svc.ResetPassword(suite.ctx, "ada@example.com", code, "new-password-2"), ErrInvalidCode, "codes are single use")

	_, err := suite.svc.Login(suite.ctx, LoginRequest{Email: "ada@example.com", Password: "new-password-1"})
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestChangePassword() {
	resp := suite.register("ada@example.com", "ada")

	suite.ErrorIs(suite.svc.ChangePassword(suite.ctx, resp.User.ID, "wrong", "new-password-1"), ErrInvalidCredentials)
	suite.Require().NoError(suite.svc.ChangePassword(suite.ctx, resp.User.ID, "password123", "new-password-1"))

	_, err := suite.svc.Login(suite.ctx, LoginRequest{Email: "ada@example.com", Password: "password123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestMiddleware() {
	gin.SetMode(gin.TestMode)
	resp := suite.register("ada@example.com", "ada")

	router := gin.New()
	router.GET("/me", suite.svc.Middleware(), func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "ctx_id": c.GetString(util.ContextUserID)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", resp.Token, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + resp.Token, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		suite.Equal(tc.status, w.Code, tc.name)
		if tc.status == http.StatusOK {
			suite.Contains(w.Body.String(), resp.User.ID)
		}
	}
}
