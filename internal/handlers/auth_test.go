package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/auth"
	"github.com/hirewire/backend/internal/models"
)

func (suite *HandlersTestSuite) TestRegisterAndLogin() {
	w := suite.request(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "Dana@Example.com",
		"username": "dana",
		"password": "long-enough-password",
		"name":     "Dana",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var registered auth.AuthResponse
	suite.decode(w, &registered)
	suite.NotEmpty(registered.Token)
	suite.Equal("dana@example.com", registered.User.Email)

	w = suite.request(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "dana@example.com",
		"username": "dana2",
		"password": "long-enough-password",
		"name":     "Dana",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(w.Body.String(), "email")

	w = suite.request(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "dana@example.com",
		"password": "wrong-password",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "dana@example.com",
		"password": "long-enough-password",
	})
	suite.Require().Equal(http.StatusOK, w.Code)
	var login auth.AuthResponse
	suite.decode(w, &login)

	w = suite.request(http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var me struct {
		User models.User `json:"user"`
	}
	suite.decode(w, &me)
	suite.Equal(registered.User.ID, me.User.ID)
}

func (suite *HandlersTestSuite) TestLogoutLeavesSocketRoom() {
	alice := suite.newUser("alice")
	w := suite.request(http.MethodPost, "/api/v1/auth/logout", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.emitter.mu.Lock()
	defer suite.emitter.mu.Unlock()
	suite.Equal([]string{alice.ID}, suite.emitter.disconnected)
}

func (suite *HandlersTestSuite) TestForgotPasswordDoesNotRevealAccounts() {
	suite.newUser("alice")
	known := suite.request(http.MethodPost, "/api/v1/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	unknown := suite.request(http.MethodPost, "/api/v1/auth/forgot-password", "", gin.H{"email": "ghost@example.com"})
	suite.Equal(http.StatusOK, known.Code)
	suite.Equal(known.Body.String(), unknown.Body.String())
}

func (suite *HandlersTestSuite) TestVerifyEmailValidatesCodeShape() {
	alice := suite.newUser("alice")
	w := suite.request(http.MethodPost, "/api/v1/auth/verify-email", alice.token, gin.H{"code": "12ab"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/auth/verify-email", alice.token, gin.H{"code": "000000"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(w.Body.String(), "code")
}

func (suite *HandlersTestSuite) TestChangePassword() {
	alice := suite.newUser("alice")
	w := suite.request(http.MethodPut, "/api/v1/auth/password", alice.token, gin.H{
		"current_password": "nope-nope-nope",
		"new_password":     "another-long-password",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(w.Body.String(), "current_password")

	w = suite.request(http.MethodPut, "/api/v1/auth/password", alice.token, gin.H{
		"current_password": "correct-horse-battery",
		"new_password":     "another-long-password",
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	_, err := suite.auth.Login(suite.ctx, auth.LoginRequest{Email: "alice@example.com", Password: "another-long-password"})
	suite.NoError(err)
}
