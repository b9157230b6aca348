package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
)

type profileResponse struct {
	User             models.User `json:"user"`
	IsOwnProfile     bool        `json:"is_own_profile"`
	ConnectionStatus string      `json:"connection_status"`
}

func (suite *HandlersTestSuite) profile(viewer testUser, idOrUsername string) profileResponse {
	w := suite.request(http.MethodGet, "/api/v1/users/"+idOrUsername, viewer.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp profileResponse
	suite.decode(w, &resp)
	return resp
}

func (suite *HandlersTestSuite) TestProfileViewRecordedOncePerWindow() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")

	own := suite.profile(alice, alice.ID)
	suite.True(own.IsOwnProfile)
	suite.Equal("alice@example.com", own.User.Email)

	other := suite.profile(bob, "alice")
	suite.False(other.IsOwnProfile)
	suite.Empty(other.User.Email)
	suite.Equal(connectionStatusNone, other.ConnectionStatus)
	suite.profile(bob, alice.ID)

	list := suite.notificationsOf(alice.ID, 1)
	suite.Equal(models.NotificationProfileView, list[0].Type)
	suite.Equal(bob.ID, *list[0].SenderID)

	w := suite.request(http.MethodGet, "/api/v1/users/me/profile-views", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var views struct {
		Views []struct {
			Viewer *models.PublicUser `json:"viewer"`
		} `json:"views"`
		Views7d int64 `json:"views_7d"`
	}
	suite.decode(w, &views)
	suite.Require().Len(views.Views, 1, "repeat views inside the window collapse")
	suite.Equal("bob", views.Views[0].Viewer.Username)
	suite.Equal(int64(1), views.Views7d)

	count, err := suite.repos.Notifications.CountUnread(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)
}

func (suite *HandlersTestSuite) TestUpdateProfile() {
	alice := suite.newUser("alice")

	w := suite.request(http.MethodPut, "/api/v1/users/me", alice.token, gin.H{
		"headline": "  Staff Engineer  ",
		"skills":   []string{"Go", "go", " Kubernetes ", ""},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	stored, err := suite.repos.Users.GetUser(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal("Staff Engineer", stored.Headline)
	suite.Equal([]string{"Go", "Kubernetes"}, stored.Skills)
	suite.Equal("Alice", stored.Name, "absent fields are untouched")

	w = suite.request(http.MethodPut, "/api/v1/users/me", alice.token, gin.H{"name": " "})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	w = suite.request(http.MethodPut, "/api/v1/users/me", alice.token, gin.H{"website": "nope"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestAvatarUploadReplacesOldFile() {
	alice := suite.newUser("alice")

	w := suite.upload("/api/v1/users/me/avatar", alice.token, nil, "me.png", []byte("png-1"))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var first struct {
		URL string `json:"url"`
	}
	suite.decode(w, &first)
	firstKey := suite.uploader.KeyFromURL(first.URL)
	suite.True(strings.HasPrefix(firstKey, "avatars/"+alice.ID))

	w = suite.upload("/api/v1/users/me/avatar", alice.token, nil, "me2.jpg", []byte("jpg-2"))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Eventually(func() bool { return !suite.uploader.has(firstKey) }, time.Second, 10*time.Millisecond)

	stored, err := suite.repos.Users.GetUser(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Contains(stored.ProfilePictureURL, "me2.jpg")

	w = suite.upload("/api/v1/users/me/resume", alice.token, nil, "cv.png", []byte("png"))
	suite.Equal(http.StatusUnprocessableEntity, w.Code, "resumes must be documents")
	w = suite.upload("/api/v1/users/me/cover", alice.token, nil, "", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *HandlersTestSuite) TestUploadWithoutStorageIsUnavailable() {
	alice := suite.newUser("alice")
	suite.handlers.uploader = nil
	w := suite.upload("/api/v1/users/me/avatar", alice.token, nil, "me.png", []byte("png"))
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteAccount() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	suite.sendMessage(alice, bob, "bye")
	suite.sendMessage(bob, alice, "see you")

	w := suite.request(http.MethodDelete, "/api/v1/users/me", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	_, err := suite.repos.Users.GetUser(suite.ctx, alice.ID)
	suite.ErrorIs(err, repository.ErrNotFound)
	suite.Zero(suite.unreadMessages(bob))

	w = suite.request(http.MethodGet, "/api/v1/auth/me", alice.token, nil)
	suite.Equal(http.StatusUnauthorized, w.Code, "tokens of a deleted account stop working")

	suite.emitter.mu.Lock()
	defer suite.emitter.mu.Unlock()
	suite.Contains(suite.emitter.disconnected, alice.ID)
}

func (suite *HandlersTestSuite) TestUserPostsAndConnections() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	suite.connect(alice, bob)
	suite.createPost(alice, "one")
	suite.createPost(alice, "two")

	w := suite.request(http.MethodGet, "/api/v1/users/alice/posts", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var posts struct {
		Posts []models.Post `json:"posts"`
	}
	suite.decode(w, &posts)
	suite.Len(posts.Posts, 2)

	w = suite.request(http.MethodGet, "/api/v1/users/"+bob.ID+"/connections", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), alice.ID)
	suite.NotContains(w.Body.String(), "alice@example.com")
}
