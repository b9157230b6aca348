package handlers

import (
	"net/http"

	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/websocket"
)

func (suite *HandlersTestSuite) listNotifications(u testUser, query string) ([]models.Notification, int64) {
	w := suite.request(http.MethodGet, "/api/v1/notifications"+query, u.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unread_count"`
	}
	suite.decode(w, &resp)
	return resp.Notifications, resp.UnreadCount
}

func (suite *HandlersTestSuite) TestNotificationLifecycle() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	post := suite.createPost(alice, "hiring Go engineers")

	suite.like(bob, post.ID)
	suite.comment(bob, post.ID, "interested!")
	suite.notificationsOf(alice.ID, 2)
	suite.Equal(2, suite.emitter.count(alice.ID, websocket.EventNotification))

	list, unread := suite.listNotifications(alice, "")
	suite.Require().Len(list, 2)
	suite.Equal(int64(2), unread)
	suite.Equal(bob.ID, *list[0].SenderID)
	suite.False(list[0].CreatedAt.Before(list[1].CreatedAt), "newest first")

	w := suite.request(http.MethodPut, "/api/v1/notifications/"+list[0].ID+"/read", bob.token, nil)
	suite.Equal(http.StatusNotFound, w.Code, "cannot touch someone else's notification")

	w = suite.request(http.MethodPut, "/api/v1/notifications/"+list[0].ID+"/read", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	onlyUnread, unread := suite.listNotifications(alice, "?unread=true")
	suite.Require().Len(onlyUnread, 1)
	suite.Equal(list[1].ID, onlyUnread[0].ID)
	suite.Equal(int64(1), unread)

	w = suite.request(http.MethodPut, "/api/v1/notifications/read-all", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/notifications/unread-count", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"unread_count":0}`, w.Body.String())

	w = suite.request(http.MethodDelete, "/api/v1/notifications/"+list[1].ID, alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	remaining, _ := suite.listNotifications(alice, "")
	suite.Len(remaining, 1)
}

func (suite *HandlersTestSuite) TestNoNotificationForOwnActions() {
	alice := suite.newUser("alice")
	post := suite.createPost(alice, "my own post")

	suite.like(alice, post.ID)
	suite.comment(alice, post.ID, "replying to myself")
	w := suite.request(http.MethodPost, "/api/v1/posts/"+post.ID+"/share", alice.token, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	suite.assertNoNotifications(alice.ID)
	suite.Zero(suite.emitter.count(alice.ID, websocket.EventNotification))
}

func (suite *HandlersTestSuite) TestEveryActionNotifiesWithoutDedup() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	post := suite.createPost(alice, "post")

	// like, unlike, like again: the second like notifies again
	suite.like(bob, post.ID)
	suite.like(bob, post.ID)
	suite.like(bob, post.ID)

	list := suite.notificationsOf(alice.ID, 2)
	for _, n := range list {
		suite.Equal(models.NotificationLike, n.Type)
		suite.Equal(post.ID, *n.RelatedID)
	}
}
