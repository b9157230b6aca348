package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/websocket"
)

func (suite *HandlersTestSuite) createPost(author testUser, content string) models.Post {
	w := suite.request(http.MethodPost, "/api/v1/posts", author.token, gin.H{"content": content})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Post models.Post `json:"post"`
	}
	suite.decode(w, &resp)
	return resp.Post
}

func (suite *HandlersTestSuite) like(u testUser, postID string) bool {
	w := suite.request(http.MethodPost, "/api/v1/posts/"+postID+"/like", u.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Liked bool `json:"liked"`
	}
	suite.decode(w, &resp)
	return resp.Liked
}

func (suite *HandlersTestSuite) comment(u testUser, postID, content string) models.Comment {
	w := suite.request(http.MethodPost, "/api/v1/posts/"+postID+"/comments", u.token, gin.H{"content": content})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	suite.decode(w, &resp)
	return resp.Comment
}

func (suite *HandlersTestSuite) feed(u testUser) []models.Post {
	w := suite.request(http.MethodGet, "/api/v1/posts/feed", u.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Posts []models.Post `json:"posts"`
	}
	suite.decode(w, &resp)
	return resp.Posts
}

func (suite *HandlersTestSuite) TestCreatePostValidation() {
	alice := suite.newUser("alice")
	w := suite.request(http.MethodPost, "/api/v1/posts", alice.token, gin.H{"content": "   "})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	w = suite.request(http.MethodPost, "/api/v1/posts", alice.token, gin.H{"content": "x", "image_url": "not a url"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestFeedShowsOwnAndConnectedPosts() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")
	suite.connect(alice, bob)

	suite.createPost(carol, "stranger post")
	time.Sleep(2 * time.Millisecond)
	own := suite.createPost(alice, "own post")
	time.Sleep(2 * time.Millisecond)
	friend := suite.createPost(bob, "friend post")

	posts := suite.feed(alice)
	suite.Require().Len(posts, 2)
	suite.Equal(friend.ID, posts[0].ID, "newest first")
	suite.Equal(own.ID, posts[1].ID)
}

func (suite *HandlersTestSuite) TestToggleLike() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	post := suite.createPost(alice, "like me")

	suite.True(suite.like(bob, post.ID))
	w := suite.request(http.MethodGet, "/api/v1/posts/"+post.ID, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Post models.Post `json:"post"`
	}
	suite.decode(w, &resp)
	suite.Equal(1, resp.Post.LikeCount)
	suite.True(resp.Post.IsLiked)

	suite.False(suite.like(bob, post.ID))
	stored, err := suite.repos.Posts.GetPost(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Zero(stored.LikeCount)

	list := suite.notificationsOf(alice.ID, 1)
	suite.Equal(models.NotificationLike, list[0].Type)
}

func (suite *HandlersTestSuite) TestLikeNotificationStoredBeforeResponse() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	post := suite.createPost(bob, "ship it")

	for i := 1; i <= 20; i++ {
		suite.Require().True(suite.like(alice, post.ID))
		count, err := suite.repos.Notifications.CountUnread(suite.ctx, bob.ID)
		suite.Require().NoError(err)
		suite.Require().EqualValues(i, count, "like %d", i)
		suite.Require().Equal(i, suite.emitter.count(bob.ID, websocket.EventNotification))
		suite.Require().False(suite.like(alice, post.ID))
	}
}

func (suite *HandlersTestSuite) TestUpdateAndDeletePostOwnerOnly() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	post := suite.createPost(alice, "draft")

	w := suite.request(http.MethodPut, "/api/v1/posts/"+post.ID, bob.token, gin.H{"content": "hijack"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/api/v1/posts/"+post.ID, alice.token, gin.H{"content": "final"})
	suite.Require().Equal(http.StatusOK, w.Code)
	stored, err := suite.repos.Posts.GetPost(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Equal("final", stored.Content)

	w = suite.request(http.MethodDelete, "/api/v1/posts/"+post.ID, bob.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, "/api/v1/posts/"+post.ID, alice.token, nil)
	suite.Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/v1/posts/"+post.ID, alice.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestComments() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")
	post := suite.createPost(alice, "thoughts?")

	first := suite.comment(bob, post.ID, "first")
	time.Sleep(2 * time.Millisecond)
	suite.comment(carol, post.ID, "second, cc @bob")

	w := suite.request(http.MethodGet, "/api/v1/posts/"+post.ID+"/comments", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	suite.decode(w, &resp)
	suite.Require().Len(resp.Comments, 2)
	suite.Equal(first.ID, resp.Comments[0].ID, "oldest first")

	mentions := suite.notificationsOf(bob.ID, 1)
	suite.Equal(models.NotificationMention, mentions[0].Type)
	suite.notificationsOf(alice.ID, 2)

	w = suite.request(http.MethodDelete, "/api/v1/comments/"+first.ID, carol.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, "/api/v1/comments/"+first.ID, alice.token, nil)
	suite.Equal(http.StatusOK, w.Code, "post author may moderate")

	stored, err := suite.repos.Posts.GetPost(suite.ctx, post.ID)
	suite.Require().NoError(err)
	suite.Equal(1, stored.CommentCount)
}

func (suite *HandlersTestSuite) TestSharePointsAtOriginal() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")
	original := suite.createPost(alice, "original")

	w := suite.request(http.MethodPost, "/api/v1/posts/"+original.ID+"/share", bob.token, gin.H{"content": "worth reading"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var share struct {
		Post models.Post `json:"post"`
	}
	suite.decode(w, &share)
	suite.Require().NotNil(share.Post.SharedPostID)
	suite.Equal(original.ID, *share.Post.SharedPostID)

	w = suite.request(http.MethodPost, "/api/v1/posts/"+share.Post.ID+"/share", carol.token, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)
	var reshare struct {
		Post models.Post `json:"post"`
	}
	suite.decode(w, &reshare)
	suite.Equal(original.ID, *reshare.Post.SharedPostID)

	stored, err := suite.repos.Posts.GetPost(suite.ctx, original.ID)
	suite.Require().NoError(err)
	suite.Equal(2, stored.ShareCount)

	list := suite.notificationsOf(alice.ID, 2)
	for _, n := range list {
		suite.Equal(models.NotificationShare, n.Type)
	}
}
