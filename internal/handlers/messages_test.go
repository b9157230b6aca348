package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/messaging"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/websocket"
)

func (suite *HandlersTestSuite) sendMessage(from, to testUser, content string) models.Message {
	w := suite.request(http.MethodPost, "/api/v1/messages", from.token, gin.H{
		"recipient_id": to.ID,
		"content":      content,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Message models.Message `json:"message"`
	}
	suite.decode(w, &resp)
	return resp.Message
}

func (suite *HandlersTestSuite) unreadMessages(u testUser) int64 {
	w := suite.request(http.MethodGet, "/api/v1/messages/unread-count", u.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		UnreadCount int64 `json:"unread_count"`
	}
	suite.decode(w, &resp)
	return resp.UnreadCount
}

func (suite *HandlersTestSuite) TestSendMessageValidation() {
	alice := suite.newUser("alice")

	w := suite.request(http.MethodPost, "/api/v1/messages", alice.token, gin.H{"content": "no recipient"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/messages", alice.token, gin.H{"recipient_id": alice.ID, "content": "me"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/messages", alice.token, gin.H{"recipient_id": "ghost", "content": "hi"})
	suite.Equal(http.StatusNotFound, w.Code)

	bob := suite.newUser("bob")
	w = suite.request(http.MethodPost, "/api/v1/messages", alice.token, gin.H{"recipient_id": bob.ID, "content": "   "})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/messages", alice.token, gin.H{
		"recipient_id": bob.ID,
		"content":      strings.Repeat("x", messaging.MaxContentLength+1),
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Zero(suite.emitter.count(bob.ID, websocket.EventNewMessage))
}

func (suite *HandlersTestSuite) TestSendMessagePushesToRecipientRoom() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")

	msg := suite.sendMessage(alice, bob, "hello bob")
	suite.Equal(alice.ID, msg.SenderID)
	suite.False(msg.Read)
	suite.Equal(1, suite.emitter.count(bob.ID, websocket.EventNewMessage))
	suite.Equal(1, suite.emitter.count(alice.ID, websocket.EventNewMessage))
}

func (suite *HandlersTestSuite) TestThreadIsAscendingAndComplete() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")

	var sent []string
	for i, from := range []testUser{alice, bob, alice, bob} {
		to := bob
		if from.ID == bob.ID {
			to = alice
		}
		sent = append(sent, suite.sendMessage(from, to, strings.Repeat("m", i+1)).ID)
		time.Sleep(2 * time.Millisecond)
	}
	suite.sendMessage(carol, alice, "unrelated")

	for _, viewer := range []testUser{alice, bob} {
		other := bob
		if viewer.ID == bob.ID {
			other = alice
		}
		w := suite.request(http.MethodGet, "/api/v1/messages/"+other.ID, viewer.token, nil)
		suite.Require().Equal(http.StatusOK, w.Code)
		var resp struct {
			Messages []models.Message `json:"messages"`
		}
		suite.decode(w, &resp)

		got := make([]string, len(resp.Messages))
		for i, m := range resp.Messages {
			got[i] = m.ID
			if i > 0 {
				suite.False(m.CreatedAt.Before(resp.Messages[i-1].CreatedAt))
			}
		}
		suite.Equal(sent, got)
	}

	w := suite.request(http.MethodGet, "/api/v1/messages/"+bob.ID+"?limit=2&offset=1", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Messages []models.Message `json:"messages"`
	}
	suite.decode(w, &page)
	suite.Require().Len(page.Messages, 2)
	suite.Equal(sent[1], page.Messages[0].ID)
	suite.Equal(sent[2], page.Messages[1].ID)

	w = suite.request(http.MethodGet, "/api/v1/messages/"+bob.ID+"?limit=-1", alice.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestUnreadCountAndMarkThreadRead() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")

	suite.sendMessage(bob, alice, "b1")
	suite.sendMessage(bob, alice, "b2")
	suite.sendMessage(carol, alice, "c1")
	suite.sendMessage(alice, bob, "a1")

	suite.Equal(int64(3), suite.unreadMessages(alice))
	suite.Equal(int64(1), suite.unreadMessages(bob))

	w := suite.request(http.MethodPut, "/api/v1/messages/"+bob.ID+"/read", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var marked struct {
		MarkedRead int64 `json:"marked_read"`
	}
	suite.decode(w, &marked)
	suite.Equal(int64(2), marked.MarkedRead)
	suite.Equal(1, suite.emitter.count(bob.ID, websocket.EventMessagesRead))

	suite.Equal(int64(1), suite.unreadMessages(alice), "carol's message is still unread")
	suite.Equal(int64(1), suite.unreadMessages(bob), "alice's message to bob is untouched")

	count, err := suite.repos.Messages.CountUnread(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(count, suite.unreadMessages(alice))
}

func (suite *HandlersTestSuite) TestConversationsOneRowPerPartner() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	carol := suite.newUser("carol")

	suite.sendMessage(bob, alice, "bob 1")
	time.Sleep(2 * time.Millisecond)
	suite.sendMessage(alice, bob, "alice to bob")
	time.Sleep(2 * time.Millisecond)
	suite.sendMessage(carol, alice, "carol 1")
	time.Sleep(2 * time.Millisecond)
	suite.sendMessage(carol, alice, "carol 2")

	w := suite.request(http.MethodGet, "/api/v1/messages/conversations", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Conversations []messaging.Conversation `json:"conversations"`
	}
	suite.decode(w, &resp)
	suite.Require().Len(resp.Conversations, 2)

	suite.Equal(carol.ID, resp.Conversations[0].PartnerID)
	suite.Equal("carol 2", resp.Conversations[0].LastMessage.Content)
	suite.Equal(int64(2), resp.Conversations[0].UnreadCount)
	suite.Require().NotNil(resp.Conversations[0].Partner)
	suite.Equal("carol", resp.Conversations[0].Partner.Username)

	suite.Equal(bob.ID, resp.Conversations[1].PartnerID)
	suite.Equal("alice to bob", resp.Conversations[1].LastMessage.Content)
	suite.Equal(int64(1), resp.Conversations[1].UnreadCount)
}

func (suite *HandlersTestSuite) TestDeleteMessageSenderOnly() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")
	msg := suite.sendMessage(alice, bob, "oops")

	w := suite.request(http.MethodDelete, "/api/v1/messages/"+msg.ID, bob.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, "/api/v1/messages/"+msg.ID, alice.token, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(1, suite.emitter.count(bob.ID, websocket.EventMessageDeleted))

	w = suite.request(http.MethodDelete, "/api/v1/messages/"+msg.ID, alice.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Zero(suite.unreadMessages(bob))
}

func (suite *HandlersTestSuite) TestSendMessageWithAttachment() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")

	w := suite.upload("/api/v1/messages", alice.token,
		map[string]string{"recipient_id": bob.ID}, "cv.pdf", []byte("%PDF-1.4"))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Message models.Message `json:"message"`
	}
	suite.decode(w, &resp)
	suite.Require().NotNil(resp.Message.AttachmentURL)
	suite.Contains(*resp.Message.AttachmentURL, "attachments/"+alice.ID)

	w = suite.upload("/api/v1/messages", alice.token,
		map[string]string{"recipient_id": bob.ID}, "run.exe", []byte("MZ"))
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}
