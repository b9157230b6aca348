package handlers

import (
	"net/http"

	"github.com/hirewire/backend/internal/models"
)

func (suite *HandlersTestSuite) connectionStatus(viewer testUser, otherID string) string {
	w := suite.request(http.MethodGet, "/api/v1/connections/status/"+otherID, viewer.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Status string `json:"status"`
	}
	suite.decode(w, &resp)
	return resp.Status
}

func (suite *HandlersTestSuite) TestConnectionRequestFlow() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")

	suite.Equal(connectionStatusNone, suite.connectionStatus(alice, bob.ID))

	w := suite.request(http.MethodPost, "/api/v1/connections/"+bob.ID, alice.token, map[string]string{"note": "met at GopherCon"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Connection models.Connection `json:"connection"`
	}
	suite.decode(w, &created)
	suite.Equal(models.ConnectionPending, created.Connection.Status)

	w = suite.request(http.MethodPost, "/api/v1/connections/"+bob.ID, alice.token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	suite.Equal(connectionStatusSent, suite.connectionStatus(alice, bob.ID))
	suite.Equal(connectionStatusReceived, suite.connectionStatus(bob, alice.ID))

	requests := suite.notificationsOf(bob.ID, 1)
	suite.Equal(models.NotificationConnectionRequest, requests[0].Type)

	w = suite.request(http.MethodGet, "/api/v1/connections/requests", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), created.Connection.ID)
	w = suite.request(http.MethodGet, "/api/v1/connections/sent", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), created.Connection.ID)

	w = suite.request(http.MethodPost, "/api/v1/connections/requests/"+created.Connection.ID+"/accept", alice.token, nil)
	suite.Equal(http.StatusForbidden, w.Code, "only the addressee answers")

	w = suite.request(http.MethodPost, "/api/v1/connections/requests/"+created.Connection.ID+"/accept", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(connectionStatusAccepted, suite.connectionStatus(alice, bob.ID))

	accepted := suite.notificationsOf(alice.ID, 1)
	suite.Equal(models.NotificationConnectionAccepted, accepted[0].Type)

	stored, err := suite.repos.Users.GetUser(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal(1, stored.ConnectionCount)

	w = suite.request(http.MethodGet, "/api/v1/connections", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Connections []connectionCard `json:"connections"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Connections, 1)
	suite.Equal(bob.ID, list.Connections[0].User.ID)

	w = suite.request(http.MethodDelete, "/api/v1/connections/"+alice.ID, bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(connectionStatusNone, suite.connectionStatus(alice, bob.ID))
	stored, err = suite.repos.Users.GetUser(suite.ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Zero(stored.ConnectionCount)
}

func (suite *HandlersTestSuite) TestRejectedRequestCanBeSentAgain() {
	alice := suite.newUser("alice")
	bob := suite.newUser("bob")

	w := suite.request(http.MethodPost, "/api/v1/connections/"+bob.ID, alice.token, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)
	var created struct {
		Connection models.Connection `json:"connection"`
	}
	suite.decode(w, &created)

	w = suite.request(http.MethodPost, "/api/v1/connections/requests/"+created.Connection.ID+"/reject", bob.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodPost, "/api/v1/connections/requests/"+created.Connection.ID+"/accept", bob.token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	suite.Equal(connectionStatusNone, suite.connectionStatus(alice, bob.ID))

	w = suite.request(http.MethodPost, "/api/v1/connections/"+bob.ID, alice.token, nil)
	suite.Equal(http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) TestCannotConnectWithSelfOrGhost() {
	alice := suite.newUser("alice")
	w := suite.request(http.MethodPost, "/api/v1/connections/"+alice.ID, alice.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	w = suite.request(http.MethodPost, "/api/v1/connections/ghost", alice.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}
