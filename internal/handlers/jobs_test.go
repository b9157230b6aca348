package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/search"
)

func (suite *HandlersTestSuite) postJob(poster testUser, title string, overrides gin.H) models.Job {
	body := gin.H{
		"title":           title,
		"company":         "Initech",
		"location":        "Berlin",
		"employment_type": "full_time",
		"description":     "Build and run services in Go.",
		"skills":          []string{"Go", "PostgreSQL"},
	}
	for k, v := range overrides {
		body[k] = v
	}
	w := suite.request(http.MethodPost, "/api/v1/jobs", poster.token, body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Job models.Job `json:"job"`
	}
	suite.decode(w, &resp)
	return resp.Job
}

func (suite *HandlersTestSuite) listJobs(u testUser, query string) []models.Job {
	w := suite.request(http.MethodGet, "/api/v1/jobs"+query, u.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Jobs []models.Job `json:"jobs"`
	}
	suite.decode(w, &resp)
	return resp.Jobs
}

func (suite *HandlersTestSuite) TestJobValidation() {
	recruiter := suite.newUser("recruiter")
	w := suite.request(http.MethodPost, "/api/v1/jobs", recruiter.token, gin.H{
		"title": "Engineer", "company": "Initech", "employment_type": "gig", "description": "x",
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/jobs", recruiter.token, gin.H{
		"title": "Engineer", "company": "Initech", "employment_type": "contract", "description": "x",
		"salary_min": 100, "salary_max": 50,
	})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/jobs", recruiter.token, gin.H{"title": "Engineer"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestListJobsFilters() {
	recruiter := suite.newUser("recruiter")
	seeker := suite.newUser("seeker")

	backend := suite.postJob(recruiter, "Backend Engineer", nil)
	suite.postJob(recruiter, "Designer", gin.H{"employment_type": "contract", "location": "Lisbon", "skills": []string{"Figma"}})
	closed := suite.postJob(recruiter, "Old Role", gin.H{"status": "closed"})
	remote := suite.postJob(recruiter, "Remote SRE", gin.H{"remote": true, "location": ""})

	suite.Len(suite.listJobs(seeker, ""), 3, "closed postings are hidden by default")
	suite.Len(suite.listJobs(seeker, "?status=all"), 4)

	byQuery := suite.listJobs(seeker, "?q=postgres")
	suite.Require().Len(byQuery, 2)

	byType := suite.listJobs(seeker, "?employment_type=contract")
	suite.Require().Len(byType, 1)
	suite.Equal("Designer", byType[0].Title)

	byLocation := suite.listJobs(seeker, "?location=berl")
	suite.Require().Len(byLocation, 1)
	suite.Equal(backend.ID, byLocation[0].ID)

	onlyRemote := suite.listJobs(seeker, "?remote=true")
	suite.Require().Len(onlyRemote, 1)
	suite.Equal(remote.ID, onlyRemote[0].ID)

	onlyClosed := suite.listJobs(seeker, "?status=closed")
	suite.Require().Len(onlyClosed, 1)
	suite.Equal(closed.ID, onlyClosed[0].ID)

	w := suite.request(http.MethodGet, "/api/v1/jobs?status=archived", seeker.token, nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/jobs/mine", recruiter.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var mine struct {
		Jobs []models.Job `json:"jobs"`
	}
	suite.decode(w, &mine)
	suite.Len(mine.Jobs, 4)
}

func (suite *HandlersTestSuite) TestJobPosterOnlyActions() {
	recruiter := suite.newUser("recruiter")
	other := suite.newUser("other")
	job := suite.postJob(recruiter, "Platform Engineer", nil)

	update := gin.H{
		"title": "Senior Platform Engineer", "company": "Initech",
		"employment_type": "full_time", "description": "Updated.",
	}
	w := suite.request(http.MethodPut, "/api/v1/jobs/"+job.ID, other.token, update)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodGet, "/api/v1/jobs/"+job.ID+"/applications", other.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, "/api/v1/jobs/"+job.ID, other.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/api/v1/jobs/"+job.ID, recruiter.token, update)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	stored, err := suite.repos.Jobs.GetJob(suite.ctx, job.ID)
	suite.Require().NoError(err)
	suite.Equal("Senior Platform Engineer", stored.Title)
	suite.Equal(models.JobOpen, stored.Status)

	w = suite.request(http.MethodDelete, "/api/v1/jobs/"+job.ID, recruiter.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/v1/jobs/"+job.ID, recruiter.token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestApplicationFlow() {
	recruiter := suite.newUser("recruiter")
	seeker := suite.newUser("seeker")
	job := suite.postJob(recruiter, "Go Developer", nil)

	w := suite.request(http.MethodPost, "/api/v1/jobs/"+job.ID+"/apply", recruiter.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code, "posters cannot apply to their own job")

	w = suite.request(http.MethodPost, "/api/v1/jobs/"+job.ID+"/apply", seeker.token, gin.H{"cover_letter": "I love Go."})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		Application models.Application `json:"application"`
	}
	suite.decode(w, &applied)
	suite.Equal(models.ApplicationSubmitted, applied.Application.Status)

	w = suite.request(http.MethodPost, "/api/v1/jobs/"+job.ID+"/apply", seeker.token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	posterNotes := suite.notificationsOf(recruiter.ID, 1)
	suite.Equal(models.NotificationApplication, posterNotes[0].Type)

	stored, err := suite.repos.Jobs.GetJob(suite.ctx, job.ID)
	suite.Require().NoError(err)
	suite.Equal(1, stored.ApplicationCount)

	w = suite.request(http.MethodGet, "/api/v1/jobs/"+job.ID, seeker.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), applied.Application.ID)

	w = suite.request(http.MethodGet, "/api/v1/jobs/"+job.ID+"/applications", recruiter.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "I love Go.")

	statusPath := "/api/v1/applications/" + applied.Application.ID + "/status"
	w = suite.request(http.MethodPut, statusPath, seeker.token, gin.H{"status": "offered"})
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodPut, statusPath, recruiter.token, gin.H{"status": "withdrawn"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	w = suite.request(http.MethodPut, statusPath, recruiter.token, gin.H{"status": "interview"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	seekerNotes := suite.notificationsOf(seeker.ID, 1)
	suite.Equal(models.NotificationApplicationStatus, seekerNotes[0].Type)
	suite.Contains(seekerNotes[0].Message, "interview")

	w = suite.request(http.MethodGet, "/api/v1/applications/mine", seeker.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"status":"interview"`)

	w = suite.request(http.MethodDelete, "/api/v1/applications/"+applied.Application.ID, recruiter.token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.request(http.MethodDelete, "/api/v1/applications/"+applied.Application.ID, seeker.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodDelete, "/api/v1/applications/"+applied.Application.ID, seeker.token, nil)
	suite.Equal(http.StatusConflict, w.Code)
	w = suite.request(http.MethodPut, statusPath, recruiter.token, gin.H{"status": "offered"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestClosedJobRejectsApplications() {
	recruiter := suite.newUser("recruiter")
	seeker := suite.newUser("seeker")
	job := suite.postJob(recruiter, "Filled", gin.H{"status": "closed"})

	w := suite.request(http.MethodPost, "/api/v1/jobs/"+job.ID+"/apply", seeker.token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestSearchFallsBackToDatabase() {
	alice := suite.newUser("alice")
	recruiter := suite.newUser("recruiter")
	suite.postJob(recruiter, "Kubernetes Operator", nil)
	suite.createPost(alice, "Shipping a Kubernetes controller today")

	w := suite.request(http.MethodGet, "/api/v1/search?q=kubernetes&type=jobs", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Results search.Results `json:"results"`
	}
	suite.decode(w, &resp)
	suite.Equal("database", resp.Results.Backend)
	suite.Require().Len(resp.Results.Jobs, 1)

	w = suite.request(http.MethodGet, "/api/v1/search?q=kubernetes&type=posts", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &resp)
	suite.Len(resp.Results.Posts, 1)

	w = suite.request(http.MethodGet, "/api/v1/search?q=recruit", alice.token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), recruiter.ID)
	suite.NotContains(w.Body.String(), "recruiter@example.com")

	w = suite.request(http.MethodGet, "/api/v1/search?q=x&type=companies", alice.token, nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	w = suite.request(http.MethodGet, "/api/v1/search", alice.token, nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}
