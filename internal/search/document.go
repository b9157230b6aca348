package search

import (
	"time"

	"github.com/hirewire/backend/internal/models"
)

// UserDoc is the indexed form of a profile
type UserDoc struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	Headline        string    `json:"headline"`
	Location        string    `json:"location"`
	Company         string    `json:"company"`
	Skills          []string  `json:"skills,omitempty"`
	ConnectionCount int       `json:"connection_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// PostDoc is the indexed form of a post
type PostDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// JobDoc is the indexed form of a job posting
type JobDoc struct {
	ID             string    `json:"id"`
	PosterID       string    `json:"poster_id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Remote         bool      `json:"remote"`
	EmploymentType string    `json:"employment_type"`
	Description    string    `json:"description"`
	Skills         []string  `json:"skills,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func UserToDoc(u *models.User) UserDoc {
	return UserDoc{
		ID:              u.ID,
		Username:        u.Username,
		Name:            u.Name,
		Headline:        u.Headline,
		Location:        u.Location,
		Company:         u.Company,
		Skills:          u.Skills,
		ConnectionCount: u.ConnectionCount,
		CreatedAt:       u.CreatedAt,
	}
}

func PostToDoc(p *models.Post) PostDoc {
	return PostDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		Content:   p.Content,
		LikeCount: p.LikeCount,
		CreatedAt: p.CreatedAt,
	}
}

func JobToDoc(j *models.Job) JobDoc {
	return JobDoc{
		ID:             j.ID,
		PosterID:       j.PosterID,
		Title:          j.Title,
		Company:        j.Company,
		Location:       j.Location,
		Remote:         j.Remote,
		EmploymentType: string(j.EmploymentType),
		Description:    j.Description,
		Skills:         j.Skills,
		Status:         string(j.Status),
		CreatedAt:      j.CreatedAt,
	}
}

func text() map[string]interface{} {
	return map[string]interface{}{"type": "text", "analyzer": "standard"}
}

func keyword() map[string]interface{} {
	return map[string]interface{}{"type": "keyword"}
}

func date() map[string]interface{} {
	return map[string]interface{}{"type": "date"}
}

var mappings = map[string]map[string]interface{}{
	IndexUsers: {
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": keyword(),
				"username": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"keyword": keyword()},
				},
				"name":             text(),
				"headline":         text(),
				"location":         text(),
				"company":          text(),
				"skills":           text(),
				"connection_count": map[string]interface{}{"type": "integer"},
				"created_at":       date(),
			},
		},
	},
	IndexPosts: {
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":         keyword(),
				"user_id":    keyword(),
				"content":    text(),
				"like_count": map[string]interface{}{"type": "integer"},
				"created_at": date(),
			},
		},
	},
	IndexJobs: {
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":              keyword(),
				"poster_id":       keyword(),
				"title":           text(),
				"company":         text(),
				"location":        text(),
				"remote":          map[string]interface{}{"type": "boolean"},
				"employment_type": keyword(),
				"description":     text(),
				"skills":          text(),
				"status":          keyword(),
				"created_at":      date(),
			},
		},
	},
}

func multiMatch(query string, fields ...string) map[string]interface{} {
	return map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    fields,
			"fuzziness": "AUTO",
		},
	}
}

var queries = map[string]func(string) map[string]interface{}{
	IndexUsers: func(q string) map[string]interface{} {
		return multiMatch(q, "username^3", "name^2", "headline", "skills", "company")
	},
	IndexPosts: func(q string) map[string]interface{} {
		return multiMatch(q, "content")
	},
	IndexJobs: func(q string) map[string]interface{} {
		return multiMatch(q, "title^3", "company^2", "skills^2", "description", "location")
	},
}
