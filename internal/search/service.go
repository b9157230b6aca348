package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"go.uber.org/zap"
)

// ErrUnknownType is returned for a search type other than users, posts or jobs
var ErrUnknownType = errors.New("unknown search type")

const indexTimeout = 5 * time.Second

// Index is the full-text engine behind Service; *Client implements it
type Index interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
	DeleteDocument(ctx context.Context, index, id string) error
	Search(ctx context.Context, index, query string, limit, offset int) ([]string, error)
}

// Results holds whichever slice matches the requested type
type Results struct {
	Type    string        `json:"type"`
	Backend string        `json:"backend"`
	Users   []models.User `json:"users,omitempty"`
	Posts   []models.Post `json:"posts,omitempty"`
	Jobs    []models.Job  `json:"jobs,omitempty"`
	Count   int           `json:"count"`
}

// Service answers searches from the index when there is one, otherwise from the
// database, and keeps the index in step with writes.
type Service struct {
	index Index
	repos *repository.Repositories
	wg    sync.WaitGroup
}

// NewService builds a search service; index may be nil
func NewService(index Index, repos *repository.Repositories) *Service {
	return &Service{index: index, repos: repos}
}

// Enabled reports whether an index is configured
func (s *Service) Enabled() bool {
	return s.index != nil
}

// Search dispatches on searchType (users, posts or jobs).
func (s *Service) Search(ctx context.Context, searchType, query string, limit, offset int) (*Results, error) {
	res := &Results{Type: searchType}
	var err error
	switch searchType {
	case IndexUsers:
		res.Users, res.Backend, err = s.Users(ctx, query, limit, offset)
		res.Count = len(res.Users)
	case IndexPosts:
		res.Posts, res.Backend, err = s.Posts(ctx, query, limit, offset)
		res.Count = len(res.Posts)
	case IndexJobs:
		res.Jobs, res.Backend, err = s.Jobs(ctx, query, limit, offset)
		res.Count = len(res.Jobs)
	default:
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// indexedIDs asks the index first. ok is false when the caller should use the database.
func (s *Service) indexedIDs(ctx context.Context, index, query string, limit, offset int) ([]string, bool) {
	if s.index == nil {
		return nil, false
	}
	start := time.Now()
	ids, err := s.index.Search(ctx, index, query, limit, offset)
	metrics.RecordSearch(index, metrics.SearchBackendElasticsearch, len(ids), time.Since(start), err)
	if err != nil {
		logger.Log.Warn("Search index unavailable, falling back to database",
			zap.String("index", index),
			zap.Error(err),
		)
		return nil, false
	}
	return ids, true
}

func (s *Service) Users(ctx context.Context, query string, limit, offset int) ([]models.User, string, error) {
	if ids, ok := s.indexedIDs(ctx, IndexUsers, query, limit, offset); ok {
		users, err := s.repos.Users.GetUsers(ctx, ids)
		if err != nil {
			return nil, "", err
		}
		return inOrder(ids, users, func(u models.User) string { return u.ID }), metrics.SearchBackendElasticsearch, nil
	}
	start := time.Now()
	users, err := s.repos.Users.SearchUsers(ctx, query, limit, offset)
	metrics.RecordSearch(IndexUsers, metrics.SearchBackendDatabase, len(users), time.Since(start), err)
	return users, metrics.SearchBackendDatabase, err
}

func (s *Service) Posts(ctx context.Context, query string, limit, offset int) ([]models.Post, string, error) {
	if ids, ok := s.indexedIDs(ctx, IndexPosts, query, limit, offset); ok {
		posts, err := s.repos.Posts.GetPosts(ctx, ids)
		if err != nil {
			return nil, "", err
		}
		return inOrder(ids, posts, func(p models.Post) string { return p.ID }), metrics.SearchBackendElasticsearch, nil
	}
	start := time.Now()
	posts, err := s.repos.Posts.SearchPosts(ctx, query, limit, offset)
	metrics.RecordSearch(IndexPosts, metrics.SearchBackendDatabase, len(posts), time.Since(start), err)
	return posts, metrics.SearchBackendDatabase, err
}

func (s *Service) Jobs(ctx context.Context, query string, limit, offset int) ([]models.Job, string, error) {
	if ids, ok := s.indexedIDs(ctx, IndexJobs, query, limit, offset); ok {
		jobs, err := s.repos.Jobs.GetJobs(ctx, ids)
		if err != nil {
			return nil, "", err
		}
		return inOrder(ids, jobs, func(j models.Job) string { return j.ID }), metrics.SearchBackendElasticsearch, nil
	}
	start := time.Now()
	jobs, err := s.repos.Jobs.ListJobs(ctx, repository.JobFilter{Query: query}, limit, offset)
	metrics.RecordSearch(IndexJobs, metrics.SearchBackendDatabase, len(jobs), time.Since(start), err)
	return jobs, metrics.SearchBackendDatabase, err
}

// inOrder arranges rows in the rank order of ids, dropping ids the database no longer has
func inOrder[T any](ids []string, rows []T, id func(T) string) []T {
	byID := make(map[string]T, len(rows))
	for _, row := range rows {
		byID[id(row)] = row
	}
	out := make([]T, 0, len(rows))
	for _, key := range ids {
		if row, ok := byID[key]; ok {
			out = append(out, row)
		}
	}
	return out
}

func (s *Service) IndexUser(u *models.User) { s.async(IndexUsers, u.ID, UserToDoc(u)) }
func (s *Service) IndexPost(p *models.Post) { s.async(IndexPosts, p.ID, PostToDoc(p)) }
func (s *Service) IndexJob(j *models.Job)   { s.async(IndexJobs, j.ID, JobToDoc(j)) }

func (s *Service) RemoveUser(id string) { s.async(IndexUsers, id, nil) }
func (s *Service) RemovePost(id string) { s.async(IndexPosts, id, nil) }
func (s *Service) RemoveJob(id string)  { s.async(IndexJobs, id, nil) }

// async writes to the index in the background; a nil doc deletes. Failures are logged
// and picked up by the next reindex.
func (s *Service) async(index, id string, doc interface{}) {
	if s.index == nil || id == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()

		var err error
		if doc == nil {
			err = s.index.DeleteDocument(ctx, index, id)
		} else {
			err = s.index.IndexDocument(ctx, index, id, doc)
		}
		if err != nil {
			metrics.Get().ErrorsTotal.WithLabelValues("search_index").Inc()
			logger.Log.Warn("Failed to update search index",
				zap.String("index", index),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until pending index writes finish
func (s *Service) Wait() {
	s.wg.Wait()
}
