package search

import (
	"context"
	"time"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/repository"
	"go.uber.org/zap"
)

const reindexBatch = 100

// ReindexCounts reports how many documents each index received
type ReindexCounts struct {
	Users int
	Posts int
	Jobs  int
}

// Reindex rewrites every user, post and job into the index. Used after mapping changes
// and periodically to catch writes whose async indexing failed.
func (s *Service) Reindex(ctx context.Context) (ReindexCounts, error) {
	var counts ReindexCounts
	if s.index == nil {
		return counts, nil
	}

	for offset := 0; ; offset += reindexBatch {
		users, err := s.repos.Users.SearchUsers(ctx, "", reindexBatch, offset)
		if err != nil {
			return counts, err
		}
		for i := range users {
			if err := s.index.IndexDocument(ctx, IndexUsers, users[i].ID, UserToDoc(&users[i])); err != nil {
				return counts, err
			}
			counts.Users++
		}
		if len(users) < reindexBatch {
			break
		}
	}

	for offset := 0; ; offset += reindexBatch {
		posts, err := s.repos.Posts.SearchPosts(ctx, "", reindexBatch, offset)
		if err != nil {
			return counts, err
		}
		for i := range posts {
			if err := s.index.IndexDocument(ctx, IndexPosts, posts[i].ID, PostToDoc(&posts[i])); err != nil {
				return counts, err
			}
			counts.Posts++
		}
		if len(posts) < reindexBatch {
			break
		}
	}

	for offset := 0; ; offset += reindexBatch {
		jobs, err := s.repos.Jobs.ListJobs(ctx, repository.JobFilter{}, reindexBatch, offset)
		if err != nil {
			return counts, err
		}
		for i := range jobs {
			if err := s.index.IndexDocument(ctx, IndexJobs, jobs[i].ID, JobToDoc(&jobs[i])); err != nil {
				return counts, err
			}
			counts.Jobs++
		}
		if len(jobs) < reindexBatch {
			break
		}
	}

	return counts, nil
}

// RunReconciler reindexes every interval until ctx is cancelled
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) error {
	if s.index == nil || interval <= 0 {
		return nil
	}
	logger.Log.Info("Starting search reconciliation", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Search reconciliation stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			counts, err := s.Reindex(ctx)
			if err != nil {
				logger.Log.Warn("Search reconciliation failed", zap.Error(err))
				continue
			}
			logger.Log.Info("Search reconciliation completed",
				zap.Int("users", counts.Users),
				zap.Int("posts", counts.Posts),
				zap.Int("jobs", counts.Jobs),
				logger.WithDuration(time.Since(start)),
			)
		}
	}
}
