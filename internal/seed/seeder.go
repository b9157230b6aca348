// Package seed fills a database with fake HireWire data for development and demos.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Options sizes a seeding run
type Options struct {
	Users              int
	ConnectionsPerUser int
	PostsPerUser       int
	Jobs               int
	ApplicationsPerJob int
	Conversations      int
	MessagesPerThread  int
}

// DevOptions is a populated network that still seeds in a few seconds
func DevOptions() Options {
	return Options{
		Users:              200,
		ConnectionsPerUser: 8,
		PostsPerUser:       3,
		Jobs:               60,
		ApplicationsPerJob: 5,
		Conversations:      150,
		MessagesPerThread:  12,
	}
}

// TestOptions is small enough for e2e fixtures
func TestOptions() Options {
	return Options{
		Users:              5,
		ConnectionsPerUser: 2,
		PostsPerUser:       2,
		Jobs:               3,
		ApplicationsPerJob: 2,
		Conversations:      4,
		MessagesPerThread:  5,
	}
}

// Counts reports what a run created
type Counts struct {
	Users        int
	Connections  int
	Posts        int
	Comments     int
	Likes        int
	Jobs         int
	Applications int
	Messages     int
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	repos *repository.Repositories
	rng   *rand.Rand
}

// NewSeeder creates a new seeder instance. Messages go through repos, so a MongoDB
// message store can be swapped in before seeding.
func NewSeeder(db *gorm.DB, repos *repository.Repositories) *Seeder {
	if repos == nil {
		repos = repository.New(db)
	}
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:    db,
		repos: repos,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed creates users first and then everything that hangs off them
func (s *Seeder) Seed(ctx context.Context, opts Options) (Counts, error) {
	var counts Counts

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return counts, fmt.Errorf("failed to seed users: %w", err)
	}
	counts.Users = len(users)
	if len(users) < 2 {
		return counts, nil
	}

	logger.Log.Info("Creating connections...")
	if counts.Connections, err = s.seedConnections(ctx, users, opts.ConnectionsPerUser); err != nil {
		return counts, fmt.Errorf("failed to seed connections: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(ctx, users, opts.PostsPerUser)
	if err != nil {
		return counts, fmt.Errorf("failed to seed posts: %w", err)
	}
	counts.Posts = len(posts)

	logger.Log.Info("Creating likes and comments...")
	if counts.Likes, counts.Comments, err = s.seedEngagement(ctx, users, posts); err != nil {
		return counts, fmt.Errorf("failed to seed engagement: %w", err)
	}

	logger.Log.Info("Creating jobs...")
	jobs, err := s.seedJobs(ctx, users, opts.Jobs)
	if err != nil {
		return counts, fmt.Errorf("failed to seed jobs: %w", err)
	}
	counts.Jobs = len(jobs)

	logger.Log.Info("Creating applications...")
	if counts.Applications, err = s.seedApplications(ctx, users, jobs, opts.ApplicationsPerJob); err != nil {
		return counts, fmt.Errorf("failed to seed applications: %w", err)
	}

	logger.Log.Info("Creating conversations...")
	if counts.Messages, err = s.seedMessages(ctx, users, opts.Conversations, opts.MessagesPerThread); err != nil {
		return counts, fmt.Errorf("failed to seed messages: %w", err)
	}

	return counts, nil
}

// Clean deletes every row from the relational store
func (s *Seeder) Clean(ctx context.Context) error {
	// Delete in reverse order of dependencies
	tables := []string{
		"applications", "jobs", "comments", "likes", "posts", "profile_views",
		"notifications", "messages", "connections", "verification_codes", "users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

var usernameStrip = regexp.MustCompile(`[^a-z0-9_.]`)

func seedUsername(i int) string {
	base := usernameStrip.ReplaceAllString(strings.ToLower(gofakeit.Username()), "")
	if len(base) > 20 {
		base = base[:20]
	}
	if len(base) < 3 {
		base = "user"
	}
	return fmt.Sprintf("%s_%d", base, i)
}

var skillPool = []string{
	"Go", "Kubernetes", "PostgreSQL", "Redis", "gRPC", "Terraform", "AWS", "React",
	"TypeScript", "Python", "Rust", "Kafka", "Elasticsearch", "Figma", "SQL", "Docker",
	"Product Management", "Recruiting", "Sales", "Data Analysis",
}

func (s *Seeder) pickSkills(n int) []string {
	picked := make([]string, 0, n)
	for _, i := range s.rng.Perm(len(skillPool))[:n] {
		picked = append(picked, skillPool[i])
	}
	return picked
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := seedUsername(i)
		user := models.User{
			Email:             username + "@example.com",
			Username:          username,
			Name:              gofakeit.Name(),
			Headline:          gofakeit.JobTitle() + " at " + gofakeit.Company(),
			Bio:               gofakeit.HipsterSentence(),
			Location:          gofakeit.City() + ", " + gofakeit.Country(),
			Company:           gofakeit.Company(),
			Skills:            s.pickSkills(1 + s.rng.Intn(5)),
			ProfilePictureURL: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			PasswordHash:      string(hash),
			EmailVerified:     true,
		}
		if err := s.repos.Users.CreateUser(ctx, &user); err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// seedConnections links users at random. Most requests are accepted, a few stay pending.
func (s *Seeder) seedConnections(ctx context.Context, users []models.User, perUser int) (int, error) {
	seen := make(map[[2]string]bool)
	created := 0
	for i := range users {
		for j := 0; j < perUser; j++ {
			other := users[s.rng.Intn(len(users))]
			if other.ID == users[i].ID {
				continue
			}
			pair := [2]string{users[i].ID, other.ID}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if seen[pair] {
				continue
			}
			seen[pair] = true

			conn := models.Connection{RequesterID: users[i].ID, AddresseeID: other.ID}
			if err := s.repos.Connections.CreateConnection(ctx, &conn); err != nil {
				return created, err
			}
			if s.rng.Intn(10) < 8 {
				if err := s.repos.Connections.Accept(ctx, conn.ID); err != nil {
					return created, err
				}
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, perUser int) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(users)*perUser)
	for i := range users {
		for j := 0; j < perUser; j++ {
			post := models.Post{
				UserID:    users[i].ID,
				Content:   gofakeit.HipsterSentence(),
				CreatedAt: gofakeit.DateRange(time.Now().AddDate(0, -2, 0), time.Now()),
			}
			if err := s.repos.Posts.CreatePost(ctx, &post); err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(ctx context.Context, users []models.User, posts []models.Post) (likes, comments int, err error) {
	for i := range posts {
		for _, idx := range s.rng.Perm(len(users))[:s.rng.Intn(min(len(users), 6))] {
			if users[idx].ID == posts[i].UserID {
				continue
			}
			if _, err := s.repos.Posts.ToggleLike(ctx, posts[i].ID, users[idx].ID); err != nil {
				return likes, comments, err
			}
			likes++
		}
		for c := s.rng.Intn(3); c > 0; c-- {
			comment := models.Comment{
				PostID:  posts[i].ID,
				UserID:  users[s.rng.Intn(len(users))].ID,
				Content: gofakeit.HipsterSentence(),
			}
			if err := s.repos.Posts.CreateComment(ctx, &comment); err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}

var employmentTypes = []models.EmploymentType{
	models.EmploymentFullTime, models.EmploymentFullTime, models.EmploymentFullTime,
	models.EmploymentPartTime, models.EmploymentContract, models.EmploymentInternship,
	models.EmploymentTemporary,
}

func (s *Seeder) seedJobs(ctx context.Context, users []models.User, count int) ([]models.Job, error) {
	jobs := make([]models.Job, 0, count)
	for i := 0; i < count; i++ {
		poster := users[s.rng.Intn(len(users))]
		low := 40000 + s.rng.Intn(80)*1000
		high := low + 10000 + s.rng.Intn(60)*1000

		job := models.Job{
			PosterID:       poster.ID,
			Title:          gofakeit.JobTitle(),
			Company:        gofakeit.Company(),
			Location:       gofakeit.City(),
			Remote:         s.rng.Intn(3) == 0,
			EmploymentType: employmentTypes[s.rng.Intn(len(employmentTypes))],
			Description:    gofakeit.HipsterSentence() + " " + gofakeit.HipsterSentence(),
			Skills:         s.pickSkills(2 + s.rng.Intn(4)),
			SalaryMin:      &low,
			SalaryMax:      &high,
			Status:         models.JobOpen,
		}
		if s.rng.Intn(8) == 0 {
			job.Status = models.JobClosed
		}
		if err := s.repos.Jobs.CreateJob(ctx, &job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

var seededStatuses = []models.ApplicationStatus{
	models.ApplicationSubmitted, models.ApplicationSubmitted, models.ApplicationReviewing,
	models.ApplicationInterview, models.ApplicationRejected, models.ApplicationOffered,
}

func (s *Seeder) seedApplications(ctx context.Context, users []models.User, jobs []models.Job, perJob int) (int, error) {
	created := 0
	for i := range jobs {
		if jobs[i].Status != models.JobOpen {
			continue
		}
		for _, idx := range s.rng.Perm(len(users))[:min(perJob, len(users))] {
			applicant := users[idx]
			if applicant.ID == jobs[i].PosterID {
				continue
			}
			app := models.Application{
				JobID:       jobs[i].ID,
				ApplicantID: applicant.ID,
				CoverLetter: gofakeit.HipsterSentence(),
				Status:      models.ApplicationSubmitted,
			}
			if err := s.repos.Applications.CreateApplication(ctx, &app); err != nil {
				return created, err
			}
			if status := seededStatuses[s.rng.Intn(len(seededStatuses))]; status != models.ApplicationSubmitted {
				if err := s.repos.Applications.UpdateStatus(ctx, app.ID, status); err != nil {
					return created, err
				}
			}
			created++
		}
	}
	return created, nil
}

// seedMessages writes threads with alternating senders. Everything except the tail of
// each thread is marked read so inboxes show a realistic unread count.
func (s *Seeder) seedMessages(ctx context.Context, users []models.User, conversations, perThread int) (int, error) {
	created := 0
	for i := 0; i < conversations; i++ {
		a := users[s.rng.Intn(len(users))]
		b := users[s.rng.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}

		at := gofakeit.DateRange(time.Now().AddDate(0, 0, -14), time.Now().Add(-time.Hour))
		unreadTail := s.rng.Intn(3)
		for m := 0; m < perThread; m++ {
			from, to := a, b
			if m%2 == 1 {
				from, to = b, a
			}
			at = at.Add(time.Duration(1+s.rng.Intn(90)) * time.Minute)
			msg := models.Message{
				SenderID:    from.ID,
				RecipientID: to.ID,
				Content:     gofakeit.HipsterSentence(),
				Read:        m < perThread-unreadTail,
				CreatedAt:   at,
			}
			if err := s.repos.Messages.CreateMessage(ctx, &msg); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
