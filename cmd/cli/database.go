package main

import (
	"context"
	"fmt"

	"github.com/hirewire/backend/internal/config"
	"github.com/hirewire/backend/internal/database"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/repository/mongostore"
	"github.com/hirewire/backend/internal/search"
	"github.com/hirewire/backend/internal/seed"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB, repos *repository.Repositories) error {
			if err := database.Migrate(db); err != nil {
				return err
			}
			printSuccess("Migrations applied (%s)", cfg.DatabaseDriver)
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [dev|test|clean]",
	Short: "Fill the database with fake users, jobs and conversations",
	Long: `Seed the database with generated data.

  dev   - a populated network (200 users, jobs, applications, threads)
  test  - a handful of rows for e2e fixtures
  clean - delete every row (use with caution)

Every seeded account uses the password "` + seed.DefaultPassword + `".`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dev", "test", "clean"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "dev"
		if len(args) == 1 {
			mode = args[0]
		}
		return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB, repos *repository.Repositories) error {
			if err := database.Migrate(db); err != nil {
				return err
			}
			seeder := seed.NewSeeder(db, repos)

			var opts seed.Options
			switch mode {
			case "clean":
				if err := seeder.Clean(ctx); err != nil {
					return err
				}
				printSuccess("Seed data cleaned")
				return nil
			case "test":
				opts = seed.TestOptions()
			case "dev":
				opts = seed.DevOptions()
			default:
				return fmt.Errorf("unknown seed mode %q", mode)
			}

			counts, err := seeder.Seed(ctx, opts)
			if err != nil {
				return err
			}
			printSuccess("Seeded %d users, %d connections, %d posts, %d jobs, %d applications, %d messages",
				counts.Users, counts.Connections, counts.Posts, counts.Jobs, counts.Applications, counts.Messages)
			return nil
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the Elasticsearch indices from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB, repos *repository.Repositories) error {
			if cfg.ElasticsearchURL == "" {
				return fmt.Errorf("ELASTICSEARCH_URL is not set")
			}
			client, err := search.NewClient(cfg.ElasticsearchURL)
			if err != nil {
				return err
			}
			if err := client.InitializeIndices(ctx); err != nil {
				return err
			}
			counts, err := search.NewService(client, repos).Reindex(ctx)
			if err != nil {
				return err
			}
			printSuccess("Indexed %d users, %d posts, %d jobs", counts.Users, counts.Posts, counts.Jobs)
			return nil
		})
	},
}

// withStore loads config, opens the database (and MongoDB when configured) and runs fn
func withStore(ctx context.Context, fn func(context.Context, *config.Config, *gorm.DB, *repository.Repositories) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil && cfg == nil {
		return err
	}
	if err != nil {
		printWarning("%v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, database.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	repos := repository.New(db)
	if cfg.MessageStore == config.MessageStoreMongo {
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close(context.Background()) }()
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		repos.Messages = store.Messages()
		repos.Notifications = store.Notifications()
	}
	return fn(ctx, cfg, db, repos)
}
