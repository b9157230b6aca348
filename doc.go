// Package backend is the HireWire API server: a professional network with a job board
// whose core is realtime delivery of direct messages and notifications.
//
// Binaries:
//
//   - cmd/server: the REST API, the realtime socket endpoint, /health and /metrics
//   - cmd/cli: migrations, seeding, reindexing and an API client for the inbox
//
// Packages:
//
//   - internal/handlers: HTTP request handlers for all API endpoints
//   - internal/models: data models and database schemas
//   - internal/repository: GORM data access, plus MongoDB stores for messages and notifications
//   - internal/messaging: direct messages, threads and conversation summaries
//   - internal/notifications: notification persistence and push
//   - internal/websocket: per-user socket rooms and the Redis relay between instances
//   - internal/auth: registration, login, tokens and email codes
//   - internal/search: Elasticsearch indexing with a database fallback
//   - internal/storage: S3 uploads for avatars, covers, resumes and attachments
//   - internal/email: SES and log-only senders
//   - internal/middleware: request ids, logging, tracing, metrics and rate limiting
//   - internal/seed: fake data for development
package backend
