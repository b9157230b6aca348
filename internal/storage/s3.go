// Package storage puts user uploads (profile images, post images, message attachments,
// resumes) in object storage and hands back their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/hirewire/backend/internal/telemetry"
)

// Folder is the top-level key prefix of an upload
type Folder string

const (
	FolderAvatars     Folder = "avatars"
	FolderCovers      Folder = "covers"
	FolderPostImages  Folder = "post-images"
	FolderAttachments Folder = "attachments"
	FolderResumes     Folder = "resumes"
)

const (
	MaxImageSize    = 5 << 20
	MaxDocumentSize = 10 << 20
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("file type not allowed")
)

var (
	imageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	documentExtensions = []string{".pdf", ".doc", ".docx"}
)

// Uploader stores files and returns where they can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, folder Folder, userID, filename string, body io.Reader, size int64) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// UploadResult contains the result of an upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ValidateFile checks filename and size against the rules of folder.
func ValidateFile(folder Folder, filename string, size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))

	var allowed []string
	limit := int64(MaxImageSize)
	switch folder {
	case FolderAvatars, FolderCovers, FolderPostImages:
		allowed = imageExtensions
	case FolderResumes:
		allowed = documentExtensions
		limit = MaxDocumentSize
	case FolderAttachments:
		allowed = append(append([]string{".txt"}, imageExtensions...), documentExtensions...)
		limit = MaxDocumentSize
	default:
		return fmt.Errorf("unknown upload folder %q", folder)
	}

	if size > limit {
		return fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, limit>>20)
	}
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

// s3API is the part of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader stores uploads in an S3 bucket served from baseURL (usually a CDN).
type S3Uploader struct {
	client  s3API
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Upload validates and stores the file under {folder}/{yyyy}/{mm}/{userID}/{uuid}{ext}.
func (u *S3Uploader) Upload(ctx context.Context, folder Folder, userID, filename string, body io.Reader, size int64) (*UploadResult, error) {
	if err := ValidateFile(folder, filename, size); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	now := u.now().UTC()
	key := fmt.Sprintf("%s/%d/%02d/%s/%s%s", folder, now.Year(), now.Month(), userID, uuid.NewString(), ext)
	contentType := getContentType(ext)

	ctx, span := telemetry.TraceExternalCall(ctx, "s3", "put_object", key)
	defer span.End()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=31536000"),
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": filepath.Base(filename),
			"upload-timestamp":  now.Format(time.RFC3339),
		},
	})
	if err != nil {
		telemetry.RecordExternalCallError(span, err, 0)
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.baseURL + "/" + key,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Delete removes an object by key.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	ctx, span := telemetry.TraceExternalCall(ctx, "s3", "delete_object", key)
	defer span.End()

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		telemetry.RecordExternalCallError(span, err, 0)
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// KeyFromURL returns the object key of a URL produced by this uploader, or "" when
// the URL points elsewhere.
func (u *S3Uploader) KeyFromURL(url string) string {
	prefix := u.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.bucket)}); err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

var _ Uploader = (*S3Uploader)(nil)
