// internal/calendar/video.go
// Story video storage. The pipeline behind the URI is external; this layer
// only uploads raw files and resolves playable URLs.

package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// VideoService stores story videos and resolves short-lived playback URLs
type VideoService interface {
	Upload(ctx context.Context, file io.Reader, contentType string) (string, error)
	ResolvePlayableURL(ctx context.Context, uri string) (string, error)
}

// S3VideoService stores story videos in S3 and serves presigned URLs
type S3VideoService struct {
	s3Client   *s3.S3
	bucketName string
	urlExpiry  time.Duration
}

// S3VideoConfig configures the S3 video service
type S3VideoConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3VideoService creates a new S3 video service
func NewS3VideoService(config S3VideoConfig) (*S3VideoService, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3VideoService{
		s3Client:   s3.New(sess),
		bucketName: config.Bucket,
		urlExpiry:  15 * time.Minute,
	}, nil
}

// Upload stores the video and returns its storage URI (the object key).
func (s *S3VideoService) Upload(ctx context.Context, file io.Reader, contentType string) (string, error) {
	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, file); err != nil {
		return "", fmt.Errorf("failed to read video: %w", err)
	}

	key := fmt.Sprintf("stories/%s/%s", time.Now().Format("2006/01/02"), uuid.New().String())

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buffer.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload video to S3: %w", err)
	}

	return key, nil
}

// ResolvePlayableURL presigns a fresh GET URL for the stored object.
func (s *S3VideoService) ResolvePlayableURL(_ context.Context, uri string) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(uri),
	})
	url, err := req.Presign(s.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign video URL: %w", err)
	}
	return url, nil
}

// MockVideoService serves deterministic URLs; used in development and tests.
type MockVideoService struct {
	BaseURL   string
	UploadErr error
	URLErr    error
	Uploads   int
}

// Upload pretends to store the file
func (m *MockVideoService) Upload(_ context.Context, file io.Reader, _ string) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	m.Uploads++
	return fmt.Sprintf("stories/mock/%d", m.Uploads), nil
}

// ResolvePlayableURL returns a stable fake URL
func (m *MockVideoService) ResolvePlayableURL(_ context.Context, uri string) (string, error) {
	if m.URLErr != nil {
		return "", m.URLErr
	}
	return m.BaseURL + "/" + uri, nil
}
