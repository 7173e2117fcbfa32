// Package storage keeps uploaded payment proofs in S3-compatible object storage.
package storage

import (
	"bytes"         // Upload buffer
	"context"       // Cancellation
	"fmt"           // Key and URL formatting
	"io"            // Upload bodies
	"path/filepath" // File extensions
	"strings"       // URL handling

	"reservily/internal/config" // Storage settings

	"github.com/aws/aws-sdk-go/aws"             // AWS core types
	"github.com/aws/aws-sdk-go/aws/credentials" // Static credentials
	"github.com/aws/aws-sdk-go/aws/session"     // AWS session
	"github.com/aws/aws-sdk-go/service/s3"      // S3 API
	"github.com/google/uuid"                    // Object names
)

// Uploader stores an object and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// S3Store uploads to an S3 bucket or a MinIO endpoint
type S3Store struct {
	client   *s3.S3
	bucket   string
	region   string
	endpoint string
	useSSL   bool
}

// NewS3Store builds a client from configuration; it does not touch the network
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is not set")
	}
	awsConfig := &aws.Config{
		Region: aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		),
	}
	// Support MinIO for local development
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		awsConfig.DisableSSL = aws.Bool(!cfg.S3UseSSL)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Store{
		client:   s3.New(sess),
		bucket:   cfg.S3Bucket,
		region:   cfg.S3Region,
		endpoint: cfg.S3Endpoint,
		useSSL:   cfg.S3UseSSL,
	}, nil
}

// EnsureBucket creates the bucket when it is missing
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if _, err := s.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores body under key
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, body); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return s.URL(key), nil
}

// URL is the public location of key
func (s *S3Store) URL(key string) string {
	if s.endpoint != "" && !strings.Contains(s.endpoint, "amazonaws.com") {
		// MinIO URL format
		protocol := "http"
		if s.useSSL {
			protocol = "https"
		}
		host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "http://"), "https://")
		return fmt.Sprintf("%s://%s/%s/%s", protocol, strings.TrimSuffix(host, "/"), s.bucket, key)
	}
	// AWS S3 URL format
	region := s.region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, key)
}

var proofTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// ProofContentType maps an allowed proof file name to its content type
func ProofContentType(filename string) (string, bool) {
	ct, ok := proofTypes[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// ProofKey is the object key for a doctor's uploaded proof
func ProofKey(doctorID, filename string) string {
	return fmt.Sprintf("payment-proofs/%s/%s%s", doctorID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}
