// Package blobstore uploads local files to S3-compatible object storage and
// hands back a URL. The rest of the server treats it as opaque: media bytes
// never flow through the database.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/clipstream/clipstream/internal/server/config"
)

// BlobStore stores a local file and returns the URL it is reachable at.
type BlobStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// test seams, same shape as the AWS SDK calls they wrap
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// S3Store implements BlobStore against an S3-compatible backend (MinIO in
// development) using presigned PUT requests.
type S3Store struct {
	rootUser     string
	rootPassword string
	bucket       string
	region       string
	baseEndpoint string
	httpClient   *http.Client
}

// NewS3Store constructs an S3Store from server configuration.
func NewS3Store(cfg *config.Config) *S3Store {
	return &S3Store{
		rootUser:     cfg.S3RootUser,
		rootPassword: cfg.S3RootPassword,
		bucket:       cfg.S3Bucket,
		region:       cfg.S3Region,
		baseEndpoint: cfg.S3BaseEndpoint,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// randomStorageKey spreads objects over date-based prefixes.
func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *S3Store) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.rootUser,
			s.rootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.baseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// Upload reads the file at localPath, PUTs it to a presigned object URL, and
// returns the object's public URL.
func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", localPath, err)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	key := randomStorageKey()
	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	if err := s.putToPresignedURL(ctx, req.URL, data); err != nil {
		return "", err
	}

	return s.objectURL(key)
}

func (s *S3Store) putToPresignedURL(ctx context.Context, presignedURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

func (s *S3Store) objectURL(key string) (string, error) {
	u, err := url.Parse(s.baseEndpoint)
	if err != nil {
		return "", fmt.Errorf("bad base endpoint: %w", err)
	}
	return u.JoinPath(s.bucket, key).String(), nil
}
