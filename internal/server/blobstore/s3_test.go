package blobstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clipstream/clipstream/internal/server/config"
)

func newTestStore(baseEndpoint string) *S3Store {
	cfg := &config.Config{
		S3RootUser:     "admin",
		S3RootPassword: "secret",
		S3Bucket:       "media",
		S3Region:       "us-east-1",
		S3BaseEndpoint: baseEndpoint,
	}
	return NewS3Store(cfg)
}

func TestObjectURL(t *testing.T) {
	s := newTestStore("http://127.0.0.1:9000/")

	got, err := s.objectURL("media/2026/1/2/abc")
	if err != nil {
		t.Fatalf("objectURL error: %v", err)
	}
	if got != "http://127.0.0.1:9000/media/media/2026/1/2/abc" {
		t.Fatalf("unexpected URL: %s", got)
	}
}

func TestRandomStorageKeyIsUnique(t *testing.T) {
	if randomStorageKey() == randomStorageKey() {
		t.Fatal("two storage keys should not collide")
	}
	if !strings.HasPrefix(randomStorageKey(), "media/") {
		t.Fatal("storage keys should live under the media/ prefix")
	}
}

func TestPutToPresignedURL(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	if err := s.putToPresignedURL(context.Background(), srv.URL, []byte("avatar-bytes")); err != nil {
		t.Fatalf("putToPresignedURL error: %v", err)
	}
	if gotBody != "avatar-bytes" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestPutToPresignedURL_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	if err := s.putToPresignedURL(context.Background(), srv.URL, []byte("x")); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	origLoad := loadDefaultAWSConfig
	origPresign := presignPutObject
	defer func() {
		loadDefaultAWSConfig = origLoad
		presignPutObject = origPresign
	}()

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: srv.URL + "/media/" + *in.Key, Method: http.MethodPut}, nil
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "avatar.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o660); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s := newTestStore(srv.URL)
	s.httpClient = &http.Client{Timeout: 5 * time.Second}

	url, err := s.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if !strings.HasPrefix(url, srv.URL+"/media/") {
		t.Fatalf("unexpected object URL: %s", url)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	s := newTestStore("http://127.0.0.1:9000/")
	if _, err := s.Upload(context.Background(), "/nonexistent/path.png"); err == nil {
		t.Fatal("expected error for missing local file")
	}
}
