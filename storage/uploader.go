// Package storage uploads issue photos and work proofs to an
// S3-compatible object store. Callers only ever see the returned URL;
// raw bytes never touch the issue documents.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Uploader struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

var (
	uploader *Uploader
	initOnce sync.Once
	initErr  error
)

// Init connects to the object store and ensures the bucket exists. Must
// be called once at startup before Default is used.
func Init(ctx context.Context) error {
	initOnce.Do(func() {
		endpoint := os.Getenv("MINIO_ENDPOINT")
		accessKey := os.Getenv("MINIO_ACCESS_KEY")
		secretKey := os.Getenv("MINIO_SECRET_KEY")
		bucket := os.Getenv("MINIO_BUCKET")
		if bucket == "" {
			bucket = "cityfix-uploads"
		}
		useSSL := os.Getenv("MINIO_USE_SSL") == "true"

		if endpoint == "" {
			initErr = fmt.Errorf("MINIO_ENDPOINT environment variable is not set")
			return
		}

		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
		if err != nil {
			initErr = fmt.Errorf("create object storage client: %w", err)
			return
		}

		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			initErr = fmt.Errorf("check bucket: %w", err)
			return
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				initErr = fmt.Errorf("create bucket: %w", err)
				return
			}
		}

		baseURL := os.Getenv("MINIO_PUBLIC_URL")
		if baseURL == "" {
			scheme := "http"
			if useSSL {
				scheme = "https"
			}
			baseURL = fmt.Sprintf("%s://%s", scheme, endpoint)
		}

		uploader = &Uploader{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
	})
	return initErr
}

// Default returns the uploader created by Init.
func Default() (*Uploader, error) {
	if uploader == nil {
		return nil, fmt.Errorf("object storage not initialized")
	}
	return uploader, nil
}

// Upload stores the object and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, prefix, filename string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("%s/%d-%s", prefix, time.Now().UnixNano(), sanitize(filename))

	_, err := u.client.PutObject(ctx, u.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", u.baseURL, u.bucket, objectName), nil
}

func sanitize(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return -1
	}, name)
}
