// Package gcsuploader publishes rendered artifacts to Cloud Storage.
package gcsuploader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const scheme = "gs://"

// IsURI reports whether s names a Cloud Storage object.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURI splits gs://bucket/path/to/object into its bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Upload writes data to uri with the given content type.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func Upload(ctx context.Context, uri, contentType string, data []byte) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: write %s: %w", uri, err)
	}
	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize %s: %w", uri, err)
	}
	return nil
}
