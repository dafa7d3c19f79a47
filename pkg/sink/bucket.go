package sink

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

// Bucket saves artifacts as objects in a Google Cloud Storage bucket.
// Credentials come from Application Default Credentials.
type Bucket struct {
	client *storage.Client
	name   string
	prefix string
}

func NewBucket(ctx context.Context, name, prefix string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Bucket{client: client, name: name, prefix: prefix}, nil
}

func (b *Bucket) Close() error {
	return b.client.Close()
}

// Save uploads the artifact. If the write fails the upload context is
// cancelled, which aborts the object instead of committing a partial one.
func (b *Bucket) Save(ctx context.Context, a report.Artifact) (download.Handle, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := objectName(b.prefix, a.Filename)
	w := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	w.ContentType = a.ContentType
	w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", path.Base(a.Filename))

	if _, err := w.Write(a.Body); err != nil {
		cancel()
		_ = w.Close()
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload %s: %w", name, err)
	}
	return bucketHandle(fmt.Sprintf("gs://%s/%s", b.name, name)), nil
}

func objectName(prefix, filename string) string {
	if prefix == "" {
		return path.Base(filename)
	}
	return path.Join(prefix, path.Base(filename))
}

// bucketHandle is a committed object. Nothing is staged locally.
type bucketHandle string

func (h bucketHandle) Location() string { return string(h) }
func (h bucketHandle) Revoke() error    { return nil }
