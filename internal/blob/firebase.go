package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// FirebaseUploader writes to the project's Firebase Storage bucket. Objects
// get a download token so the media URL works without signed requests.
type FirebaseUploader struct {
	bucket     *storage.BucketHandle
	bucketName string
}

func NewFirebaseUploader(bucket *storage.BucketHandle, bucketName string) *FirebaseUploader {
	return &FirebaseUploader{bucket: bucket, bucketName: bucketName}
}

func (u *FirebaseUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	w := u.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": uuid.NewString()}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return u.PublicURL(name), nil
}

func (u *FirebaseUploader) PublicURL(name string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media",
		u.bucketName, url.PathEscape(name))
}
