// Package blob uploads user images and returns their public URLs
package blob

import (
	"context"
	"io"
)

// DefaultImage is the object every new user points at until they upload
// their own image
const DefaultImage = "no-img.png"

// Uploader stores an object and reports the URL it is served from
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	PublicURL(name string) string
}
