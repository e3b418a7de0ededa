// Package fetcher downloads bounded binary resources such as shelf photos
// and cover images.
package fetcher

import (
	"context"
	"net/http"
)

// Fetcher defines the interface for downloading remote binary data.
type Fetcher interface {
	// Fetch downloads rawURL with the extra request headers and returns the
	// whole body. Non-200 responses are returned as *StatusError.
	Fetch(ctx context.Context, rawURL string, header http.Header) (*Resource, error)
}

// Resource is a downloaded body with its media type.
type Resource struct {
	ContentType string
	Data        []byte
}
