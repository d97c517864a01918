package network

import (
	"context"
	"io"
)

// Part is the file payload of a single request.
type Part struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RemoteFile is an entry of the listing endpoint.
type RemoteFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Transport delivers file bytes to the receiving endpoint.
// Implementations return nil on success, *ServerError when the endpoint answered with a
// failure and *NetworkError when the request could not be completed.
type Transport interface {
	// UploadWhole sends the whole file in one request.
	UploadWhole(ctx context.Context, part Part) error

	// UploadSegment sends the segment at index (0-based) of total segments.
	// Callers send segments in index order and never concurrently.
	UploadSegment(ctx context.Context, part Part, index, total int) error
}

// Lister returns the files already stored by the receiving endpoint.
type Lister interface {
	ListFiles(ctx context.Context) ([]RemoteFile, error)
}
