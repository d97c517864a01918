// Package chunkuploader splits a file into byte-range segments and sends them one by one.
// A segment is only sent after the previous send returned, so the receiving side always
// sees segments in index order and never more than one at a time.
package chunkuploader

import (
	"context"
	"io"
)

// Segment is the byte range [Start, End) of a file sent in one request.
type Segment struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes in the segment.
func (s Segment) Len() int64 {
	return s.End - s.Start
}

// ChunkProvider provides chunk data for upload.
// Implementations can read from files, memory buffers, or any io.ReaderAt.
type ChunkProvider interface {
	// NumChunks returns the total number of chunks.
	NumChunks() int

	// ChunkSize returns the size of the chunk at the given index.
	ChunkSize(index int) int64

	// GetChunk returns a reader for the chunk at the given index.
	GetChunk(index int) (io.Reader, error)
}

// Chunk is a single segment handed to a SendFunc.
type Chunk struct {
	Index int
	Total int
	Size  int64
	Body  io.Reader
}

// SendFunc transmits one chunk and returns once the receiving side has answered.
type SendFunc func(ctx context.Context, chunk Chunk) error

// Progress is reported after each successfully sent chunk.
type Progress struct {
	Index   int
	Total   int
	Percent int
}
