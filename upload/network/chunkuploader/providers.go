package chunkuploader

import (
	"fmt"
	"io"
)

// ReaderAtChunkProvider serves segments of an io.ReaderAt.
// Every chunk gets its own section reader, so no shared offset is moved.
type ReaderAtChunkProvider struct {
	reader   io.ReaderAt
	segments []Segment
}

// NewReaderAtChunkProvider creates a ChunkProvider over the given segments of reader.
func NewReaderAtChunkProvider(reader io.ReaderAt, segments []Segment) *ReaderAtChunkProvider {
	return &ReaderAtChunkProvider{
		reader:   reader,
		segments: segments,
	}
}

// NumChunks returns the total number of chunks.
func (p *ReaderAtChunkProvider) NumChunks() int {
	return len(p.segments)
}

// ChunkSize returns the size of the chunk at the given index.
func (p *ReaderAtChunkProvider) ChunkSize(index int) int64 {
	if index < 0 || index >= len(p.segments) {
		return 0
	}
	return p.segments[index].Len()
}

// GetChunk returns a reader for the chunk at the given index.
func (p *ReaderAtChunkProvider) GetChunk(index int) (io.Reader, error) {
	if index < 0 || index >= len(p.segments) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", index, len(p.segments))
	}
	segment := p.segments[index]
	return io.NewSectionReader(p.reader, segment.Start, segment.Len()), nil
}
