package chunkuploader

import (
	"errors"
	"fmt"
)

// DefaultSegmentSize is both the whole-file threshold and the segment size (5 MiB).
const DefaultSegmentSize int64 = 5 * 1024 * 1024

// ErrInvalidSegmentSize is returned for a zero or negative segment size.
var ErrInvalidSegmentSize = errors.New("segment size must be positive")

// Count returns the number of segments Partition would produce.
func Count(fileSize, segmentSize int64) int {
	if fileSize <= 0 || segmentSize <= 0 {
		return 0
	}
	return int((fileSize + segmentSize - 1) / segmentSize)
}

// Partition splits [0, fileSize) into consecutive segments of segmentSize bytes.
// The last segment holds the remainder. An empty file has no segments.
func Partition(fileSize, segmentSize int64) ([]Segment, error) {
	if segmentSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSegmentSize, segmentSize)
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("invalid file size: %d", fileSize)
	}

	count := Count(fileSize, segmentSize)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := int64(i) * segmentSize
		end := start + segmentSize
		if end > fileSize {
			end = fileSize
		}
		segments = append(segments, Segment{Index: i, Start: start, End: end})
	}

	return segments, nil
}

// Percent returns round(100 * done / total), rounding halves up.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}
