package chunkuploader

import "fmt"

// Config holds configuration for the sequencer.
type Config struct {
	// SegmentSize is the maximum number of bytes sent in one chunk request.
	// Default: DefaultSegmentSize (5 MiB)
	SegmentSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SegmentSize: DefaultSegmentSize,
	}
}

// Validate ...
func (c Config) Validate() error {
	if c.SegmentSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSegmentSize, c.SegmentSize)
	}
	return nil
}
