package chunkuploader

import (
	"context"
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Sequencer sends the chunks of a provider strictly in index order, one request at a time.
type Sequencer struct {
	config Config
	logger log.Logger
	stats  *Stats
}

// New creates a new Sequencer with the given configuration.
func New(config Config, logger log.Logger) *Sequencer {
	if logger == nil {
		logger = log.NewLogger()
	}

	return &Sequencer{
		config: config,
		logger: logger,
		stats:  NewStats(),
	}
}

// Partition splits a file of fileSize bytes using the configured segment size.
func (s *Sequencer) Partition(fileSize int64) ([]Segment, error) {
	return Partition(fileSize, s.config.SegmentSize)
}

// Upload sends every chunk of provider through send. Chunk i+1 is only read and sent
// after send returned nil for chunk i. The first failure stops the loop; the remaining
// chunks are never sent. onProgress, if not nil, is called after each successful chunk.
func (s *Sequencer) Upload(ctx context.Context, provider ChunkProvider, send SendFunc, onProgress func(Progress)) error {
	total := provider.NumChunks()
	s.stats.Reset()

	s.logger.Debugf("Uploading %d chunks, %s each", total, units.BytesSize(float64(s.config.SegmentSize)))

	for index := 0; index < total; index++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("chunk %d/%d upload cancelled: %w", index+1, total, err)
		}

		body, err := provider.GetChunk(index)
		if err != nil {
			return fmt.Errorf("get chunk %d: %w", index+1, err)
		}
		size := provider.ChunkSize(index)

		s.logger.Debugf("Uploading chunk %d/%d (%s) [finished=%d] [avg=%v]",
			index+1, total, units.BytesSize(float64(size)),
			s.stats.FinishedCount(), s.stats.Average().Round(time.Millisecond))

		start := time.Now()
		err = send(ctx, Chunk{
			Index: index,
			Total: total,
			Size:  size,
			Body:  body,
		})
		if err != nil {
			s.logger.Warnf("Chunk %d/%d failed: %s", index+1, total, err)
			return fmt.Errorf("upload chunk %d/%d: %w", index+1, total, err)
		}

		took := time.Since(start)
		s.stats.Update(took, size)
		s.logger.Debugf("Chunk %d/%d uploaded in %v", index+1, total, took.Round(time.Millisecond))

		if onProgress != nil {
			onProgress(Progress{
				Index:   index,
				Total:   total,
				Percent: Percent(index+1, total),
			})
		}
	}

	return nil
}

// Stats returns the statistics of the last Upload.
func (s *Sequencer) Stats() *Stats {
	return s.stats
}
