// Package upload selects a transfer strategy for a local file, drives the transfer and
// keeps the session state that user feedback is rendered from.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitrise-io/go-fileupload/metrics"
	"github.com/bitrise-io/go-fileupload/upload/network"
	"github.com/bitrise-io/go-fileupload/upload/network/chunkuploader"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bitrise-io/go-fileupload/upload"

// Config ...
type Config struct {
	// SegmentSize is both the whole-file threshold and the size of a segment.
	// Default: chunkuploader.DefaultSegmentSize
	SegmentSize int64
	Tracker     Tracker
	Metrics     *metrics.Metrics
	// OnSuccess is called after every successful upload, e.g. to refresh the listing.
	OnSuccess func(ctx context.Context)
}

// Uploader delivers the selected file through a Transport and records the outcome on its
// Session. Select and Upload are safe to call from different goroutines; a call that
// would interfere with a running upload is refused.
type Uploader struct {
	transport network.Transport
	sequencer *chunkuploader.Sequencer
	threshold int64
	session   *Session
	tracker   Tracker
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	onSuccess func(ctx context.Context)
	logger    log.Logger

	mu   sync.Mutex
	file *SelectedFile
}

// NewUploader ...
func NewUploader(transport network.Transport, config Config, logger log.Logger) (*Uploader, error) {
	seqConfig := chunkuploader.DefaultConfig()
	if config.SegmentSize != 0 {
		seqConfig.SegmentSize = config.SegmentSize
	}
	if err := seqConfig.Validate(); err != nil {
		return nil, err
	}
	if config.Tracker == nil {
		config.Tracker = NewNoopTracker()
	}

	return &Uploader{
		transport: transport,
		sequencer: chunkuploader.New(seqConfig, logger),
		threshold: seqConfig.SegmentSize,
		session:   NewSession(),
		tracker:   config.Tracker,
		metrics:   config.Metrics,
		tracer:    otel.Tracer(tracerName),
		onSuccess: config.OnSuccess,
		logger:    logger,
	}, nil
}

// Session returns the session the uploader reports to.
func (u *Uploader) Session() *Session {
	return u.session
}

// Select makes file the subject of the next upload and resets the session to Ready.
// The previously selected file is closed.
func (u *Uploader) Select(file *SelectedFile) error {
	if file == nil {
		return ErrNoFileSelected
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.session.Select(file.Name); err != nil {
		return err
	}

	if u.file != nil && u.file != file {
		if err := u.file.Close(); err != nil {
			u.logger.Warnf("Failed to close %s: %s", u.file.Name, err)
		}
	}
	u.file = file

	return nil
}

// Upload transfers the selected file. The returned error is nil on success; otherwise the
// session ends in Error with FailureMessage(err) as its message. Without a selected file
// nothing is sent and ErrNoFileSelected is returned.
func (u *Uploader) Upload(ctx context.Context) error {
	u.mu.Lock()
	file := u.file
	if file == nil {
		u.mu.Unlock()
		return ErrNoFileSelected
	}
	if err := u.session.Begin(); err != nil {
		u.mu.Unlock()
		return err
	}
	u.mu.Unlock()

	strategy := SelectStrategy(file.Size, u.threshold)

	ctx, span := u.tracer.Start(ctx, "upload", trace.WithAttributes(
		attribute.String("file.name", file.Name),
		attribute.Int64("file.size", file.Size),
		attribute.String("upload.strategy", strategy.String()),
	))
	defer span.End()

	u.logger.Infof("Uploading %s (%s) using %s transfer", file.Name, units.HumanSizeWithPrecision(float64(file.Size), 3), strategy)

	start := time.Now()
	segments := 1
	var err error
	switch strategy {
	case StrategySegmented:
		segments, err = u.uploadSegmented(ctx, file)
	default:
		err = u.uploadWhole(ctx, file)
	}
	took := time.Since(start)

	u.metrics.ObserveUpload(strategy.String(), took, file.Size, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		message := FailureMessage(err)
		u.tracker.LogUploadFailed(strategy, took, message)
		u.logger.Errorf("Upload of %s failed: %s", file.Name, err)
		if ferr := u.session.Fail(message); ferr != nil {
			u.logger.Warnf("Failed to record upload failure: %s", ferr)
		}
		return err
	}

	u.tracker.LogUploadFinished(strategy, took, file.Size, segments)
	u.logger.Donef("Uploaded %s in %s", file.Name, took.Round(time.Millisecond))
	if err := u.session.Succeed(); err != nil {
		u.logger.Warnf("Failed to record upload success: %s", err)
	}

	if u.onSuccess != nil {
		u.onSuccess(ctx)
	}

	return nil
}

func (u *Uploader) uploadWhole(ctx context.Context, file *SelectedFile) error {
	return u.transport.UploadWhole(ctx, network.Part{
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        file.Section(),
	})
}

func (u *Uploader) uploadSegmented(ctx context.Context, file *SelectedFile) (int, error) {
	segments, err := u.sequencer.Partition(file.Size)
	if err != nil {
		return 0, fmt.Errorf("partition %s: %w", file.Name, err)
	}
	provider := chunkuploader.NewReaderAtChunkProvider(file.reader, segments)

	send := func(ctx context.Context, chunk chunkuploader.Chunk) error {
		start := time.Now()
		err := u.transport.UploadSegment(ctx, network.Part{
			FileName:    file.Name,
			ContentType: file.ContentType,
			Size:        chunk.Size,
			Body:        chunk.Body,
		}, chunk.Index, chunk.Total)
		u.metrics.ObserveSegment(time.Since(start), err)
		return err
	}

	onProgress := func(p chunkuploader.Progress) {
		if err := u.session.Advance(p.Percent, fmt.Sprintf("Uploading: %d%%", p.Percent)); err != nil {
			u.logger.Warnf("Failed to record progress: %s", err)
		}
	}

	if err := u.sequencer.Upload(ctx, provider, send, onProgress); err != nil {
		return len(segments), err
	}

	stats := u.sequencer.Stats()
	u.logger.Debugf("Sent %d segments, %s at %s/s", stats.FinishedCount(),
		units.BytesSize(float64(stats.BytesSent())), units.BytesSize(stats.BytesPerSecond()))

	return len(segments), nil
}

// Close releases the selected file.
func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.session.Snapshot().Status == StatusUploading {
		return ErrUploadInProgress
	}
	err := u.file.Close()
	u.file = nil
	return err
}
