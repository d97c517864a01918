package upload

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Tracker receives upload lifecycle events.
type Tracker interface {
	LogUploadFinished(strategy Strategy, took time.Duration, size int64, segments int)
	LogUploadFailed(strategy Strategy, took time.Duration, reason string)
	Wait()
}

type uploadTracker struct {
	tracker analytics.Tracker
	logger  log.Logger
}

// NewTracker sends upload events to the analytics backend.
func NewTracker(envRepo env.Repository, logger log.Logger) Tracker {
	p := analytics.Properties{
		"client":      "fileupload",
		"build_slug":  envRepo.Get("BITRISE_BUILD_SLUG"),
		"app_slug":    envRepo.Get("BITRISE_APP_SLUG"),
		"workflow":    envRepo.Get("BITRISE_TRIGGERED_WORKFLOW_ID"),
		"is_pr_build": envRepo.Get("IS_PR") == "true",
	}
	return uploadTracker{
		tracker: analytics.NewDefaultTracker(logger, p),
		logger:  logger,
	}
}

func (t uploadTracker) LogUploadFinished(strategy Strategy, took time.Duration, size int64, segments int) {
	properties := analytics.Properties{
		"strategy":          strategy.String(),
		"upload_time_s":     took.Truncate(time.Second).Seconds(),
		"upload_size_bytes": size,
		"segment_count":     segments,
	}
	t.tracker.Enqueue("file_upload_finished", properties)
}

func (t uploadTracker) LogUploadFailed(strategy Strategy, took time.Duration, reason string) {
	properties := analytics.Properties{
		"strategy":      strategy.String(),
		"upload_time_s": took.Truncate(time.Second).Seconds(),
		"reason":        reason,
	}
	t.tracker.Enqueue("file_upload_failed", properties)
}

func (t uploadTracker) Wait() {
	t.tracker.Wait()
}

type noopTracker struct{}

// NewNoopTracker returns a Tracker that drops every event.
func NewNoopTracker() Tracker {
	return noopTracker{}
}

func (noopTracker) LogUploadFinished(Strategy, time.Duration, int64, int) {}

func (noopTracker) LogUploadFailed(Strategy, time.Duration, string) {}

func (noopTracker) Wait() {}
