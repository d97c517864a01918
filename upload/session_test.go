package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordSnapshots(s *Session) *[]Snapshot {
	var snapshots []Snapshot
	s.Subscribe(func(snapshot Snapshot) {
		snapshots = append(snapshots, snapshot)
	})
	return &snapshots
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()
	snapshots := recordSnapshots(s)
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	require.NoError(t, s.Select("a.pdf"))
	require.NoError(t, s.Begin())
	require.NoError(t, s.Advance(50, "Uploading: 50%"))
	require.NoError(t, s.Advance(100, "Uploading: 100%"))
	require.NoError(t, s.Succeed())

	var statuses []Status
	var progress []int
	for _, snapshot := range *snapshots {
		statuses = append(statuses, snapshot.Status)
		progress = append(progress, snapshot.Progress)
	}
	assert.Equal(t, []Status{StatusReady, StatusUploading, StatusUploading, StatusUploading, StatusSuccess}, statuses)
	assert.Equal(t, []int{0, 0, 50, 100, 100}, progress)
	assert.Equal(t, MessageStarted, (*snapshots)[1].Message)
	assert.Equal(t, MessageComplete, s.Snapshot().Message)
	assert.Equal(t, "a.pdf", s.Snapshot().FileName)
}

func TestSession_SelectAlwaysResets(t *testing.T) {
	for _, end := range []func(*Session) error{
		func(s *Session) error { return s.Succeed() },
		func(s *Session) error { return s.Fail("disk full") },
	} {
		s := NewSession()
		require.NoError(t, s.Select("a.pdf"))
		require.NoError(t, s.Begin())
		require.NoError(t, s.Advance(40, "Uploading: 40%"))
		require.NoError(t, end(s))
		previousID := s.Snapshot().SessionID

		require.NoError(t, s.Select("b.pdf"))

		snapshot := s.Snapshot()
		assert.Equal(t, StatusReady, snapshot.Status)
		assert.Equal(t, 0, snapshot.Progress)
		assert.Empty(t, snapshot.Message)
		assert.Equal(t, "b.pdf", snapshot.FileName)
		assert.NotEqual(t, previousID, snapshot.SessionID)
	}
}

func TestSession_Guards(t *testing.T) {
	s := NewSession()
	snapshots := recordSnapshots(s)

	assert.ErrorIs(t, s.Begin(), ErrNoFileSelected)
	assert.ErrorIs(t, s.Advance(10, ""), ErrInvalidTransition)
	assert.ErrorIs(t, s.Succeed(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Fail("x"), ErrInvalidTransition)
	assert.Empty(t, *snapshots, "refused transitions must not notify")

	require.NoError(t, s.Select("a.pdf"))
	require.NoError(t, s.Begin())
	assert.ErrorIs(t, s.Begin(), ErrUploadInProgress)
	assert.ErrorIs(t, s.Select("b.pdf"), ErrUploadInProgress)
	assert.Equal(t, "a.pdf", s.Snapshot().FileName)
}

func TestSession_AdvanceNeverDecreases(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Select("a.pdf"))
	require.NoError(t, s.Begin())
	require.NoError(t, s.Advance(60, "Uploading: 60%"))

	assert.ErrorIs(t, s.Advance(59, "Uploading: 59%"), ErrInvalidTransition)
	assert.ErrorIs(t, s.Advance(101, "Uploading: 101%"), ErrInvalidTransition)
	assert.NoError(t, s.Advance(60, "Uploading: 60%"))
	assert.Equal(t, 60, s.Snapshot().Progress)
}

func TestSession_FailKeepsMessageVerbatim(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Select("a.pdf"))
	require.NoError(t, s.Begin())
	require.NoError(t, s.Advance(50, "Uploading: 50%"))

	require.NoError(t, s.Fail("disk full"))

	snapshot := s.Snapshot()
	assert.Equal(t, StatusError, snapshot.Status)
	assert.Equal(t, "disk full", snapshot.Message)
	assert.Equal(t, 50, snapshot.Progress)
}

func TestSession_BeginAgainAfterOutcome(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Select("a.pdf"))
	require.NoError(t, s.Begin())
	require.NoError(t, s.Fail("Upload failed."))

	require.NoError(t, s.Begin())

	assert.Equal(t, StatusUploading, s.Snapshot().Status)
	assert.Equal(t, 0, s.Snapshot().Progress)
}

func TestSession_SubscriberCanReadSnapshot(t *testing.T) {
	s := NewSession()
	var seen Snapshot
	s.Subscribe(func(Snapshot) {
		seen = s.Snapshot()
	})

	require.NoError(t, s.Select("a.pdf"))

	assert.Equal(t, StatusReady, seen.Status)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "uploading", StatusUploading.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
