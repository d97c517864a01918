package upload

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Status is the phase of an upload session.
type Status int

const (
	StatusIdle Status = iota
	StatusReady
	StatusUploading
	StatusSuccess
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:      "idle",
	StatusReady:     "ready",
	StatusUploading: "uploading",
	StatusSuccess:   "success",
	StatusError:     "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Session messages.
const (
	MessageStarted  = "Upload started..."
	MessageComplete = "Upload complete."
)

// Snapshot is a point-in-time copy of a Session.
type Snapshot struct {
	SessionID string
	FileName  string
	Status    Status
	Progress  int
	Message   string
}

// Session is the progress and outcome state machine of one selected file.
// All fields change only through its transition methods.
type Session struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex
	snapshot    Snapshot
	subscribers []func(Snapshot)
}

// NewSession returns an Idle session.
func NewSession() *Session {
	return &Session{
		snapshot: Snapshot{
			SessionID: uuid.NewString(),
			Status:    StatusIdle,
		},
	}
}

// Subscribe registers fn to be called with the new snapshot after every applied transition.
// Subscribers are called synchronously, in registration order, and must not call
// transition methods of the same session.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Select starts a new session for fileName. It is refused while an upload is running.
func (s *Session) Select(fileName string) error {
	return s.apply(func(cur Snapshot) (Snapshot, error) {
		if cur.Status == StatusUploading {
			return cur, ErrUploadInProgress
		}
		return Snapshot{
			SessionID: uuid.NewString(),
			FileName:  fileName,
			Status:    StatusReady,
		}, nil
	})
}

// Begin moves a session with a selected file to Uploading.
func (s *Session) Begin() error {
	return s.apply(func(cur Snapshot) (Snapshot, error) {
		switch cur.Status {
		case StatusIdle:
			return cur, ErrNoFileSelected
		case StatusUploading:
			return cur, ErrUploadInProgress
		}
		cur.Status = StatusUploading
		cur.Progress = 0
		cur.Message = MessageStarted
		return cur, nil
	})
}

// Advance records upload progress. percent must be within [0,100] and not below the
// current progress.
func (s *Session) Advance(percent int, message string) error {
	return s.apply(func(cur Snapshot) (Snapshot, error) {
		if cur.Status != StatusUploading {
			return cur, fmt.Errorf("%w: advance while %s", ErrInvalidTransition, cur.Status)
		}
		if percent < cur.Progress || percent > 100 {
			return cur, fmt.Errorf("%w: progress %d after %d", ErrInvalidTransition, percent, cur.Progress)
		}
		cur.Progress = percent
		cur.Message = message
		return cur, nil
	})
}

// Succeed ends the upload with success.
func (s *Session) Succeed() error {
	return s.apply(func(cur Snapshot) (Snapshot, error) {
		if cur.Status != StatusUploading {
			return cur, fmt.Errorf("%w: succeed while %s", ErrInvalidTransition, cur.Status)
		}
		cur.Status = StatusSuccess
		cur.Progress = 100
		cur.Message = MessageComplete
		return cur, nil
	})
}

// Fail ends the upload with message as the reason.
func (s *Session) Fail(message string) error {
	return s.apply(func(cur Snapshot) (Snapshot, error) {
		if cur.Status != StatusUploading {
			return cur, fmt.Errorf("%w: fail while %s", ErrInvalidTransition, cur.Status)
		}
		cur.Status = StatusError
		cur.Message = message
		return cur, nil
	})
}

func (s *Session) apply(transition func(Snapshot) (Snapshot, error)) error {
	s.mu.Lock()
	next, err := transition(s.snapshot)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.snapshot = next
	subscribers := append(([]func(Snapshot))(nil), s.subscribers...)

	// Taken before releasing mu so observers see transitions in the order they were applied.
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subscribers {
		fn(next)
	}
	return nil
}
