package upload

import (
	"errors"

	"github.com/bitrise-io/go-fileupload/upload/network"
)

var (
	// ErrNoFileSelected is returned when an upload is requested before a file was selected.
	ErrNoFileSelected = errors.New("no file selected")
	// ErrUploadInProgress is returned when the session is busy with a transfer.
	ErrUploadInProgress = errors.New("upload in progress")
	// ErrInvalidTransition is returned for a session transition not allowed in the current status.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// DefaultFailureMessage is shown when the server did not supply a reason.
const DefaultFailureMessage = "Upload failed."

// FailureMessage returns the text shown to the user for a failed upload:
// the server supplied error text when there is one, DefaultFailureMessage otherwise.
func FailureMessage(err error) string {
	var serverErr *network.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return DefaultFailureMessage
}
