package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodySize = 64 * 1024

// ServerError is returned when the endpoint completed the request with a non-success response.
type ServerError struct {
	StatusCode int
	// Message is the server supplied error text, empty if the body had none.
	Message string
	Body    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NetworkError is returned when a request could not be completed at all.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func uploadErrorText(r errorResponse) string { return r.Error }

func listErrorText(r errorResponse) string { return r.Message }

func unwrapError(resp *http.Response, text func(errorResponse) string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &NetworkError{Op: "read error response", Err: err}
	}

	serverErr := &ServerError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		serverErr.Message = text(parsed)
	}

	return serverErr
}
