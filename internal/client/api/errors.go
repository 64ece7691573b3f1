package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrBadRequest   = errors.New("bad request")
)

// RemoteError wraps any non-2xx response.
type RemoteError struct {
	Method string
	Path   string
	Status int
	// Message is the server-provided text, empty when the body had none.
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Text())
}

// Text returns the server message, or a generic description of the status.
func (e *RemoteError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *RemoteError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 500:
		return ErrServer
	case e.Status >= 400:
		return ErrBadRequest
	}
	return nil
}

// UserMessage picks the text to show for err: the server-provided message of
// a RemoteError when present, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

// errorBody is the backend's error envelope. message may be a string or a
// list of strings.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// extractMessage prefers "message", then "error".
func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if m := flattenMessage(eb.Message); m != "" {
		return m
	}
	return flattenMessage(eb.Error)
}

func flattenMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}
