package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoResponse wraps transport failures: the request never produced an
// HTTP response.
var ErrNoResponse = errors.New("client: no response from server")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code     int
	Endpoint string
	Body     []byte
}

func (e StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unexpected status"
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("client: %s: %d %s", e.Endpoint, e.Code, text)
	}
	return fmt.Sprintf("client: %d %s", e.Code, text)
}

// StatusCode returns the HTTP status, defaulting to 500.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// FieldErrors decodes the per-field messages of the reply body: an
// "errors" object mapping field paths to a message or a list of messages.
// It returns nil when the body carries none.
func (e StatusError) FieldErrors() map[string][]string {
	var reply struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if len(e.Body) == 0 || json.Unmarshal(e.Body, &reply) != nil || len(reply.Errors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(reply.Errors))
	for path, raw := range reply.Errors {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			out[path] = list
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			out[path] = []string{one}
		}
	}
	return out
}

// Category buckets backend failures into the outcomes the UI distinguishes.
type Category int

const (
	CategoryNone Category = iota
	CategoryNoResponse
	CategoryBadRequest
	CategoryUnauthorized
	CategoryForbidden
	CategoryUnknown
)

// Classify maps an error returned by Post (or wrapping one) to a Category.
// A nil error yields CategoryNone.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var status StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusBadRequest:
			return CategoryBadRequest
		case http.StatusUnauthorized:
			return CategoryUnauthorized
		case http.StatusForbidden:
			return CategoryForbidden
		default:
			return CategoryUnknown
		}
	}
	if errors.Is(err, ErrNoResponse) {
		return CategoryNoResponse
	}
	return CategoryUnknown
}

// IsUnauthorized reports whether err is a 401 from the backend. Callers
// answer it with a forced logout.
func IsUnauthorized(err error) bool {
	return Classify(err) == CategoryUnauthorized
}

// MessageKey returns the translation key shown to users.
func (c Category) MessageKey() string {
	switch c {
	case CategoryNone:
		return ""
	case CategoryNoResponse:
		return "login.no_server_response"
	case CategoryBadRequest:
		return "login.command_not_found"
	case CategoryUnauthorized:
		return "login.invalid_data_username_mail"
	case CategoryForbidden:
		return "error.no_permission"
	default:
		return "login.unknown_error"
	}
}

// String returns a short label used in logs and metrics.
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "ok"
	case CategoryNoResponse:
		return "no_response"
	case CategoryBadRequest:
		return "bad_request"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}
