package testsupport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Call records one request received by a Backend.
type Call struct {
	Path          string
	Authorization string
	ContentType   string
	Body          json.RawMessage
}

// Part is one part of a multipart call. Filename is empty for plain
// values.
type Part struct {
	Name     string
	Filename string
	Content  string
}

// Parts splits a multipart/form-data body into its parts, in order.
func (c Call) Parts(t *testing.T) []Part {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(c.ContentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("%s is not multipart: %q", c.Path, c.ContentType)
	}
	reader := multipart.NewReader(bytes.NewReader(c.Body), params["boundary"])
	var parts []Part
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return parts
		}
		if err != nil {
			t.Fatalf("read %s part: %v", c.Path, err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read %s part: %v", c.Path, err)
		}
		parts = append(parts, Part{Name: part.FormName(), Filename: part.FileName(), Content: string(data)})
	}
}

// Decode unmarshals the recorded body into dst.
func (c Call) Decode(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(c.Body, dst); err != nil {
		t.Fatalf("decode %s body: %v\n%s", c.Path, err, c.Body)
	}
}

// Responder produces the status code and JSON body for a call.
type Responder func(call Call) (int, any)

// Backend is a recording stand-in for the Conexys API. Unhandled paths
// answer 404.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Responder
	calls    []Call
}

// NewBackend starts a Backend closed automatically when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{handlers: make(map[string]Responder)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Handle registers a responder for a path (leading slash optional).
func (b *Backend) Handle(path string, responder Responder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[normalizePath(path)] = responder
}

// JSON registers a fixed response for a path.
func (b *Backend) JSON(path string, status int, body any) {
	b.Handle(path, func(Call) (int, any) { return status, body })
}

// Calls returns the recorded calls for path, or every call when path is
// empty.
func (b *Backend) Calls(path string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()

	if path == "" {
		return append([]Call(nil), b.calls...)
	}
	want := normalizePath(path)
	var out []Call
	for _, call := range b.calls {
		if call.Path == want {
			out = append(out, call)
		}
	}
	return out
}

// BaseURL returns the base URL with a trailing slash, matching how the
// frontend configures its API root.
func (b *Backend) BaseURL() string {
	return b.Server.URL + "/"
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := Call{
		Path:          normalizePath(r.URL.Path),
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          json.RawMessage(body),
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	responder := b.handlers[call.Path]
	b.mu.Unlock()

	if responder == nil {
		http.NotFound(w, r)
		return
	}

	status, payload := responder(call)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func normalizePath(path string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}
