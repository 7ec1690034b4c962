// Package formstate owns the values of one form instance and its submit,
// delete and restore actions against the backend.
package formstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/feedback"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/metrics"
	"github.com/goliatone/go-formblocks/pkg/session"
)

var (
	// ErrMissingEndpoint is returned when an action has no endpoint
	// configured.
	ErrMissingEndpoint = errors.New("formstate: endpoint is required")
	// ErrBlockingFieldErrors aborts an anonymous submit while a field
	// reports a validation error.
	ErrBlockingFieldErrors = errors.New("formstate: fields have validation errors")
)

// Message keys presented by State.
const (
	MessageCheckFields = "error.checkthefields"
)

// Endpoints are the per-form backend paths. Empty paths disable the action.
type Endpoints struct {
	Get     string
	Post    string
	Delete  string
	Restore string
}

// Option configures a State.
type Option func(*State)

// WithSession routes failures through m, which forces a logout on 401, and
// refreshes the cached profile after a successful submit.
func WithSession(m *session.Manager) Option {
	return func(s *State) {
		s.session = m
	}
}

// WithPresenter sets where success and error messages go.
func WithPresenter(p feedback.Presenter) Option {
	return func(s *State) {
		s.presenter = p
	}
}

// WithSuccessMessage sets the text presented after a successful submit.
func WithSuccessMessage(text string) Option {
	return func(s *State) {
		s.success = text
	}
}

// WithResolver sets the fingerprint resolver.
func WithResolver(r fingerprint.Resolver) Option {
	return func(s *State) {
		s.resolver = r
	}
}

// WithFingerprint fixes the fingerprint hash, bypassing the resolver.
func WithFingerprint(hash string) Option {
	return func(s *State) {
		s.fingerprint = hash
	}
}

// WithIdentifier starts the state on record id without loading it.
func WithIdentifier(id string) Option {
	return func(s *State) {
		s.identifier = id
	}
}

// Anonymous switches submit to the unauthenticated flow: no envelope, no
// Authorization header, and blocking field errors abort the call.
func Anonymous() Option {
	return func(s *State) {
		s.anonymous = true
	}
}

// Multipart sends submits as multipart/form-data: the values plus iditem,
// sessionID and fingerprint, with the submission's files under
// client.FileField. Authenticated forms keep the Authorization header.
func Multipart() Option {
	return func(s *State) {
		s.multipart = true
	}
}

// WithMetrics records submit, delete and restore outcomes.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *State) {
		s.metrics = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

// State is the value map of one form plus its backend actions. Each action
// is attempted at most once per call.
type State struct {
	client    *client.Client
	endpoints Endpoints
	session   *session.Manager
	presenter feedback.Presenter
	resolver  fingerprint.Resolver
	metrics   *metrics.Recorder
	logger    logr.Logger

	success     string
	fingerprint string
	anonymous   bool
	multipart   bool

	mu         sync.Mutex
	inputs     map[string]block.Value
	identifier string
	blanked    bool
	accepted   bool
	result     json.RawMessage
}

// New returns an empty State.
func New(c *client.Client, endpoints Endpoints, opts ...Option) *State {
	s := &State{
		client:    c,
		endpoints: endpoints,
		logger:    logr.Discard(),
		inputs:    make(map[string]block.Value),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Inputs returns a copy of the value map.
func (s *State) Inputs() map[string]block.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]block.Value, len(s.inputs))
	for k, v := range s.inputs {
		out[k] = v
	}
	return out
}

// Value returns the current value of name.
func (s *State) Value(name string) block.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs[name]
}

// HandleInputChange merges one value into the map. It does not validate.
func (s *State) HandleInputChange(name string, value block.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[name] = value
	s.accepted = false
}

// Identifier returns the current record identifier.
func (s *State) Identifier() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifier
}

// Accepted reports whether the last action succeeded and no input changed
// since.
func (s *State) Accepted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Result returns the body of the last successful submit.
func (s *State) Result() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(json.RawMessage(nil), s.result...)
}

// SetIdentifier switches the record being edited. The empty identifier
// means a new record: every non-null value is blanked, once, until a
// non-empty identifier is set again. A non-empty identifier loads the
// record from the get endpoint and replaces the value map.
func (s *State) SetIdentifier(ctx context.Context, id string) error {
	if id == "" {
		s.mu.Lock()
		s.identifier = ""
		if !s.blanked {
			s.blanked = true
			for name, value := range s.inputs {
				s.inputs[name] = value.Blank()
			}
		}
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.identifier = id
	s.blanked = false
	s.mu.Unlock()

	if strings.TrimSpace(s.endpoints.Get) == "" {
		return nil
	}
	values, err := s.load(ctx, id)
	if err != nil {
		s.classify(ctx, err)
		return fmt.Errorf("formstate: load %q: %w", id, err)
	}

	s.mu.Lock()
	s.inputs = values
	s.accepted = false
	s.mu.Unlock()
	return nil
}

func (s *State) load(ctx context.Context, id string) (map[string]block.Value, error) {
	fp, err := fingerprint.GetOrSet(ctx, s.resolver, s.fingerprint)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Post(ctx, s.endpoints.Get, map[string]any{
		"sessionID":   s.client.Store().SessionID(ctx),
		"itemID":      id,
		"fingerprint": fp,
	}, client.WithAuthorization())
	if err != nil {
		return nil, err
	}

	var reply struct {
		Data []map[string]any `json:"data"`
	}
	if err := resp.Decode(&reply); err != nil {
		return nil, err
	}
	values := make(map[string]block.Value)
	if len(reply.Data) > 0 {
		for name, raw := range reply.Data[0] {
			values[name] = block.ValueOf(raw)
		}
	}
	return values, nil
}

// classify turns err into a category, forcing a logout on 401 when a
// session is configured.
func (s *State) classify(ctx context.Context, err error) client.Category {
	if s.session != nil {
		return s.session.HandleError(ctx, err)
	}
	category := client.Classify(err)
	s.logger.Error(err, "form action failed", "category", category.String())
	return category
}

func (s *State) present(ctx context.Context, msg feedback.Message) {
	if s.presenter != nil {
		s.presenter.Present(ctx, msg)
	}
}
