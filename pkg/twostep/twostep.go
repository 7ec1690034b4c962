// Package twostep is the second-factor step of the anonymous login: after
// the credentials are accepted the backend may require a code before the
// session is considered authenticated.
package twostep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/feedback"
)

// Status is the state of a Flow.
type Status int

const (
	CredentialsSubmitted Status = iota
	AwaitingCode
	Verified
	Failed
)

func (s Status) String() string {
	switch s {
	case CredentialsSubmitted:
		return "credentials_submitted"
	case AwaitingCode:
		return "awaiting_code"
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message keys used by the flow.
const (
	MessagePrompt        = "login.twostepverificationcode"
	MessageIncorrectCode = "error.incorrectvalidationcode"
)

var (
	// ErrIncorrectCode wraps a rejected verification code.
	ErrIncorrectCode = errors.New("twostep: incorrect validation code")
	// ErrNotAwaitingCode is returned by Verify outside the code step.
	ErrNotAwaitingCode = errors.New("twostep: no code requested")
	// ErrNoCode is returned when the prompt produced no code.
	ErrNoCode = errors.New("twostep: no code entered")
)

// CodePrompter asks the user for the verification code.
type CodePrompter interface {
	PromptCode(ctx context.Context) (string, error)
}

// CodePrompterFunc adapts a function to CodePrompter.
type CodePrompterFunc func(ctx context.Context) (string, error)

// PromptCode implements CodePrompter.
func (f CodePrompterFunc) PromptCode(ctx context.Context) (string, error) {
	return f(ctx)
}

// Option configures a Flow.
type Option func(*Flow)

// WithPresenter sets where the incorrect code message goes.
func WithPresenter(p feedback.Presenter) Option {
	return func(f *Flow) {
		f.presenter = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// authData is the data object of a login reply.
type authData struct {
	Auth      string `json:"auth"`
	SessionID string `json:"sessionID"`
	V2FA      string `json:"v2fa"`
}

// Flow tracks one login attempt. Credentials are stored only once the flow
// reaches Verified.
type Flow struct {
	client      *client.Client
	fingerprint string
	presenter   feedback.Presenter
	logger      logr.Logger

	mu     sync.Mutex
	status Status
	raw    json.RawMessage
	data   authData
}

// New returns a Flow for the device identified by fingerprint.
func New(c *client.Client, fingerprint string, opts ...Option) *Flow {
	f := &Flow{client: c, fingerprint: fingerprint, logger: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Status returns the current state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Begin consumes the login reply body. A data.v2fa of "true" moves the flow
// to AwaitingCode; any other value verifies it immediately.
func (f *Flow) Begin(ctx context.Context, body json.RawMessage) (Status, error) {
	var reply struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return f.fail(fmt.Errorf("twostep: decode login reply: %w", err))
	}
	var data authData
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, &data); err != nil {
			return f.fail(fmt.Errorf("twostep: decode login data: %w", err))
		}
	}

	f.mu.Lock()
	f.raw = reply.Data
	f.data = data
	f.status = CredentialsSubmitted
	f.mu.Unlock()

	if strings.EqualFold(data.V2FA, "true") {
		f.set(AwaitingCode)
		return AwaitingCode, nil
	}
	return f.verified(ctx)
}

// Verify submits code. It is accepted while AwaitingCode or after a
// rejected code. A rejection moves the flow to Failed.
func (f *Flow) Verify(ctx context.Context, code string) (Status, error) {
	f.mu.Lock()
	status, raw := f.status, f.raw
	f.mu.Unlock()
	if status != AwaitingCode && status != Failed {
		return status, ErrNotAwaitingCode
	}

	if err := f.client.AuthTwoStep(ctx, raw, f.fingerprint, strings.TrimSpace(code)); err != nil {
		if f.presenter != nil {
			f.presenter.Present(ctx, feedback.Error(MessageIncorrectCode))
		}
		return f.fail(fmt.Errorf("%w: %w", ErrIncorrectCode, err))
	}
	return f.verified(ctx)
}

// Run drives the whole flow: Begin with the login reply and, when a code is
// required, ask prompter and Verify it.
func (f *Flow) Run(ctx context.Context, body json.RawMessage, prompter CodePrompter) (Status, error) {
	status, err := f.Begin(ctx, body)
	if err != nil || status != AwaitingCode {
		return status, err
	}
	if prompter == nil {
		return f.fail(ErrNoCode)
	}
	code, err := prompter.PromptCode(ctx)
	if err != nil {
		return f.fail(fmt.Errorf("twostep: prompt: %w", err))
	}
	if strings.TrimSpace(code) == "" {
		return f.fail(ErrNoCode)
	}
	return f.Verify(ctx, code)
}

func (f *Flow) verified(ctx context.Context) (Status, error) {
	f.mu.Lock()
	data := f.data
	f.mu.Unlock()

	if data.Auth != "" {
		if err := f.client.Store().SetCredentials(ctx, data.Auth, data.SessionID); err != nil {
			return f.fail(fmt.Errorf("twostep: store credentials: %w", err))
		}
	}
	f.set(Verified)
	f.logger.V(1).Info("login verified")
	return Verified, nil
}

func (f *Flow) fail(err error) (Status, error) {
	f.set(Failed)
	f.logger.Error(err, "login step failed")
	return Failed, err
}

func (f *Flow) set(status Status) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}
