// Package feedback carries user-facing success and error messages from
// form actions to whatever surface presents them.
package feedback

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
)

// Kind distinguishes success messages from errors.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Message is one user-facing notice. Key is a translation key; Text, when
// set, is shown as is.
type Message struct {
	Kind Kind
	Key  string
	Text string
}

// Success returns a success message with literal text.
func Success(text string) Message {
	return Message{Kind: KindSuccess, Text: text}
}

// Error returns an error message for a translation key.
func Error(key string) Message {
	return Message{Kind: KindError, Key: key}
}

// Presenter shows messages to the user.
type Presenter interface {
	Present(ctx context.Context, msg Message)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, msg Message)

// Present implements Presenter.
func (f PresenterFunc) Present(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Log presents messages by logging them.
func Log(logger logr.Logger) Presenter {
	return PresenterFunc(func(_ context.Context, msg Message) {
		if msg.Kind == KindError {
			logger.Info("form action failed", "key", msg.Key, "text", msg.Text)
			return
		}
		logger.Info("form action succeeded", "key", msg.Key, "text", msg.Text)
	})
}

// Recorder keeps presented messages so a request handler can render them.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Present implements Presenter.
func (r *Recorder) Present(_ context.Context, msg Message) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset drops recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}

// Multi fans a message out to every presenter.
func Multi(presenters ...Presenter) Presenter {
	return PresenterFunc(func(ctx context.Context, msg Message) {
		for _, p := range presenters {
			if p != nil {
				p.Present(ctx, msg)
			}
		}
	})
}
