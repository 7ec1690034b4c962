package store

import (
	"context"
	"strings"
)

// scopePrefix namespaces the keys of scoped sessions inside the backend.
const scopePrefix = "scope:"

type (
	scopeKey struct{}
	formKey  struct{}
)

// WithScope returns a context whose store calls read and write the keys of
// session id only. Servers derive one scope per visitor so credentials,
// profiles and error flags never cross between them. An empty id leaves
// ctx unscoped.
func WithScope(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, id)
}

// ScopeFrom returns the session scope carried by ctx.
func ScopeFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(scopeKey{}).(string)
	return id
}

// WithForm returns a context whose field error flags belong to form.
func WithForm(ctx context.Context, form string) context.Context {
	form = strings.TrimSpace(form)
	if form == "" {
		return ctx
	}
	return context.WithValue(ctx, formKey{}, form)
}

// FormFrom returns the form carried by ctx.
func FormFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	form, _ := ctx.Value(formKey{}).(string)
	return form
}

// backendFor resolves the backend view for ctx: the session's prefixed
// keys when scoped, otherwise the unscoped keys.
func (s *Store) backendFor(ctx context.Context) Backend {
	if id := ScopeFrom(ctx); id != "" {
		return WithPrefix(s.backend, scopePrefix+id+":")
	}
	return unscoped{s.backend}
}

// unscoped hides scoped sessions from key listings, so Clear and flag scans
// outside a scope never reach a visitor's keys.
type unscoped struct {
	Backend
}

func (u unscoped) Keys(ctx context.Context) ([]string, error) {
	all, err := u.Backend.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, key := range all {
		if !strings.HasPrefix(key, scopePrefix) {
			out = append(out, key)
		}
	}
	return out, nil
}
