package store

import (
	"context"
	"strings"
)

const (
	fieldErrorPrefix = "errors"
	formPrefix       = "form:"
	// ErrorFlag marks a field that failed validation.
	ErrorFlag = "errorfoundfield"
)

// FieldErrorKey is the key flagging name's validation state.
func FieldErrorKey(name string) string {
	return fieldErrorPrefix + name
}

// ConfirmationErrorKey is the key flagging the confirmation input paired
// with a password field.
func ConfirmationErrorKey(name string) string {
	return fieldErrorPrefix + name + "100"
}

// flagKey places key under the form carried by ctx, if any.
func flagKey(ctx context.Context, key string) string {
	if form := FormFrom(ctx); form != "" {
		return formPrefix + form + ":" + key
	}
	return key
}

// SetFieldError raises or clears name's error flag.
func (s *Store) SetFieldError(ctx context.Context, name string, failed bool) error {
	return s.setFlag(ctx, FieldErrorKey(name), failed)
}

// SetConfirmationError raises or clears the confirmation error flag.
func (s *Store) SetConfirmationError(ctx context.Context, name string, failed bool) error {
	return s.setFlag(ctx, ConfirmationErrorKey(name), failed)
}

// ClearFieldErrors drops the field and confirmation flags of names.
func (s *Store) ClearFieldErrors(ctx context.Context, names ...string) error {
	keys := make([]string, 0, 2*len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		keys = append(keys, flagKey(ctx, FieldErrorKey(name)), flagKey(ctx, ConfirmationErrorKey(name)))
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Delete(ctx, keys...)
}

func (s *Store) setFlag(ctx context.Context, key string, failed bool) error {
	key = flagKey(ctx, key)
	if failed {
		return s.Set(ctx, key, ErrorFlag)
	}
	return s.Delete(ctx, key)
}

// HasBlockingErrors reports whether a field error flag is raised. With
// names it checks only their flags; without, every flag of the current form
// (or of no form) in the current scope.
func (s *Store) HasBlockingErrors(ctx context.Context, names ...string) (bool, error) {
	backend := s.backendFor(ctx)
	if len(names) > 0 {
		for _, name := range names {
			for _, key := range []string{FieldErrorKey(name), ConfirmationErrorKey(name)} {
				value, _, err := backend.Get(ctx, flagKey(ctx, key))
				if err != nil {
					return false, err
				}
				if value == ErrorFlag {
					return true, nil
				}
			}
		}
		return false, nil
	}

	keys, err := backend.Keys(ctx)
	if err != nil {
		return false, err
	}
	prefix := flagKey(ctx, fieldErrorPrefix)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		value, _, err := backend.Get(ctx, key)
		if err != nil {
			return false, err
		}
		if value == ErrorFlag {
			return true, nil
		}
	}
	return false, nil
}
