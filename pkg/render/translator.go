package render

import (
	"errors"
	"strings"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves localized messages by key.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler returns the text used when key cannot be
// translated. params carries the call arguments; a trailing
// map[string]any{"default": ...} holds the fallback text when one exists.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

func missingTranslationDefault(_ string, key string, params []any, _ error) string {
	for i := len(params) - 1; i >= 0; i-- {
		if m, ok := params[i].(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}

// Translate resolves key through opts, falling back to fallback and then to
// the key itself. Keys are trimmed; an empty key returns fallback.
func (opts RenderOptions) Translate(key, fallback string, args ...any) string {
	return translate(opts.Locale, key, fallback, opts.Translator, opts.OnMissing, args...)
}

// T translates key using the key as its own fallback. Backend labels are
// usually translation keys, so this is the common call.
func (opts RenderOptions) T(key string, args ...any) string {
	return opts.Translate(key, "", args...)
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	params := append(append([]any(nil), args...), map[string]any{"default": fallback})

	if t == nil {
		return onMissing(locale, key, params, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, params, err)
}
