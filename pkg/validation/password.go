package validation

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// PasswordResult holds the issues of the primary input and its
// confirmation.
type PasswordResult struct {
	Primary      *Issue `json:"primary,omitempty"`
	Confirmation *Issue `json:"confirmation,omitempty"`
}

// Valid reports whether both inputs passed.
func (r PasswordResult) Valid() bool {
	return r.Primary == nil && r.Confirmation == nil
}

// Password validates a password pair. Each input is checked for required,
// minimum and maximum length; the confirmation must also equal the
// primary value.
func Password(b block.Block, password, confirmation string, opts render.RenderOptions) PasswordResult {
	rules := b.Validate
	var result PasswordResult

	if key, msg := passwordRule(rules, password, "error.please_enter_password", opts); key != "" {
		result.Primary = &Issue{Field: b.Key(), Key: key, Message: msg}
	}

	key, msg := passwordRule(rules, confirmation, "error.repeat_password", opts)
	if key == "" && confirmation != password {
		key = "error.password_not_match"
		msg = opts.T(key)
	}
	if key != "" {
		result.Confirmation = &Issue{Field: b.ConfirmationName(), Key: key, Message: msg}
	}
	return result
}

func passwordRule(rules block.Validate, value, requiredKey string, opts render.RenderOptions) (string, string) {
	if value == "" {
		if rules.Required {
			return requiredKey, opts.T(requiredKey)
		}
		return "", ""
	}
	length := utf8.RuneCountInString(value)
	switch {
	case rules.MinLength > 0 && length < rules.MinLength:
		return "error.password_minimum", passwordLength(opts, "error.password_minimum", rules.MinLength)
	case rules.MaxLength > 0 && length > rules.MaxLength:
		return "error.password_maximum", passwordLength(opts, "error.password_maximum", rules.MaxLength)
	}
	return "", ""
}

func passwordLength(opts render.RenderOptions, key string, n int) string {
	return opts.T(key) + " " + strconv.Itoa(n) + " " + opts.T("characters")
}

// RecordText stores the error flag of a text input.
func RecordText(ctx context.Context, st *store.Store, b block.Block, issue *Issue) error {
	if err := st.SetFieldError(ctx, b.Key(), issue != nil); err != nil {
		return fmt.Errorf("validation: record %s: %w", b.Key(), err)
	}
	return nil
}

// RecordPassword stores the error flags of a password pair.
func RecordPassword(ctx context.Context, st *store.Store, b block.Block, result PasswordResult) error {
	if err := st.SetFieldError(ctx, b.Key(), result.Primary != nil); err != nil {
		return fmt.Errorf("validation: record %s: %w", b.Key(), err)
	}
	if err := st.SetConfirmationError(ctx, b.Key(), result.Confirmation != nil); err != nil {
		return fmt.Errorf("validation: record %s confirmation: %w", b.Key(), err)
	}
	return nil
}
