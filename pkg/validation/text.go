package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/render"
)

// ErrUnauthorized is returned alongside an Issue when a uniqueness check
// answered 401. Callers force a logout.
var ErrUnauthorized = errors.New("validation: unauthorized")

// Uniqueness check kinds carried in validate.check.
const (
	CheckEmail    = "email"
	CheckUsername = "username"
)

// Value type discriminators carried in validate.type.
const (
	TypeNumber = "number"
	TypeString = "string"
	TypeEmail  = "email"
	TypeURL    = "url"
)

var (
	emailPattern = regexp.MustCompile(`^(([^<>()[\]\\.,;:\s@"]+(\.[^<>()[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)
	urlPattern   = regexp.MustCompile(`^(?:http(s)?://)?[\w.-]+(?:\.[\w.-]+)+[\w\-._~:/?#[\]@!$&'()*+,;=.]+$`)
)

// Issue is a single validation failure.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Checker answers the backend uniqueness checks. *client.Client satisfies
// it.
type Checker interface {
	CheckUsername(ctx context.Context, username string) (bool, error)
	CheckMail(ctx context.Context, email string) (bool, error)
}

// Text validates a text input value. Checks run in order and the first
// failure wins: uniqueness, minimum length, maximum length, forbidden
// pattern, value type, required. When a value type is set the required
// check does not run. A pattern's configured error is shown as written.
// A nil Issue means the value passed.
func Text(ctx context.Context, b block.Block, value string, checker Checker, opts render.RenderOptions) (*Issue, error) {
	rules := b.Validate
	field := b.Key()
	issue := func(key, message string) *Issue {
		return &Issue{Field: field, Key: key, Message: message}
	}

	if checker != nil {
		var (
			ok       bool
			err      error
			failKey  string
			checking = true
		)
		switch rules.Check {
		case CheckEmail:
			ok, err = checker.CheckMail(ctx, value)
			failKey = "error.email_already_exists"
		case CheckUsername:
			ok, err = checker.CheckUsername(ctx, value)
			failKey = "error.username_is_not_valid"
		default:
			checking = false
		}
		if checking {
			if err != nil {
				key := checkFailureKey(err)
				found := issue(key, opts.T(key))
				if client.IsUnauthorized(err) {
					return found, fmt.Errorf("%w: %w", ErrUnauthorized, err)
				}
				return found, nil
			}
			if !ok {
				return issue(failKey, opts.T(failKey)), nil
			}
		}
	}

	length := utf8.RuneCountInString(value)
	switch {
	case rules.MinLength > 0 && length < rules.MinLength:
		return issue("error.must_least", lengthMessage(opts, "error.must_least", rules.MinLength)), nil
	case rules.MaxLength > 0 && length > rules.MaxLength:
		return issue("error.must_maxim", lengthMessage(opts, "error.must_maxim", rules.MaxLength)), nil
	}

	if rules.Pattern != "" {
		re, err := compilePattern(rules.Pattern)
		if err != nil {
			return nil, err
		}
		if re.MatchString(value) {
			if rules.Error != "" {
				return issue(rules.Error, rules.Error), nil
			}
			return issue("error.invalid_value", opts.T("error.invalid_value")), nil
		}
	}

	if rules.Type != "" {
		var failed bool
		var key string
		switch rules.Type {
		case TypeNumber:
			failed, key = !IsNumeric(value), "error.numerical_value"
		case TypeString:
			failed, key = IsNumeric(value), "error.be_a_text"
		case TypeEmail:
			failed, key = !emailPattern.MatchString(value), "error.enter_email_address"
		case TypeURL:
			failed, key = !urlPattern.MatchString(value), "error.enter_URL"
		}
		if failed {
			return issue(key, opts.T(key)), nil
		}
		return nil, nil
	}

	if rules.Required && value == "" {
		return issue("error.field_required", opts.T("error.field_required")), nil
	}
	return nil, nil
}

// checkFailureKey maps a failed uniqueness check to its message. Transport
// failures share the unknown error text.
func checkFailureKey(err error) string {
	switch client.Classify(err) {
	case client.CategoryBadRequest, client.CategoryUnauthorized, client.CategoryForbidden:
		return client.Classify(err).MessageKey()
	default:
		return client.CategoryUnknown.MessageKey()
	}
}

func lengthMessage(opts render.RenderOptions, key string, n int) string {
	return opts.T(key) + strconv.Itoa(n) + " " + opts.T("error.characters")
}

// compilePattern accepts a bare expression or a /body/flags literal with
// the i, m and s flags.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	expr := pattern
	if len(expr) > 1 && expr[0] == '/' {
		if last := strings.LastIndex(expr, "/"); last > 0 {
			body, flags := expr[1:last], expr[last+1:]
			var prefix string
			for _, flag := range "ims" {
				if strings.ContainsRune(flags, flag) {
					prefix += string(flag)
				}
			}
			if prefix != "" {
				body = "(?" + prefix + ")" + body
			}
			expr = body
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validation: compile pattern %q: %w", pattern, err)
	}
	return re, nil
}

// IsNumeric reports whether s converts to a number the way the browser's
// Number() does: surrounding whitespace is ignored, the empty string is
// zero, hex/octal/binary literals and Infinity are accepted.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	switch s {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			_, err := strconv.ParseUint(s[2:], base, 64)
			return err == nil || errors.Is(err, strconv.ErrRange)
		}
	}
	if strings.ContainsAny(s, "_xXpPnNiI") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}
