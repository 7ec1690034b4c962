package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/block"
)

// ErrorMapping splits a backend error payload into per-field and form-level
// messages. Field keys are block names.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// For returns the first message recorded for a field.
func (m ErrorMapping) For(name string) string {
	if msgs := m.Fields[strings.TrimSpace(name)]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload assigns error messages to the blocks they name. Paths may
// be plain names, dotted or slash separated (`body.email`, `/data/0/email`),
// or JSON pointers; wrapper segments and array indexes are skipped. Paths
// that do not resolve to a block become form-level messages.
func MapErrorPayload(blocks []block.Block, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		return mapping
	}

	names := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if key := b.Key(); key != "" {
			names[key] = struct{}{}
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		name, ok := resolveErrorPath(rawPath, names)
		if !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[name] = append(mapping.Fields[name], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveErrorPath(raw string, names map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	if _, ok := names[trimmed]; ok {
		return trimmed, true
	}

	for _, segment := range parsePathSegments(trimmed) {
		if isWrapperSegment(segment) {
			continue
		}
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		if _, ok := names[segment]; ok {
			return segment, true
		}
		return "", false
	}
	return "", false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimLeft(clean, "#/.$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func isWrapperSegment(segment string) bool {
	switch strings.ToLower(segment) {
	case "body", "request", "payload", "data", "values":
		return true
	default:
		return false
	}
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
