package render

import (
	"fmt"
	"sort"
	"strings"
)

// Hidden input names the assembler emits alongside the visible fields.
const (
	HiddenItemID      = "iditem"
	HiddenFingerprint = "fingerprint"
	HiddenFormName    = "formname"
)

// HiddenField is a hidden input rendered inside the form element.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// ItemIDField carries the identifier of the record being edited.
func ItemIDField(id string) HiddenField {
	return Hidden(HiddenItemID, id)
}

// FingerprintField carries the device fingerprint so plain HTML posts can
// be attributed without client script.
func FingerprintField(hash string) HiddenField {
	return Hidden(HiddenFingerprint, hash)
}

// FormNameField carries the configuration name the form was built from.
func FormNameField(name string) HiddenField {
	return Hidden(HiddenFormName, name)
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields sorts hidden fields by name for deterministic output.
// Empty names are dropped.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return result
}

// IsReservedHidden reports whether name is one of the assembler's own hidden
// inputs. Submission serialisation leaves them out of the value map.
func IsReservedHidden(name string) bool {
	switch strings.TrimSpace(name) {
	case HiddenItemID, HiddenFingerprint, HiddenFormName:
		return true
	default:
		return false
	}
}
