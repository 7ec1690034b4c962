package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value holds a field value. Most kinds carry a scalar string; multi-valued
// selects carry an ordered list. The zero Value is null (absent).
type Value struct {
	scalar string
	list   []string
	multi  bool
	set    bool
}

// String returns a scalar Value.
func String(s string) Value {
	return Value{scalar: s, set: true}
}

// List returns a multi-valued Value.
func List(items ...string) Value {
	return Value{list: append([]string(nil), items...), multi: true, set: true}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return !v.set
}

// IsMulti reports whether the value is a list.
func (v Value) IsMulti() bool {
	return v.multi
}

// String returns the scalar form. Lists are comma-joined, matching how
// repeated form controls serialise.
func (v Value) String() string {
	if v.multi {
		return strings.Join(v.list, ",")
	}
	return v.scalar
}

// Strings returns the list form. Scalars yield a one-element slice, null
// yields nil.
func (v Value) Strings() []string {
	if !v.set {
		return nil
	}
	if v.multi {
		return append([]string(nil), v.list...)
	}
	return []string{v.scalar}
}

// Equal compares two values by shape and contents.
func (v Value) Equal(other Value) bool {
	if v.set != other.set || v.multi != other.multi {
		return false
	}
	if !v.multi {
		return v.scalar == other.scalar
	}
	if len(v.list) != len(other.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != other.list[i] {
			return false
		}
	}
	return true
}

// Blank returns an empty value of the same shape. Null stays null.
func (v Value) Blank() Value {
	switch {
	case !v.set:
		return v
	case v.multi:
		return List()
	default:
		return String("")
	}
}

// Any returns the value as a plain Go value suitable for templates and
// expression environments.
func (v Value) Any() any {
	switch {
	case !v.set:
		return nil
	case v.multi:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item
		}
		return out
	default:
		return v.scalar
	}
}

// MarshalJSON encodes null, a string, or an array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.set:
		return []byte("null"), nil
	case v.multi:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.scalar)
	}
}

// UnmarshalJSON accepts null, strings, numbers, booleans and arrays. Array
// entries may be strings or option objects carrying an `item` or `value` key.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("block: decode value: %w", err)
		}
		*v = String(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("block: decode value list: %w", err)
		}
		items := make([]string, 0, len(raw))
		for _, entry := range raw {
			item, err := listEntry(entry)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		*v = List(items...)
		return nil
	case '{':
		item, err := listEntry(trimmed)
		if err != nil {
			return err
		}
		*v = String(item)
		return nil
	default:
		*v = String(string(trimmed))
		return nil
	}
}

func listEntry(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("block: decode value entry: %w", err)
		}
		return s, nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", fmt.Errorf("block: decode value entry: %w", err)
		}
		for _, key := range []string{"item", "value", "id"} {
			if val, ok := obj[key]; ok && val != nil {
				return fmt.Sprint(val), nil
			}
		}
		return "", nil
	default:
		if bytes.Equal(trimmed, []byte("null")) {
			return "", nil
		}
		return string(trimmed), nil
	}
}

// ValueOf converts a loosely typed value (as decoded from JSON into any) into
// a Value.
func ValueOf(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case string:
		return String(v)
	case []string:
		return List(v...)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				items = append(items, "")
				continue
			}
			if obj, ok := item.(map[string]any); ok {
				if val, ok := obj["item"]; ok {
					items = append(items, fmt.Sprint(val))
					continue
				}
			}
			items = append(items, fmt.Sprint(item))
		}
		return List(items...)
	case float64:
		return String(formatNumber(v))
	case bool:
		if v {
			return String("true")
		}
		return String("false")
	default:
		return String(fmt.Sprint(v))
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(f)
}
