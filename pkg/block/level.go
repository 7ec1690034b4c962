package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level is the canonical numeric permission level. Lower values are more
// privileged: 1 is super-administrator, 2 administrator. The backend sends
// levels as numbers or numeric strings; both decode to the same Level.
type Level int

const (
	// LevelNone is used when a level is absent or cannot be parsed.
	LevelNone Level = 0
	// LevelSuperAdmin and LevelAdmin are the privileged levels hidden from
	// non-admin viewers.
	LevelSuperAdmin Level = 1
	LevelAdmin      Level = 2
	// LevelUser is the first non-privileged level.
	LevelUser Level = 3
)

// ParseLevel coerces strings, integers and floats into a Level. The boolean
// result is false when the input is empty or not numeric.
func ParseLevel(raw any) (Level, bool) {
	switch v := raw.(type) {
	case nil:
		return LevelNone, false
	case Level:
		return v, true
	case int:
		return Level(v), true
	case int64:
		return Level(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return LevelNone, false
		}
		return Level(int(v)), true
	case json.Number:
		return ParseLevel(string(v))
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return LevelNone, false
		}
		if n, err := strconv.Atoi(trimmed); err == nil {
			return Level(n), true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return ParseLevel(f)
		}
		return LevelNone, false
	default:
		return ParseLevel(fmt.Sprint(v))
	}
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (l *Level) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = LevelNone
		return nil
	}
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("block: decode level: %w", err)
	}
	level, _ := ParseLevel(raw)
	*l = level
	return nil
}

func (l Level) String() string {
	return strconv.Itoa(int(l))
}
