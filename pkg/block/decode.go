package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
)

// ErrInvalidConfig reports a configuration payload that is neither an array
// of blocks, a string wrapping one, nor a content envelope.
var ErrInvalidConfig = errors.New("block: invalid configuration payload")

// Decode parses a form configuration. It accepts a JSON array of blocks, a
// JSON string whose contents are such an array (HTML entities unescaped), or
// a `{"content":{"body":[...]}}` envelope. Empty input and null decode to an
// empty slice.
func Decode(raw []byte) ([]Block, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var wrapped string
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("block: decode wrapped config: %w", err)
		}
		return DecodeString(wrapped)
	case '[':
		var blocks []Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, fmt.Errorf("block: decode config: %w", err)
		}
		return blocks, nil
	case '{':
		var envelope struct {
			Content struct {
				Body json.RawMessage `json:"body"`
			} `json:"content"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("block: decode envelope: %w", err)
		}
		if len(envelope.Content.Body) == 0 {
			return nil, ErrInvalidConfig
		}
		return Decode(envelope.Content.Body)
	default:
		return nil, ErrInvalidConfig
	}
}

// DecodeString parses a configuration carried as text, unescaping HTML
// entities first.
func DecodeString(s string) ([]Block, error) {
	unescaped := strings.TrimSpace(html.UnescapeString(s))
	if unescaped == "" {
		return nil, nil
	}
	if unescaped[0] == '"' {
		return nil, ErrInvalidConfig
	}
	return Decode([]byte(unescaped))
}

type wireBlock struct {
	Component        string     `json:"component"`
	Type             string     `json:"type"`
	Name             string     `json:"name"`
	ID               flexString `json:"id"`
	Label            string     `json:"label"`
	Placeholder      string     `json:"placeholder"`
	Value            Value      `json:"value"`
	ClassName        string     `json:"className"`
	Style            string     `json:"style"`
	Autocomplete     string     `json:"autocomplete"`
	Permission       Level      `json:"permission"`
	PermissionStatus Level      `json:"permissionstatus"`
	Items            []wireItem `json:"items"`
	Validate         *wireRules `json:"validate"`
	Referred         flexBool   `json:"referred"`
	Ref              stringList `json:"ref"`
	Headline         string     `json:"headline"`
	Size             flexInt    `json:"size"`
	Text             string     `json:"text"`
	TextHTML         string     `json:"texthtml"`
	Variant          string     `json:"variant"`
	Severity         string     `json:"severity"`
	Color            string     `json:"color"`
	URLImage         string     `json:"urlimage"`
	ClassNameButton  string     `json:"classNameButton"`
	VisibleWhen      string     `json:"visibleWhen"`
	URL              string     `json:"url"`
	ItemKey          string     `json:"itemKey"`
	TextItemKey      string     `json:"textitemKey"`

	// Flat validation keys as sent by the backend.
	Required     *flexBool `json:"required"`
	ValidateType *string   `json:"validatetype"`
	Check        *string   `json:"check"`
	MinLength    *flexInt  `json:"minlength"`
	MaxLength    *flexInt  `json:"maxlength"`
	Pattern      *string   `json:"pattern"`
}

type wireRules struct {
	Required  flexBool `json:"required"`
	Type      string   `json:"type"`
	Check     string   `json:"check"`
	MinLength flexInt  `json:"minLength"`
	MaxLength flexInt  `json:"maxLength"`
	Pattern   string   `json:"pattern"`
	Error     string   `json:"error"`
}

type wireItem struct {
	Item     flexString `json:"item"`
	TextItem flexString `json:"textitem"`
}

// UnmarshalJSON decodes the backend block shape, merging flat validation keys
// over the nested `validate` record and filling id/name from each other.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("block: decode block: %w", err)
	}

	out := Block{
		Component:        ParseKind(w.Component),
		Type:             strings.TrimSpace(w.Type),
		Name:             strings.TrimSpace(w.Name),
		ID:               strings.TrimSpace(string(w.ID)),
		Label:            w.Label,
		Placeholder:      w.Placeholder,
		Value:            w.Value,
		ClassName:        w.ClassName,
		Style:            w.Style,
		Autocomplete:     w.Autocomplete,
		Permission:       w.Permission,
		PermissionStatus: w.PermissionStatus,
		Referred:         bool(w.Referred),
		Ref:              []string(w.Ref),
		Headline:         w.Headline,
		Size:             int(w.Size),
		Text:             w.Text,
		TextHTML:         w.TextHTML,
		Variant:          w.Variant,
		Severity:         w.Severity,
		Color:            w.Color,
		URLImage:         w.URLImage,
		ClassNameButton:  w.ClassNameButton,
		VisibleWhen:      strings.TrimSpace(w.VisibleWhen),
		URL:              strings.TrimSpace(w.URL),
		ItemKey:          strings.TrimSpace(w.ItemKey),
		TextItemKey:      strings.TrimSpace(w.TextItemKey),
	}

	if len(w.Items) > 0 {
		out.Items = make([]Item, 0, len(w.Items))
		for _, item := range w.Items {
			out.Items = append(out.Items, Item{Item: string(item.Item), TextItem: string(item.TextItem)})
		}
	}

	if w.Validate != nil {
		out.Validate = Validate{
			Required:  bool(w.Validate.Required),
			Type:      strings.TrimSpace(w.Validate.Type),
			Check:     strings.TrimSpace(w.Validate.Check),
			MinLength: int(w.Validate.MinLength),
			MaxLength: int(w.Validate.MaxLength),
			Pattern:   w.Validate.Pattern,
			Error:     w.Validate.Error,
		}
	}
	if w.Required != nil {
		out.Validate.Required = bool(*w.Required)
	}
	if w.ValidateType != nil {
		out.Validate.Type = strings.TrimSpace(*w.ValidateType)
	}
	if w.Check != nil {
		out.Validate.Check = strings.TrimSpace(*w.Check)
	}
	if w.MinLength != nil {
		out.Validate.MinLength = int(*w.MinLength)
	}
	if w.MaxLength != nil {
		out.Validate.MaxLength = int(*w.MaxLength)
	}
	if w.Pattern != nil {
		out.Validate.Pattern = *w.Pattern
	}

	if out.ID == "" {
		out.ID = out.Name
	}
	if out.Name == "" {
		out.Name = out.ID
	}

	*b = out
	return nil
}

// flexBool decodes true/false and their string spellings.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch strings.ToLower(strings.Trim(trimmed, `"`)) {
	case "true", "1", "yes", "on":
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexInt decodes numbers and numeric strings; anything else is zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		*f = flexInt(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(trimmed, 64); err == nil {
		*f = flexInt(int(fl))
		return nil
	}
	*f = 0
	return nil
}

// flexString decodes strings and bare scalars into their textual form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

// stringList decodes an array of strings or a single space or comma
// separated string.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	if trimmed[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if v := strings.TrimSpace(string(item)); v != "" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	}
	var single flexString
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*s = strings.FieldsFunc(string(single), func(r rune) bool {
		return r == ',' || r == ' '
	})
	return nil
}
