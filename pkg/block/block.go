package block

import (
	"strings"
)

// Item is a selectable option of a select or radio group.
type Item struct {
	Item     string `json:"item"`
	TextItem string `json:"textitem"`
}

// Validate groups the validation constraints of an input.
type Validate struct {
	Required  bool   `json:"required,omitempty"`
	Type      string `json:"type,omitempty"`
	Check     string `json:"check,omitempty"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IsZero reports whether no constraint is configured.
func (v Validate) IsZero() bool {
	return v == Validate{}
}

// Block is one field descriptor.
type Block struct {
	Component        Kind     `json:"component"`
	Type             string   `json:"type,omitempty"`
	Name             string   `json:"name,omitempty"`
	ID               string   `json:"id,omitempty"`
	Label            string   `json:"label,omitempty"`
	Placeholder      string   `json:"placeholder,omitempty"`
	Value            Value    `json:"value"`
	ClassName        string   `json:"className,omitempty"`
	Style            string   `json:"style,omitempty"`
	Autocomplete     string   `json:"autocomplete,omitempty"`
	Permission       Level    `json:"permission"`
	PermissionStatus Level    `json:"permissionstatus"`
	Items            []Item   `json:"items,omitempty"`
	Validate         Validate `json:"validate,omitempty"`
	Referred         bool     `json:"referred,omitempty"`

	// Ref lists the visibility tags that other fields toggle.
	Ref             []string `json:"ref,omitempty"`
	Headline        string   `json:"headline,omitempty"`
	Size            int      `json:"size,omitempty"`
	Text            string   `json:"text,omitempty"`
	TextHTML        string   `json:"texthtml,omitempty"`
	Variant         string   `json:"variant,omitempty"`
	Severity        string   `json:"severity,omitempty"`
	Color           string   `json:"color,omitempty"`
	URLImage        string   `json:"urlimage,omitempty"`
	ClassNameButton string   `json:"classNameButton,omitempty"`
	// VisibleWhen is an optional expression evaluated against current values.
	VisibleWhen string `json:"visibleWhen,omitempty"`

	// URL, ItemKey and TextItemKey describe a remote item source.
	URL         string `json:"url,omitempty"`
	ItemKey     string `json:"itemKey,omitempty"`
	TextItemKey string `json:"textitemKey,omitempty"`
}

// Key returns the identifier used in the value map: the name, or the id
// when the block is unnamed.
func (b Block) Key() string {
	if name := strings.TrimSpace(b.Name); name != "" {
		return name
	}
	return strings.TrimSpace(b.ID)
}

// IsHidden reports whether the block renders as a hidden input.
func (b Block) IsHidden() bool {
	return strings.EqualFold(b.Type, TypeHidden)
}

// IsMultiSelect reports whether a select accepts user-created, multiple
// values.
func (b Block) IsMultiSelect() bool {
	return b.Component == KindSelect && strings.EqualFold(b.Type, TypeCreateSelect)
}

// HasItemSource reports whether items must be fetched from a remote URL.
func (b Block) HasItemSource() bool {
	return strings.TrimSpace(b.URL) != ""
}

// ConfirmationName is the name of the confirmation input paired with a
// password block.
func (b Block) ConfirmationName() string {
	return b.Key() + "_confirmation"
}

// ConfirmationID is the DOM id of the confirmation input.
func (b Block) ConfirmationID() string {
	id := strings.TrimSpace(b.ID)
	if id == "" {
		id = b.Key()
	}
	return id + "100"
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	if b.Items != nil {
		out.Items = append([]Item(nil), b.Items...)
	}
	if b.Ref != nil {
		out.Ref = append([]string(nil), b.Ref...)
	}
	if b.Value.multi {
		out.Value = List(b.Value.list...)
	}
	return out
}

// Duplicates returns names that appear on more than one block, in the order
// the second occurrence is seen.
func Duplicates(blocks []Block) []string {
	seen := make(map[string]int, len(blocks))
	var dupes []string
	for _, b := range blocks {
		key := b.Key()
		if key == "" {
			continue
		}
		seen[key]++
		if seen[key] == 2 {
			dupes = append(dupes, key)
		}
	}
	return dupes
}
