package block

import "strings"

// Kind identifies which field renderer handles a block.
type Kind string

const (
	KindUnknown   Kind = ""
	KindHeading   Kind = "heading"
	KindInputText Kind = "inputtext"
	KindPassword  Kind = "inputpassword"
	KindCheckbox  Kind = "checkbox"
	KindSwitch    Kind = "switch"
	KindSelect    Kind = "select"
	KindRadio     Kind = "radiobutton"
	KindFile      Kind = "inputfile"
	KindRichText  Kind = "inputwysiwyg"
	KindText      Kind = "text"
	KindInfo      Kind = "info"
	KindImage     Kind = "image"
	KindButton    Kind = "button"
)

// Sub-kinds carried in Block.Type that change renderer or gate behaviour.
const (
	TypeHidden       = "hidden"
	TypePassword     = "password"
	TypePasswordNorm = "passwordnorm"
	TypeCreateSelect = "createselect"
)

var kinds = []Kind{
	KindHeading,
	KindInputText,
	KindPassword,
	KindCheckbox,
	KindSwitch,
	KindSelect,
	KindRadio,
	KindFile,
	KindRichText,
	KindText,
	KindInfo,
	KindImage,
	KindButton,
}

// Kinds returns the built-in field kinds in registration order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind normalises a component name. Unrecognised names yield
// KindUnknown.
func ParseKind(raw string) Kind {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate
	}
	return KindUnknown
}

// Valid reports whether k is one of the built-in kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindHeading, KindInputText, KindPassword, KindCheckbox, KindSwitch,
		KindSelect, KindRadio, KindFile, KindRichText, KindText, KindInfo,
		KindImage, KindButton:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}
