package fields

// Mode is the rendering context of a form.
type Mode string

const (
	// ModeUser renders for a signed-in user.
	ModeUser Mode = "user"
	// ModeNoUser renders the anonymous and self-registration flows. Only
	// this mode shows password pairs.
	ModeNoUser Mode = "nouser"
)
