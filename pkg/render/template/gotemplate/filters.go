package gotemplate

import (
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
)

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("classes") {
		_ = pongo2.RegisterFilter("classes", filterClasses)
	}
	if !pongo2.FilterExists("headingtag") {
		_ = pongo2.RegisterFilter("headingtag", filterHeadingTag)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterClasses appends param to the class list in and collapses
// whitespace: {{ "form-group"|classes:field.ref }}.
func filterClasses(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	parts := strings.Fields(in.String())
	if param != nil && !param.IsNil() {
		if param.CanSlice() && !param.IsString() {
			for i := 0; i < param.Len(); i++ {
				parts = append(parts, strings.Fields(param.Index(i).String())...)
			}
		} else {
			parts = append(parts, strings.Fields(param.String())...)
		}
	}
	return pongo2.AsValue(strings.Join(parts, " ")), nil
}

// filterHeadingTag maps a heading size to h1..h6, defaulting to h1.
func filterHeadingTag(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	size := 0
	switch {
	case in.IsInteger():
		size = in.Integer()
	case in.IsFloat():
		size = int(in.Float())
	default:
		if n, err := strconv.Atoi(strings.TrimSpace(in.String())); err == nil {
			size = n
		}
	}
	if size < 1 || size > 6 {
		size = 1
	}
	return pongo2.AsValue("h" + strconv.Itoa(size)), nil
}
