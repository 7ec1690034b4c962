package fields

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl templates/fields/*.tpl
var embeddedTemplates embed.FS

// Template names, relative to the template root.
const (
	FormTemplate   = "templates/form"
	BannerTemplate = "templates/banner"
	fieldPrefix    = "templates/fields/"
)

// TemplatesFS exposes the embedded templates so deployments can copy and
// override them with WithTemplatesDir.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
