package render

// RenderOptions carry per-request data for field rendering: the locale and
// translator used for labels, and the current value map.
type RenderOptions struct {
	Locale     string
	Translator Translator
	// OnMissing decides the text shown when a key has no translation.
	// Defaults to the fallback text, or the key itself.
	OnMissing MissingTranslationHandler
}
