package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrMissingTranslation is returned by Catalog when neither the locale nor
// the fallback locale defines a key.
var ErrMissingTranslation = errors.New("render: missing translation")

// Catalog is a Translator backed by nested YAML message trees, one per
// locale. Nested maps flatten into dotted keys, so
//
//	login:
//	  unknown_error: Unknown error
//
// resolves "login.unknown_error". Messages containing fmt verbs are
// formatted with the call arguments.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
}

// NewCatalog returns an empty catalog. fallbackLocale is consulted when a
// locale lacks a key.
func NewCatalog(fallbackLocale string) *Catalog {
	return &Catalog{
		fallback: normalizeLocale(fallbackLocale),
		messages: make(map[string]map[string]string),
	}
}

// Load merges YAML messages for locale from r.
func (c *Catalog) Load(locale string, r io.Reader) error {
	var tree map[string]any
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("render: decode catalog %q: %w", locale, err)
	}
	c.Add(locale, flattenMessages("", tree))
	return nil
}

// LoadFile merges messages for locale from a YAML file.
func (c *Catalog) LoadFile(locale, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("render: open catalog: %w", err)
	}
	defer f.Close()
	return c.Load(locale, f)
}

// Add merges flat key/message pairs for locale.
func (c *Catalog) Add(locale string, messages map[string]string) {
	locale = normalizeLocale(locale)

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := c.messages[locale]
	if bucket == nil {
		bucket = make(map[string]string, len(messages))
		c.messages[locale] = bucket
	}
	for key, msg := range messages {
		if key = strings.TrimSpace(key); key != "" {
			bucket[key] = msg
		}
	}
}

// Locales returns the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Translate implements Translator.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	if c == nil {
		return "", ErrMissingTranslator
	}
	c.mu.RLock()
	msg, ok := c.lookup(normalizeLocale(locale), key)
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		return fmt.Sprintf(msg, args...), nil
	}
	return msg, nil
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	candidates := []string{locale}
	if base, _, found := strings.Cut(locale, "-"); found {
		candidates = append(candidates, base)
	}
	if c.fallback != "" {
		candidates = append(candidates, c.fallback)
	}
	for _, candidate := range candidates {
		if msg, ok := c.messages[candidate][key]; ok {
			return msg, true
		}
	}
	return "", false
}

func flattenMessages(prefix string, tree map[string]any) map[string]string {
	out := make(map[string]string)
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			for k, msg := range flattenMessages(full, v) {
				out[k] = msg
			}
		case nil:
			out[full] = ""
		default:
			out[full] = fmt.Sprint(v)
		}
	}
	return out
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}
