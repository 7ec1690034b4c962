// Package config loads the formblocks server and CLI configuration from a
// YAML file, an optional .env file and FORMBLOCKS_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/formstate"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMBLOCKS_"

var (
	// ErrMissingBackend is returned when no backend URL is configured.
	ErrMissingBackend = errors.New("config: backend url is required")
	// ErrInvalidForm wraps per-form configuration errors.
	ErrInvalidForm = errors.New("config: invalid form")
)

// Config is the root document.
type Config struct {
	Backend   Backend `yaml:"backend"`
	Server    Server  `yaml:"server"`
	Log       Log     `yaml:"log"`
	Redis     Redis   `yaml:"redis"`
	I18n      I18n    `yaml:"i18n"`
	Templates string  `yaml:"templates"`
	Forms     []Form  `yaml:"forms"`
}

// Backend locates the form API.
type Backend struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr        string `yaml:"addr"`
	MetricsPath string `yaml:"metricsPath"`
}

// Log mirrors logger.Config.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Redis enables the shared store when Addr is set.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// I18n lists the translation catalogs by locale.
type I18n struct {
	Fallback string            `yaml:"fallback"`
	Catalogs map[string]string `yaml:"catalogs"`
}

// Form declares one mounted form.
type Form struct {
	Name           string    `yaml:"name"`
	Route          string    `yaml:"route"`
	Variant        string    `yaml:"variant"`
	ConfigEndpoint string    `yaml:"configEndpoint"`
	ItemID         string    `yaml:"itemID"`
	Permission     bool      `yaml:"permission"`
	Show           string    `yaml:"show"`
	NoUser         bool      `yaml:"noUser"`
	SuccessMessage string    `yaml:"successMessage"`
	Multipart      bool      `yaml:"multipart"`
	Endpoints      Endpoints `yaml:"endpoints"`
	// Blocks is a JSON file with the descriptors of a config form.
	Blocks string `yaml:"blocks"`
	// TwoStep turns an anonymous form into a login with a verification
	// code step; Redirect is where a verified login goes and CodeTTL bounds
	// how long the code is awaited.
	TwoStep  bool          `yaml:"twoStep"`
	Redirect string        `yaml:"redirect"`
	CodeTTL  time.Duration `yaml:"codeTTL"`
	// PermissionStatus fixes the status of config forms; zero keeps the
	// default.
	PermissionStatus int `yaml:"permissionStatus"`
}

// Endpoints mirrors formstate.Endpoints.
type Endpoints struct {
	Get     string `yaml:"get"`
	Post    string `yaml:"post"`
	Delete  string `yaml:"delete"`
	Restore string `yaml:"restore"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend: Backend{Timeout: 30 * time.Second},
		Server:  Server{Addr: ":8080", MetricsPath: "/metrics"},
		Log:     Log{Level: "info", Format: "json"},
		Redis:   Redis{Prefix: "formblocks:"},
		I18n:    I18n{Fallback: "es"},
	}
}

// LoadEnv reads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolvePaths makes file references relative to the config file.
func (c *Config) resolvePaths(dir string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Templates = rel(c.Templates)
	for locale, p := range c.I18n.Catalogs {
		c.I18n.Catalogs[locale] = rel(p)
	}
	for i := range c.Forms {
		c.Forms[i].Blocks = rel(c.Forms[i].Blocks)
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("BACKEND_URL", &c.Backend.URL)
	str("ADDR", &c.Server.Addr)
	str("METRICS_PATH", &c.Server.MetricsPath)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("TEMPLATES", &c.Templates)

	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Redis.DB = db
	}
	for name, dst := range map[string]*time.Duration{
		"BACKEND_TIMEOUT": &c.Backend.Timeout,
		"REDIS_TTL":       &c.Redis.TTL,
	} {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks the backend URL and every form.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return ErrMissingBackend
	}
	var errs []error
	routes := make(map[string]string, len(c.Forms))
	for i, f := range c.Forms {
		label := f.Name
		if label == "" {
			label = "#" + strconv.Itoa(i)
		}
		if err := f.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w %s: %w", ErrInvalidForm, label, err))
			continue
		}
		if prev, ok := routes[f.Route]; ok {
			errs = append(errs, fmt.Errorf("%w %s: route %s already used by %s", ErrInvalidForm, label, f.Route, prev))
			continue
		}
		routes[f.Route] = label
	}
	return errors.Join(errs...)
}

func (f Form) validate() error {
	if !strings.HasPrefix(f.Route, "/") {
		return fmt.Errorf("route %q must start with /", f.Route)
	}
	switch assembler.Variant(f.Variant) {
	case assembler.VariantAuthenticated, assembler.VariantTable:
		if f.Name == "" || f.ConfigEndpoint == "" {
			return errors.New("name and configEndpoint are required")
		}
	case assembler.VariantAnonymous:
		if f.ConfigEndpoint == "" {
			return errors.New("configEndpoint is required")
		}
	case assembler.VariantFromConfig:
		if f.Blocks == "" {
			return errors.New("blocks is required")
		}
	default:
		return fmt.Errorf("unknown variant %q", f.Variant)
	}
	if f.TwoStep && assembler.Variant(f.Variant) != assembler.VariantAnonymous {
		return errors.New("twoStep requires the anonymous variant")
	}
	return nil
}

// Assembler converts f into an assembler.Form. Config forms read their
// blocks file once, here.
func (f Form) Assembler() (assembler.Form, error) {
	form := assembler.Form{
		Name:           f.Name,
		Variant:        assembler.Variant(f.Variant),
		ConfigEndpoint: f.ConfigEndpoint,
		ItemID:         f.ItemID,
		Permission:     f.Permission,
		Show:           f.Show,
		NoUser:         f.NoUser,
		Action:         f.Route,
		ID:             f.Name,
		Multipart:      f.Multipart,
		SuccessMessage: f.SuccessMessage,
		Endpoints: formstate.Endpoints{
			Get:     f.Endpoints.Get,
			Post:    f.Endpoints.Post,
			Delete:  f.Endpoints.Delete,
			Restore: f.Endpoints.Restore,
		},
	}
	if form.Variant == assembler.VariantFromConfig {
		form.PermissionStatus = block.Level(f.PermissionStatus)
		blocks, err := ReadBlocks(f.Blocks)
		if err != nil {
			return assembler.Form{}, err
		}
		form.Config = StaticConfig(blocks)
	}
	return form, nil
}

// ReadBlocks decodes a descriptor file.
func ReadBlocks(path string) ([]block.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read blocks: %w", err)
	}
	blocks, err := block.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return blocks, nil
}

// StaticConfig serves fixed blocks with no server level.
func StaticConfig(blocks []block.Block) assembler.ConfigFunc {
	return func(context.Context) ([]block.Block, block.Level, error) {
		return blocks, block.LevelNone, nil
	}
}
