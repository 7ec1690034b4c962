// Package fetcher loads form configuration from the backend and decodes it
// into blocks.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/session"
)

// ErrMissingEndpoint is returned when a Request names no endpoint.
var ErrMissingEndpoint = errors.New("fetcher: endpoint is required")

// Request describes one configuration fetch.
type Request struct {
	// Endpoint is the configuration path, relative to the client base URL.
	Endpoint string
	// Name selects the form on authenticated endpoints.
	Name string
	// ItemID identifies the record on anonymous endpoints.
	ItemID      string
	Fingerprint string
	// Authenticated selects the envelope-plus-token call; otherwise the
	// anonymous payload is posted without an Authorization header.
	Authenticated bool
}

// Config is a decoded form configuration.
type Config struct {
	Blocks     []block.Block
	Permission block.Level
	Code       json.RawMessage
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithItemSources resolves blocks that carry a url by fetching their items.
func WithItemSources() Option {
	return func(f *Fetcher) {
		f.itemSources = true
	}
}

// WithConcurrency bounds concurrent item source requests.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithSession forces a logout through m when the backend answers 401.
func WithSession(m *session.Manager) Option {
	return func(f *Fetcher) {
		f.session = m
	}
}

// WithResolver sets the fingerprint resolver used when a Request carries
// none.
func WithResolver(r fingerprint.Resolver) Option {
	return func(f *Fetcher) {
		f.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher loads configurations. It never retries.
type Fetcher struct {
	client      *client.Client
	session     *session.Manager
	resolver    fingerprint.Resolver
	logger      logr.Logger
	itemSources bool
	concurrency int
}

// New returns a Fetcher backed by c.
func New(c *client.Client, opts ...Option) *Fetcher {
	f := &Fetcher{client: c, logger: logr.Discard(), concurrency: 4}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fetch posts req and decodes the configuration. Failures are returned
// wrapped; a 401 additionally forces a logout.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Config, error) {
	if strings.TrimSpace(req.Endpoint) == "" {
		return Config{}, ErrMissingEndpoint
	}
	fp, err := fingerprint.GetOrSet(ctx, f.resolver, req.Fingerprint)
	if err != nil {
		return Config{}, fmt.Errorf("fetcher: %w", err)
	}

	reply, err := f.post(ctx, req, fp)
	if err != nil {
		return Config{}, f.fail(ctx, req, err)
	}

	blocks, err := block.Decode(reply.Data)
	if err != nil {
		return Config{}, fmt.Errorf("fetcher: %s: %w", req.Endpoint, err)
	}

	if f.itemSources && req.Authenticated {
		if err := f.resolveItems(ctx, blocks, fp); err != nil {
			return Config{}, f.fail(ctx, req, err)
		}
	}

	f.logger.V(1).Info("form configuration loaded", "endpoint", req.Endpoint, "blocks", len(blocks), "permission", int(reply.Permission))
	return Config{Blocks: blocks, Permission: reply.Permission, Code: reply.Code}, nil
}

func (f *Fetcher) post(ctx context.Context, req Request, fp string) (client.Reply, error) {
	if req.Authenticated {
		return f.client.Service(ctx, req.Endpoint, fp, map[string]any{"name": req.Name})
	}
	resp, err := f.client.Post(ctx, req.Endpoint, map[string]any{
		"sessionID":   f.client.Store().SessionID(ctx),
		"itemID":      req.ItemID,
		"fingerprint": fp,
	})
	if err != nil {
		return client.Reply{}, err
	}
	var reply client.Reply
	if err := resp.Decode(&reply); err != nil {
		return client.Reply{}, err
	}
	return reply, nil
}

func (f *Fetcher) fail(ctx context.Context, req Request, err error) error {
	if f.session != nil {
		f.session.HandleError(ctx, err)
	} else {
		f.logger.Error(err, "form configuration failed", "endpoint", req.Endpoint)
	}
	return fmt.Errorf("fetcher: %s: %w", req.Endpoint, err)
}

// resolveItems replaces the items of every block with an item source.
func (f *Fetcher) resolveItems(ctx context.Context, blocks []block.Block, fp string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i := range blocks {
		if !blocks[i].HasItemSource() {
			continue
		}
		b := &blocks[i]
		g.Go(func() error {
			reply, err := f.client.Service(gctx, b.URL, fp, nil)
			if err != nil {
				return err
			}
			items, err := MapItems(reply.Data, b.ItemKey, b.TextItemKey)
			if err != nil {
				return fmt.Errorf("%s: %w", b.URL, err)
			}
			b.Items = items
			return nil
		})
	}
	return g.Wait()
}

// MapItems converts backend rows into items: row[itemKey] becomes the item
// id and row[textKey], first letter upper-cased, its text.
func MapItems(data json.RawMessage, itemKey, textKey string) ([]block.Item, error) {
	var rows []map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("fetcher: decode items: %w", err)
		}
	}
	items := make([]block.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, block.Item{
			Item:     block.ValueOf(row[itemKey]).String(),
			TextItem: capitalize(block.ValueOf(row[textKey]).String()),
		})
	}
	return items, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
