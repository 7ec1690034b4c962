// Package fingerprint resolves the stable pseudo-anonymous caller id sent
// with anonymous and authenticated calls.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Resolver produces the caller fingerprint.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static always resolves to the same id.
type Static string

// Resolve implements Resolver.
func (s Static) Resolve(context.Context) (string, error) {
	return string(s), nil
}

// GetOrSet returns hash when the caller already holds one, otherwise asks
// the resolver.
func GetOrSet(ctx context.Context, resolver Resolver, hash string) (string, error) {
	if hash = strings.TrimSpace(hash); hash != "" {
		return hash, nil
	}
	if resolver == nil {
		return "", nil
	}
	id, err := resolver.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("fingerprint: resolve: %w", err)
	}
	return id, nil
}

var namespace = uuid.MustParse("6f0c3a8e-2b3d-5c39-9a41-0d3f0f7c1b52")

// Header carries a client-computed fingerprint. It takes precedence over
// the derived one.
const Header = "X-Fingerprint"

// FromRequest derives a stable id from the request's user agent, language
// and remote host.
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if explicit := strings.TrimSpace(r.Header.Get(Header)); explicit != "" {
		return explicit
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	seed := strings.Join([]string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		host,
	}, "|")
	return strings.ReplaceAll(uuid.NewSHA1(namespace, []byte(seed)).String(), "-", "")
}

type contextKey struct{}

// WithFingerprint stores id on ctx.
func WithFingerprint(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext resolves the id stored by WithFingerprint.
var FromContext Resolver = ResolverFunc(func(ctx context.Context) (string, error) {
	id, _ := ctx.Value(contextKey{}).(string)
	return id, nil
})
