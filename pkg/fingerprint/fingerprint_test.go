package fingerprint_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-formblocks/pkg/fingerprint"
)

func TestGetOrSet_PrefersCallerHash(t *testing.T) {
	called := false
	resolver := fingerprint.ResolverFunc(func(context.Context) (string, error) {
		called = true
		return "resolved", nil
	})

	got, err := fingerprint.GetOrSet(context.Background(), resolver, "abc")
	if err != nil || got != "abc" {
		t.Fatalf("GetOrSet() = %q, %v", got, err)
	}
	if called {
		t.Fatalf("resolver should not run when a hash is supplied")
	}

	got, err = fingerprint.GetOrSet(context.Background(), resolver, "")
	if err != nil || got != "resolved" {
		t.Fatalf("GetOrSet() = %q, %v", got, err)
	}
}

func TestGetOrSet_WrapsResolverError(t *testing.T) {
	boom := errors.New("boom")
	_, err := fingerprint.GetOrSet(context.Background(), fingerprint.ResolverFunc(func(context.Context) (string, error) {
		return "", boom
	}), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped resolver error, got %v", err)
	}
}

func TestFromRequest_Stable(t *testing.T) {
	a := httptest.NewRequest("GET", "/", nil)
	a.RemoteAddr = "10.0.0.1:5000"
	a.Header.Set("User-Agent", "test-agent")
	b := httptest.NewRequest("GET", "/other", nil)
	b.RemoteAddr = "10.0.0.1:6000"
	b.Header.Set("User-Agent", "test-agent")

	if fingerprint.FromRequest(a) != fingerprint.FromRequest(b) {
		t.Fatalf("fingerprint should ignore path and port")
	}
	if len(fingerprint.FromRequest(a)) != 32 {
		t.Fatalf("unexpected fingerprint %q", fingerprint.FromRequest(a))
	}

	b.Header.Set("User-Agent", "other-agent")
	if fingerprint.FromRequest(a) == fingerprint.FromRequest(b) {
		t.Fatalf("fingerprint should vary with user agent")
	}

	b.Header.Set(fingerprint.Header, "client-hash")
	if got := fingerprint.FromRequest(b); got != "client-hash" {
		t.Fatalf("explicit header ignored, got %q", got)
	}
}

func TestFromContext(t *testing.T) {
	ctx := fingerprint.WithFingerprint(context.Background(), "ctx-id")
	got, err := fingerprint.GetOrSet(ctx, fingerprint.FromContext, "")
	if err != nil || got != "ctx-id" {
		t.Fatalf("GetOrSet(FromContext) = %q, %v", got, err)
	}
}
