package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/prompt"
	"github.com/goliatone/go-formblocks/pkg/testsupport"
)

const usersBlocks = `[{"component":"inputtext","name":"name","label":"general.name","permission":100}]`

func writeConfig(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("general:\n  name: Name\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cfg := fmt.Sprintf(`
backend:
  url: %s
log:
  level: error
i18n:
  fallback: en
  catalogs:
    en: en.yaml
forms:
  - name: users
    route: /forms/users
    variant: authenticated
    configEndpoint: getform
    endpoints:
      post: users/save
  - name: login
    route: /login
    variant: anonymous
    configEndpoint: getformanonymous
    itemID: login
    twoStep: true
    redirect: /
    endpoints:
      post: login
`, backendURL)
	path := filepath.Join(dir, "formblocks.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func newTestApp(t *testing.T, backend *testsupport.Backend) *app {
	t.Helper()
	a, err := loadApp(context.Background(), &rootOptions{configPath: writeConfig(t, backend.BaseURL())}, assembler.Navigator())
	if err != nil {
		t.Fatalf("load app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestRouter(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.JSON("getform", http.StatusOK, map[string]any{"data": usersBlocks, "permission": "3"})
	a := newTestApp(t, backend)

	router, err := newRouter(a)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	srv := httptest.NewServer(router)
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return resp.StatusCode, buf.String()
	}

	if code, _ := get("/healthz"); code != http.StatusNoContent {
		t.Fatalf("healthz = %d", code)
	}
	code, body := get("/forms/users?lang=en")
	if code != http.StatusOK || !strings.Contains(body, `name="name"`) || !strings.Contains(body, "Name") {
		t.Fatalf("form = %d\n%s", code, body)
	}
	code, body = get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, `formblocks_forms_rendered_total{result="ok",variant="authenticated"} 1`) {
		t.Fatalf("metrics = %d\n%s", code, body)
	}
	if code, _ := get("/missing"); code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", code)
	}
}

type scriptedDriver struct {
	prompt.Driver
	inputs    []string
	passwords []string
}

func (d *scriptedDriver) Input(context.Context, prompt.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Password(context.Context, prompt.InputConfig) (string, error) {
	if len(d.passwords) == 0 {
		return "", errors.New("no password scripted")
	}
	v := d.passwords[0]
	d.passwords = d.passwords[1:]
	return v, nil
}

func (d *scriptedDriver) Info(context.Context, string) error {
	return nil
}

func TestRunLogin(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.JSON("getformanonymous", http.StatusOK, map[string]any{"data": `[` +
		`{"component":"inputtext","name":"username","permission":100,"validate":{"required":true}},` +
		`{"component":"inputtext","type":"password","name":"password","permission":100}]`})
	backend.JSON("login", http.StatusOK, map[string]any{
		"data": map[string]any{"auth": "token-9", "sessionID": "session-9", "v2fa": "true"},
	})
	backend.JSON(client.EndpointAuthTwoStep, http.StatusOK, map[string]any{"data": "ok"})
	a := newTestApp(t, backend)

	var out bytes.Buffer
	driver := &scriptedDriver{inputs: []string{"ada", "654321"}, passwords: []string{"secret"}}
	err := runLogin(context.Background(), a, loginRequest{
		endpoint:    "getformanonymous",
		itemID:      "login",
		post:        "login",
		twoStep:     true,
		fingerprint: "fp-cli",
		opts:        a.renderer.Options("en"),
		out:         &out,
	}, driver)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var sent map[string]any
	backend.Calls("login")[0].Decode(t, &sent)
	if sent["username"] != "ada" || sent["password"] != "secret" || sent["fingerprint"] != "fp-cli" {
		t.Fatalf("unexpected login payload %v", sent)
	}
	if a.store.AuthToken(context.Background()) != "token-9" {
		t.Fatalf("credentials not stored")
	}
	if !strings.Contains(out.String(), "login verified, session session-9") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(good, []byte(usersBlocks), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`[`+
		`{"component":"inputtext","name":"a"},`+
		`{"component":"inputtext","name":"a"},`+
		`{"component":"inputtext","name":"b","visibleWhen":"values.a =="}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"lint", good, bad})
	err := cmd.Execute()
	if !errors.Is(err, errLintFailed) {
		t.Fatalf("expected lint failure, got %v", err)
	}
	text := out.String()
	if !strings.Contains(text, good+": ok (1 blocks)") {
		t.Fatalf("good file not reported ok:\n%s", text)
	}
	if !strings.Contains(text, bad+" a: duplicate field name") || !strings.Contains(text, bad+"/2 b:") {
		t.Fatalf("bad file issues missing:\n%s", text)
	}
}
