package formstate_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/feedback"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/session"
	"github.com/goliatone/go-formblocks/pkg/store"
	"github.com/goliatone/go-formblocks/pkg/testsupport"
)

var endpoints = formstate.Endpoints{
	Get:     "users/get",
	Post:    "users/save",
	Delete:  "users/delete",
	Restore: "users/restore",
}

type fixture struct {
	backend   *testsupport.Backend
	store     *store.Store
	client    *client.Client
	session   *session.Manager
	presented *feedback.Recorder
	redirects []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{backend: testsupport.NewBackend(t), store: store.NewMemory(), presented: &feedback.Recorder{}}
	if err := f.store.SetCredentials(ctx, "token-1", "session-1"); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	c, err := client.New(f.backend.BaseURL(), f.store)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	f.client = c
	f.session = session.New(f.store, c, session.WithNavigator(session.NavigatorFunc(func(_ context.Context, path string) error {
		f.redirects = append(f.redirects, path)
		return nil
	})))
	return f
}

func (f *fixture) state(opts ...formstate.Option) *formstate.State {
	base := []formstate.Option{
		formstate.WithSession(f.session),
		formstate.WithPresenter(f.presented),
		formstate.WithResolver(fingerprint.Static("fp-1")),
	}
	return formstate.New(f.client, endpoints, append(base, opts...)...)
}

func TestSerialize(t *testing.T) {
	got := formstate.Serialize([]formstate.Element{
		{Name: "name", Value: "Ada"},
		{Name: "", Value: "ignored"},
		{Name: "tags", Value: "a"},
		{Name: "tags", Value: "b"},
		{Name: "delivery", Value: "pickup"},
		{Name: "delivery_0011_none", Value: "courier"},
		{Name: "tags", Value: "c"},
	})
	want := map[string]string{"name": "Ada", "tags": "a,b,c", "delivery": "pickup", "delivery_0011_none": "courier"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncRadioGroups(t *testing.T) {
	got := formstate.SyncRadioGroups([]formstate.Element{
		{Name: "delivery", Value: "pickup"},
		{Name: "delivery_0011_none", Value: "courier"},
		{Name: "name", Value: "Ada"},
		{Name: "size_0011_none", Value: "m"},
	})
	want := []formstate.Element{
		{Name: "delivery", Value: "courier"},
		{Name: "delivery_0011_none", Value: "courier"},
		{Name: "name", Value: "Ada"},
		{Name: "size_0011_none", Value: "m"},
		{Name: "size", Value: "m"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sync mismatch (-want +got):\n%s", diff)
	}

	plain := []formstate.Element{{Name: "delivery", Value: "pickup"}}
	if diff := cmp.Diff(plain, formstate.SyncRadioGroups(plain)); diff != "" {
		t.Fatalf("unchecked group changed (-want +got):\n%s", diff)
	}
}

func TestElementsFromValues(t *testing.T) {
	got := formstate.ElementsFromValues(url.Values{
		"b":      {"2"},
		"a":      {"x", "y"},
		"iditem": {"7"},
	}, "iditem")
	want := []formstate.Element{{Name: "a", Value: "x"}, {Name: "a", Value: "y"}, {Name: "b", Value: "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleInputChange(t *testing.T) {
	s := newFixture(t).state()
	s.HandleInputChange("name", block.String("Ada"))
	s.HandleInputChange("name", block.String("Grace"))
	s.HandleInputChange("tags", block.List("a", "b"))

	if got := s.Value("name").String(); got != "Grace" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if got := s.Value("tags").Strings(); len(got) != 2 {
		t.Fatalf("unexpected tags %v", got)
	}
}

func TestSetIdentifier_EmptyBlanksOnce(t *testing.T) {
	s := newFixture(t).state()
	ctx := testsupport.Context(t)
	s.HandleInputChange("name", block.String("Ada"))
	s.HandleInputChange("tags", block.List("a"))
	s.HandleInputChange("unset", block.Value{})

	if err := s.SetIdentifier(ctx, ""); err != nil {
		t.Fatalf("set identifier: %v", err)
	}
	inputs := s.Inputs()
	if inputs["name"].String() != "" || inputs["tags"].String() != "" || !inputs["unset"].IsNull() {
		t.Fatalf("unexpected blanked inputs %#v", inputs)
	}

	s.HandleInputChange("name", block.String("typed"))
	if err := s.SetIdentifier(ctx, ""); err != nil {
		t.Fatalf("set identifier: %v", err)
	}
	if got := s.Value("name").String(); got != "typed" {
		t.Fatalf("second empty identifier blanked again: %q", got)
	}
}

func TestSetIdentifier_LoadsRecord(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Get, http.StatusOK, map[string]any{
		"data": []map[string]any{{"name": "Ada", "age": 36, "tags": []string{"a", "b"}}},
	})
	s := f.state()
	s.HandleInputChange("stale", block.String("x"))

	if err := s.SetIdentifier(testsupport.Context(t), "42"); err != nil {
		t.Fatalf("set identifier: %v", err)
	}

	got := map[string]string{}
	for k, v := range s.Inputs() {
		got[k] = v.String()
	}
	if diff := cmp.Diff(map[string]string{"name": "Ada", "age": "36", "tags": "a,b"}, got); diff != "" {
		t.Fatalf("inputs mismatch (-want +got):\n%s", diff)
	}

	calls := f.backend.Calls(endpoints.Get)
	if len(calls) != 1 || calls[0].Authorization != "token-1" {
		t.Fatalf("unexpected get calls %#v", calls)
	}
	var body map[string]string
	calls[0].Decode(t, &body)
	if diff := cmp.Diff(map[string]string{"sessionID": "session-1", "itemID": "42", "fingerprint": "fp-1"}, body); diff != "" {
		t.Fatalf("get payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSetIdentifier_UnauthorizedLogsOut(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Get, http.StatusUnauthorized, nil)

	err := f.state().SetIdentifier(testsupport.Context(t), "42")
	if !client.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if diff := cmp.Diff([]string{session.LoginPath}, f.redirects); diff != "" {
		t.Fatalf("redirects mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_Authenticated(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Post, http.StatusOK, map[string]any{"data": "ok"})
	f.backend.JSON(client.EndpointProfile, http.StatusOK, map[string]any{
		"data": []map[string]any{{"name": "Ada", "email": "ada@example.com"}},
	})
	s := f.state(formstate.WithSuccessMessage("Saved"))
	ctx := testsupport.Context(t)
	if err := s.SetIdentifier(ctx, ""); err != nil {
		t.Fatalf("set identifier: %v", err)
	}

	body, err := s.Submit(ctx, formstate.Submission{
		Elements:  []formstate.Element{{Name: "name", Value: "Ada"}, {Name: "tags", Value: "a"}, {Name: "tags", Value: "b"}},
		Submitter: "draft",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(body) == "" || !s.Accepted() || string(s.Result()) != string(body) {
		t.Fatalf("expected result to be kept, got %q", body)
	}

	calls := f.backend.Calls(endpoints.Post)
	if len(calls) != 1 || calls[0].Authorization != "token-1" {
		t.Fatalf("unexpected post calls %#v", calls)
	}
	var payload []map[string]string
	calls[0].Decode(t, &payload)
	want := []map[string]string{
		{"iditem": "", "sessionID": "session-1", "cxauthxc": "token-1", "fingerprint": "fp-1", "ButtonPressed": "draft"},
		{"name": "Ada", "tags": "a,b", "fingerprint": "fp-1"},
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	profile, ok, err := f.store.Profile(ctx)
	if err != nil || !ok || profile.Name != "Ada" {
		t.Fatalf("profile not refreshed: %#v %v %v", profile, ok, err)
	}
	if diff := cmp.Diff([]feedback.Message{feedback.Success("Saved")}, f.presented.Messages()); diff != "" {
		t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_ErrorCategories(t *testing.T) {
	cases := []struct {
		status   int
		key      string
		redirect bool
	}{
		{http.StatusBadRequest, "login.command_not_found", false},
		{http.StatusUnauthorized, "login.invalid_data_username_mail", true},
		{http.StatusForbidden, "error.no_permission", false},
		{http.StatusInternalServerError, "login.unknown_error", false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			f := newFixture(t)
			f.backend.JSON(endpoints.Post, tc.status, nil)
			s := f.state()

			_, err := s.Submit(testsupport.Context(t), formstate.Submission{})
			var statusErr client.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tc.status {
				t.Fatalf("expected status %d, got %v", tc.status, err)
			}
			if s.Accepted() {
				t.Fatalf("failed submit marked accepted")
			}
			if diff := cmp.Diff([]feedback.Message{feedback.Error(tc.key)}, f.presented.Messages()); diff != "" {
				t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
			}
			if got := len(f.redirects) > 0; got != tc.redirect {
				t.Fatalf("redirect = %v, want %v", got, tc.redirect)
			}
		})
	}
}

func TestSubmit_NoResponse(t *testing.T) {
	f := newFixture(t)
	s := f.state()
	f.backend.Close()

	_, err := s.Submit(testsupport.Context(t), formstate.Submission{})
	if !errors.Is(err, client.ErrNoResponse) {
		t.Fatalf("expected no response error, got %v", err)
	}
	if diff := cmp.Diff([]feedback.Message{feedback.Error("login.no_server_response")}, f.presented.Messages()); diff != "" {
		t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_Anonymous(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Post, http.StatusOK, map[string]any{"data": map[string]any{"v2fa": "false"}})
	s := f.state(formstate.Anonymous())
	ctx := testsupport.Context(t)

	if _, err := s.Submit(ctx, formstate.Submission{Elements: []formstate.Element{{Name: "username", Value: "ada"}}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	calls := f.backend.Calls(endpoints.Post)
	if len(calls) != 1 || calls[0].Authorization != "" {
		t.Fatalf("unexpected anonymous calls %#v", calls)
	}
	var payload map[string]string
	calls[0].Decode(t, &payload)
	if diff := cmp.Diff(map[string]string{"username": "ada", "fingerprint": "fp-1"}, payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	f.backend.JSON(endpoints.Post, http.StatusUnauthorized, nil)
	if _, err := s.Submit(ctx, formstate.Submission{}); !client.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(f.redirects) != 0 {
		t.Fatalf("anonymous 401 forced a logout")
	}
}

func TestSubmit_AnonymousBlockedByFieldErrors(t *testing.T) {
	f := newFixture(t)
	ctx := testsupport.Context(t)
	if err := f.store.SetFieldError(ctx, "email", true); err != nil {
		t.Fatalf("set field error: %v", err)
	}

	_, err := f.state(formstate.Anonymous()).Submit(ctx, formstate.Submission{
		Elements: []formstate.Element{{Name: "email", Value: "nope"}},
	})
	if !errors.Is(err, formstate.ErrBlockingFieldErrors) {
		t.Fatalf("expected blocking error, got %v", err)
	}
	if len(f.backend.Calls("")) != 0 {
		t.Fatalf("blocked submit reached the backend")
	}
	if diff := cmp.Diff([]feedback.Message{feedback.Error(formstate.MessageCheckFields)}, f.presented.Messages()); diff != "" {
		t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_AnonymousIgnoresFlagsOfOtherFields(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Post, http.StatusOK, map[string]any{"data": "ok"})
	ctx := testsupport.Context(t)
	if err := f.store.SetFieldError(ctx, "email", true); err != nil {
		t.Fatalf("set field error: %v", err)
	}

	_, err := f.state(formstate.Anonymous()).Submit(ctx, formstate.Submission{
		Elements: []formstate.Element{{Name: "username", Value: "ada"}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(f.backend.Calls(endpoints.Post)) != 1 {
		t.Fatalf("expected one backend call")
	}

	_, err = f.state(formstate.Anonymous()).Submit(ctx, formstate.Submission{
		Elements: []formstate.Element{{Name: "username", Value: "ada"}},
		Fields:   []string{"username", "email"},
	})
	if !errors.Is(err, formstate.ErrBlockingFieldErrors) {
		t.Fatalf("expected blocking error for a checked field, got %v", err)
	}
}

func TestSubmit_Multipart(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Post, http.StatusOK, map[string]any{"data": "ok"})
	s := f.state(formstate.Multipart(), formstate.WithIdentifier("7"))

	_, err := s.Submit(testsupport.Context(t), formstate.Submission{
		Elements: []formstate.Element{{Name: "title", Value: "Report"}},
		Files:    []client.File{{Filename: "report.txt", Content: strings.NewReader("hello")}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	calls := f.backend.Calls(endpoints.Post)
	if len(calls) != 1 || calls[0].Authorization != "token-1" {
		t.Fatalf("unexpected multipart calls %#v", calls)
	}
	want := []testsupport.Part{
		{Name: "fingerprint", Content: "fp-1"},
		{Name: "iditem", Content: "7"},
		{Name: "sessionID", Content: "session-1"},
		{Name: "title", Content: "Report"},
		{Name: client.FileField, Filename: "report.txt", Content: "hello"},
	}
	if diff := cmp.Diff(want, calls[0].Parts(t)); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_MultipartAnonymousOmitsAuthorization(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Post, http.StatusOK, map[string]any{"data": "ok"})
	s := f.state(formstate.Multipart(), formstate.Anonymous())

	if _, err := s.Submit(testsupport.Context(t), formstate.Submission{Elements: []formstate.Element{{Name: "name", Value: "Ada"}}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	calls := f.backend.Calls(endpoints.Post)
	if len(calls) != 1 || calls[0].Authorization != "" {
		t.Fatalf("unexpected multipart calls %#v", calls)
	}
	if parts := calls[0].Parts(t); len(parts) != 4 {
		t.Fatalf("expected values plus iditem, sessionID and fingerprint, got %#v", parts)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	f.backend.JSON(endpoints.Delete, http.StatusOK, map[string]any{"data": "ok"})
	f.backend.JSON(endpoints.Restore, http.StatusForbidden, nil)
	s := f.state()
	ctx := testsupport.Context(t)

	if err := s.Delete(ctx, "9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var payload map[string]string
	f.backend.Calls(endpoints.Delete)[0].Decode(t, &payload)
	want := map[string]string{"sessionID": "session-1", "cxauthxc": "token-1", "fingerprint": "fp-1", "id": "9"}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("delete payload mismatch (-want +got):\n%s", diff)
	}

	if err := s.Restore(ctx, "9"); err == nil {
		t.Fatalf("expected restore to fail")
	}
	if diff := cmp.Diff([]feedback.Message{feedback.Error("error.no_permission")}, f.presented.Messages()); diff != "" {
		t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
	}

	if err := formstate.New(f.client, formstate.Endpoints{}).Delete(ctx, "1"); !errors.Is(err, formstate.ErrMissingEndpoint) {
		t.Fatalf("expected missing endpoint, got %v", err)
	}
}
