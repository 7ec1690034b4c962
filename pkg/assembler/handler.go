package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/feedback"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
	"github.com/goliatone/go-formblocks/pkg/formstate"
	"github.com/goliatone/go-formblocks/pkg/permission"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/store"
	"github.com/goliatone/go-formblocks/pkg/twostep"
	"github.com/goliatone/go-formblocks/pkg/validation"
)

// Control inputs read by the form handler. They never reach the backend.
const (
	// ActionField selects the action of a post: submit (default), delete or
	// restore. Its value is also sent as the pressed button.
	ActionField = "_action"
	// CodeField carries the two-step verification code.
	CodeField = "_code"

	ActionSubmit  = "submit"
	ActionDelete  = "delete"
	ActionRestore = "restore"
)

// LocaleParam is the query parameter overriding the stored language.
const LocaleParam = "lang"

// SessionCookie carries the visitor session id. Every store read and write
// of a request is scoped to it.
const SessionCookie = "formblocks_session"

const maxMultipartMemory = 32 << 20

// HandlerOption configures a form handler.
type HandlerOption func(*handler)

// WithPresenter adds a presenter that receives every message shown by the
// handler.
func WithPresenter(p feedback.Presenter) HandlerOption {
	return func(h *handler) {
		h.presenter = p
	}
}

// WithChecker overrides the uniqueness checker used by server-side
// validation. The backend client is used by default.
func WithChecker(c validation.Checker) HandlerOption {
	return func(h *handler) {
		h.checker = c
	}
}

// WithFlowTTL bounds how long a two-step login waits for its code.
// DefaultFlowTTL applies otherwise.
func WithFlowTTL(ttl time.Duration) HandlerOption {
	return func(h *handler) {
		h.flowTTL = ttl
	}
}

// WithTwoStep makes a successful anonymous submit the first step of a
// login: the reply may ask for a verification code, and once verified the
// user is sent to redirect.
func WithTwoStep(redirect string) HandlerOption {
	return func(h *handler) {
		h.twoStep = true
		h.redirect = redirect
	}
}

type handler struct {
	assembler *Assembler
	form      Form
	checker   validation.Checker
	presenter feedback.Presenter
	twoStep   bool
	redirect  string
	flowTTL   time.Duration

	flows *flowCache
}

// Handler serves form over HTTP. GET renders it, loading the record named
// by the id query parameter. POST validates the posted values, runs the
// selected action and renders the form again with the outcome. Each
// visitor gets its own store scope through SessionCookie.
func (a *Assembler) Handler(form Form, opts ...HandlerOption) http.Handler {
	h := &handler{
		assembler: a,
		form:      form,
		checker:   a.client,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.flows = newFlowCache(h.flowTTL)
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sid := visitor(w, r)
	r = r.WithContext(store.WithForm(store.WithScope(r.Context(), sid), formKey(h.form)))

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.get(w, r)
	case http.MethodPost:
		if h.form.Variant == VariantTable {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h.post(w, r, sid)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	fp := fingerprint.FromRequest(r)
	ctx, slot := withRedirectSlot(fingerprint.WithFingerprint(r.Context(), fp))
	locale := h.locale(ctx, r)

	form := h.form
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		form.ItemID = id
	}

	req := Request{Locale: locale, Fingerprint: fp}
	if form.ItemID != "" && form.Endpoints.Get != "" {
		state := formstate.New(h.assembler.client, form.Endpoints, h.stateOptions(form, fp, nil)...)
		if err := state.SetIdentifier(ctx, form.ItemID); err != nil {
			if h.redirected(w, r, slot) {
				return
			}
			key := client.Classify(err).MessageKey()
			req.FormErrors = append(req.FormErrors, h.assembler.renderer.Options(locale).T(key))
		} else {
			req.Values = state.Inputs()
		}
	}

	res, err := h.assembler.Assemble(ctx, form, req)
	if h.redirected(w, r, slot) {
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	writeHTML(w, status, res.HTML)
}

func (h *handler) post(w http.ResponseWriter, r *http.Request, sid string) {
	posted, files, err := parsePost(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer closeFiles(files)

	fp := strings.TrimSpace(posted.Get(render.HiddenFingerprint))
	if fp == "" {
		fp = fingerprint.FromRequest(r)
	}
	ctx, slot := withRedirectSlot(fingerprint.WithFingerprint(r.Context(), fp))
	locale := h.locale(ctx, r)

	form := h.form
	if id := strings.TrimSpace(posted.Get(render.HiddenItemID)); id != "" {
		form.ItemID = id
	}

	if h.twoStep && posted.Has(CodeField) {
		h.verify(ctx, w, r, slot, form, locale, fp, sid, posted.Get(CodeField))
		return
	}

	elements := formstate.SyncRadioGroups(formstate.ElementsFromValues(posted, controls(posted)...))
	values := valuesOf(elements)

	p, err := h.assembler.prepare(ctx, form, Request{Locale: locale, Fingerprint: fp, Values: values})
	if err != nil {
		res, _ := h.assembler.banner(form, Request{Locale: locale}, err)
		if h.redirected(w, r, slot) {
			return
		}
		writeHTML(w, http.StatusBadGateway, res.HTML)
		return
	}

	opts := h.assembler.renderer.Options(locale)
	rec := &feedback.Recorder{}
	state := formstate.New(h.assembler.client, form.Endpoints, h.stateOptions(form, fp, rec)...)

	var (
		body    json.RawMessage
		mapping render.ErrorMapping
	)
	action := strings.TrimSpace(posted.Get(ActionField))
	switch action {
	case ActionDelete:
		err = state.Delete(ctx, form.ItemID)
	case ActionRestore:
		err = state.Restore(ctx, form.ItemID)
	default:
		if action == "" {
			action = ActionSubmit
		}
		var checked []string
		mapping, checked = h.validate(ctx, p, form.mode(), posted, opts)
		body, err = state.Submit(ctx, formstate.Submission{
			Elements:  elements,
			Submitter: action,
			Fields:    checked,
			Files:     files.clientFiles(),
		})
	}
	if h.redirected(w, r, slot) {
		return
	}
	var statusErr client.StatusError
	if errors.As(err, &statusErr) {
		mapping = mergeErrors(mapping, render.MapErrorPayload(p.blocks, statusErr.FieldErrors()))
	}

	if err == nil && h.twoStep && form.Variant == VariantAnonymous {
		if h.begin(ctx, w, r, form, locale, fp, sid, body) {
			return
		}
	}

	req := Request{Locale: locale, Fingerprint: fp, Values: values, Errors: mapping}
	applyMessages(&req, rec.Messages(), opts)
	res, renderErr := h.assembler.render(ctx, form, req, p)
	status := http.StatusOK
	switch {
	case renderErr != nil:
		status = http.StatusInternalServerError
	case err != nil:
		status = http.StatusUnprocessableEntity
	}
	writeHTML(w, status, res.HTML)
}

// validate runs the field validators over the posted values of the
// visible blocks. The form's previous error flags are reset first, so only
// this submission's results are recorded. It returns the messages keyed by
// input name and the names that were checked.
func (h *handler) validate(ctx context.Context, p prepared, mode fields.Mode, posted url.Values, opts render.RenderOptions) (render.ErrorMapping, []string) {
	mapping := render.ErrorMapping{Fields: make(map[string][]string)}
	st := h.assembler.client.Store()
	add := func(name string, issue *validation.Issue) {
		if issue != nil {
			mapping.Fields[name] = append(mapping.Fields[name], issue.Message)
		}
	}

	names := make([]string, 0, len(p.all))
	for _, b := range p.all {
		names = append(names, b.Key())
	}
	if err := st.ClearFieldErrors(ctx, names...); err != nil {
		h.assembler.logger.Error(err, "reset field errors")
	}

	var checked []string
	for _, b := range p.blocks {
		if !fields.Visible(b, mode) {
			continue
		}
		switch b.Component {
		case block.KindInputText:
			if b.IsHidden() {
				continue
			}
			issue, err := validation.Text(ctx, b, posted.Get(b.Key()), h.checker, opts)
			if err != nil {
				if errors.Is(err, validation.ErrUnauthorized) && h.assembler.session != nil {
					h.assembler.session.HandleError(ctx, err)
				} else {
					h.assembler.logger.Error(err, "field validation failed", "field", b.Key())
				}
			}
			if recErr := validation.RecordText(ctx, st, b, issue); recErr != nil {
				h.assembler.logger.Error(recErr, "record field error")
			}
			add(b.Key(), issue)
			checked = append(checked, b.Key())
		case block.KindPassword:
			result := validation.Password(b, posted.Get(b.Key()), posted.Get(b.ConfirmationName()), opts)
			if recErr := validation.RecordPassword(ctx, st, b, result); recErr != nil {
				h.assembler.logger.Error(recErr, "record field error")
			}
			add(b.Key(), result.Primary)
			add(b.ConfirmationName(), result.Confirmation)
			checked = append(checked, b.Key())
		}
	}
	return mapping, checked
}

// begin starts the two-step flow with the login reply. It reports whether
// the response was written.
func (h *handler) begin(ctx context.Context, w http.ResponseWriter, r *http.Request, form Form, locale, fp, sid string, body json.RawMessage) bool {
	flow := twostep.New(h.assembler.client, fp,
		twostep.WithPresenter(h.presenter),
		twostep.WithLogger(h.assembler.logger))
	status, err := flow.Begin(ctx, body)
	switch {
	case err != nil:
		return false
	case status == twostep.AwaitingCode:
		h.flows.put(sid, flow)
		h.writeCodeForm(ctx, w, form, locale, fp, nil)
		return true
	case status == twostep.Verified && h.redirect != "":
		http.Redirect(w, r, h.redirect, http.StatusSeeOther)
		return true
	}
	return false
}

// verify checks the code of the visitor's pending login. A rejected code
// can be retried until MaxCodeAttempts; after that the login starts over.
func (h *handler) verify(ctx context.Context, w http.ResponseWriter, r *http.Request, slot *redirectSlot, form Form, locale, fp, sid, code string) {
	opts := h.assembler.renderer.Options(locale)
	flow := h.flows.get(sid)
	if flow == nil {
		res, _ := h.assembler.Assemble(ctx, form, Request{
			Locale:      locale,
			Fingerprint: fp,
			FormErrors:  []string{opts.T(twostep.MessageIncorrectCode)},
		})
		writeHTML(w, http.StatusConflict, res.HTML)
		return
	}

	status, err := flow.Verify(ctx, code)
	if h.redirected(w, r, slot) {
		return
	}
	if err != nil {
		incorrect := []string{opts.T(twostep.MessageIncorrectCode)}
		if h.flows.reject(sid) {
			h.writeCodeForm(ctx, w, form, locale, fp, incorrect)
			return
		}
		res, _ := h.assembler.Assemble(ctx, form, Request{Locale: locale, Fingerprint: fp, FormErrors: incorrect})
		writeHTML(w, http.StatusUnprocessableEntity, res.HTML)
		return
	}

	h.flows.remove(sid)
	if status == twostep.Verified && h.redirect != "" {
		http.Redirect(w, r, h.redirect, http.StatusSeeOther)
		return
	}
	res, _ := h.assembler.Assemble(ctx, form, Request{Locale: locale, Fingerprint: fp})
	writeHTML(w, http.StatusOK, res.HTML)
}

func (h *handler) writeCodeForm(ctx context.Context, w http.ResponseWriter, form Form, locale, fp string, errs []string) {
	res, err := h.assembler.Assemble(ctx, codeForm(form), Request{Locale: locale, Fingerprint: fp, FormErrors: errs})
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	} else if len(errs) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeHTML(w, status, res.HTML)
}

// codeForm asks for the verification code in place of form.
func codeForm(form Form) Form {
	blocks := []block.Block{
		{
			Component:  block.KindInputText,
			Name:       CodeField,
			ID:         CodeField,
			Label:      twostep.MessagePrompt,
			Style:      "login",
			Validate:   block.Validate{Required: true},
			Permission: permission.Unrestricted,
		},
		{
			Component:  block.KindButton,
			Type:       "submit",
			Text:       "login.verify",
			Permission: permission.Unrestricted,
		},
	}
	return Form{
		Name:      form.Name,
		Variant:   VariantFromConfig,
		ID:        form.ID,
		ClassName: form.ClassName,
		Action:    form.Action,
		Config: func(context.Context) ([]block.Block, block.Level, error) {
			return blocks, block.LevelNone, nil
		},
	}
}

func (h *handler) stateOptions(form Form, fp string, rec *feedback.Recorder) []formstate.Option {
	a := h.assembler
	opts := []formstate.Option{
		formstate.WithFingerprint(fp),
		formstate.WithIdentifier(form.ItemID),
		formstate.WithSuccessMessage(form.SuccessMessage),
		formstate.WithMetrics(a.metrics),
		formstate.WithLogger(a.logger),
		formstate.WithResolver(a.resolver),
	}
	if a.session != nil {
		opts = append(opts, formstate.WithSession(a.session))
	}
	if rec != nil {
		opts = append(opts, formstate.WithPresenter(h.presenters(rec)))
	}
	if form.Variant == VariantAnonymous {
		opts = append(opts, formstate.Anonymous())
	}
	if form.Multipart {
		opts = append(opts, formstate.Multipart())
	}
	return opts
}

func (h *handler) presenters(rec *feedback.Recorder) feedback.Presenter {
	if h.presenter == nil {
		return rec
	}
	return feedback.Multi(rec, h.presenter)
}

func (h *handler) locale(ctx context.Context, r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get(LocaleParam)); lang != "" {
		return lang
	}
	return h.assembler.client.Store().Language(ctx)
}

func (h *handler) redirected(w http.ResponseWriter, r *http.Request, slot *redirectSlot) bool {
	path := slot.get()
	if path == "" {
		return false
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
	return true
}

// applyMessages turns presented messages into the notice and form errors of
// req.
func applyMessages(req *Request, msgs []feedback.Message, opts render.RenderOptions) {
	for _, msg := range msgs {
		switch msg.Kind {
		case feedback.KindSuccess:
			req.Notice = msg.Text
		case feedback.KindError:
			req.FormErrors = append(req.FormErrors, opts.T(msg.Key))
		}
	}
}

// visitor returns the session id of the request, issuing a new cookie when
// it carries none.
func visitor(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// formKey names the error flag namespace of form.
func formKey(form Form) string {
	if form.Name != "" {
		return form.Name
	}
	if form.ItemID != "" {
		return form.ConfigEndpoint + "/" + form.ItemID
	}
	return form.Action
}

// controls lists the posted names that steer the handler instead of
// carrying form data.
func controls(posted url.Values) []string {
	var out []string
	for name := range posted {
		if render.IsReservedHidden(name) || name == ActionField || name == CodeField {
			out = append(out, name)
		}
	}
	return out
}

// mergeErrors adds the messages of extra to m.
func mergeErrors(m, extra render.ErrorMapping) render.ErrorMapping {
	if len(extra.Fields) > 0 && m.Fields == nil {
		m.Fields = make(map[string][]string, len(extra.Fields))
	}
	for name, msgs := range extra.Fields {
		m.Fields[name] = append(m.Fields[name], msgs...)
	}
	m.Form = render.MergeFormErrors(m.Form, extra.Form...)
	return m
}

// uploads are the file parts of a multipart post.
type uploads []upload

type upload struct {
	header *multipart.FileHeader
	file   multipart.File
}

// parsePost decodes the posted values. Multipart bodies also yield their
// file parts, ordered by input name.
func parsePost(r *http.Request) (url.Values, uploads, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, nil, err
		}
		return r.PostForm, nil, nil
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, err
	}
	form := r.MultipartForm
	names := make([]string, 0, len(form.File))
	for name := range form.File {
		names = append(names, name)
	}
	sort.Strings(names)

	var files uploads
	for _, name := range names {
		for _, header := range form.File[name] {
			file, err := header.Open()
			if err != nil {
				closeFiles(files)
				_ = form.RemoveAll()
				return nil, nil, err
			}
			files = append(files, upload{header: header, file: file})
		}
	}
	return url.Values(form.Value), files, nil
}

func (u uploads) clientFiles() []client.File {
	if len(u) == 0 {
		return nil
	}
	out := make([]client.File, 0, len(u))
	for _, up := range u {
		out = append(out, client.File{
			Filename:    up.header.Filename,
			ContentType: up.header.Header.Get("Content-Type"),
			Content:     up.file,
		})
	}
	return out
}

func closeFiles(files uploads) {
	for _, up := range files {
		_ = up.file.Close()
	}
}

func valuesOf(elements []formstate.Element) map[string]block.Value {
	grouped := make(map[string][]string)
	order := make([]string, 0, len(elements))
	for _, el := range elements {
		if _, seen := grouped[el.Name]; !seen {
			order = append(order, el.Name)
		}
		grouped[el.Name] = append(grouped[el.Name], el.Value)
	}
	values := make(map[string]block.Value, len(grouped))
	for _, name := range order {
		if list := grouped[name]; len(list) == 1 {
			values[name] = block.String(list[0])
		} else {
			values[name] = block.List(list...)
		}
	}
	return values
}

func writeHTML(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}
