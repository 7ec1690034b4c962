package formstate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/feedback"
	"github.com/goliatone/go-formblocks/pkg/fingerprint"
)

// RadioSuffix marks the radios of a group. The group's value travels in a
// hidden input under the base name.
const RadioSuffix = "_0011_none"

// Element is one named control of a submitted form.
type Element struct {
	Name  string
	Value string
}

// Submission is a submitted form: its controls in document order and the
// id of the button that submitted it. Fields names the inputs validated for
// this submission; only their error flags can block an anonymous submit.
// When empty, the submitted element names are checked.
type Submission struct {
	Elements  []Element
	Submitter string
	Fields    []string
	// Files are uploaded with multipart submits and ignored otherwise.
	Files []client.File
}

// ElementsFromValues converts decoded form values into elements, sorted by
// name with each name's values in submission order.
func ElementsFromValues(values url.Values, skip ...string) []Element {
	skipped := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipped[name] = struct{}{}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := skipped[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []Element
	for _, name := range names {
		for _, value := range values[name] {
			out = append(out, Element{Name: name, Value: value})
		}
	}
	return out
}

// Serialize flattens elements into a name to value map. Unnamed elements
// are skipped and repeated names are comma-joined in encounter order.
func Serialize(elements []Element) map[string]string {
	out := make(map[string]string, len(elements))
	for _, el := range elements {
		if el.Name == "" {
			continue
		}
		if prev, ok := out[el.Name]; ok {
			out[el.Name] = prev + "," + el.Value
			continue
		}
		out[el.Name] = el.Value
	}
	return out
}

// SyncRadioGroups copies each checked radio into the hidden input of its
// group, as a browser does when the selection changes. Without script the
// hidden input still holds the rendered value. The radios are kept, and a
// group without a hidden input gets one appended.
func SyncRadioGroups(elements []Element) []Element {
	checked := make(map[string]string)
	var groups []string
	for _, el := range elements {
		if base, ok := strings.CutSuffix(el.Name, RadioSuffix); ok && base != "" {
			if _, seen := checked[base]; !seen {
				groups = append(groups, base)
			}
			checked[base] = el.Value
		}
	}
	if len(groups) == 0 {
		return elements
	}

	synced := make(map[string]bool, len(groups))
	out := make([]Element, 0, len(elements)+len(groups))
	for _, el := range elements {
		if value, ok := checked[el.Name]; ok {
			if synced[el.Name] {
				continue
			}
			el.Value = value
			synced[el.Name] = true
		}
		out = append(out, el)
	}
	for _, base := range groups {
		if !synced[base] {
			out = append(out, Element{Name: base, Value: checked[base]})
		}
	}
	return out
}

// Submit posts the serialized form. Authenticated forms send
// [envelope, values] with the Authorization header; anonymous forms send
// the values alone. Multipart states send a flat multipart body instead. The returned body is also kept as Result.
func (s *State) Submit(ctx context.Context, sub Submission) (json.RawMessage, error) {
	if strings.TrimSpace(s.endpoints.Post) == "" {
		return nil, ErrMissingEndpoint
	}
	fp, err := fingerprint.GetOrSet(ctx, s.resolver, s.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("formstate: submit: %w", err)
	}

	st := s.client.Store()
	values := Serialize(sub.Elements)
	if s.anonymous {
		names := sub.Fields
		if len(names) == 0 {
			names = make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
		}
		blocking, err := st.HasBlockingErrors(ctx, names...)
		if err != nil {
			return nil, fmt.Errorf("formstate: submit: %w", err)
		}
		if blocking {
			s.present(ctx, feedback.Error(MessageCheckFields))
			s.metrics.Submission("submit", "blocked")
			return nil, ErrBlockingFieldErrors
		}
	}

	values["fingerprint"] = fp

	var resp client.Response
	switch {
	case s.multipart:
		values["iditem"] = s.Identifier()
		values["sessionID"] = st.SessionID(ctx)
		var opts []client.CallOption
		if !s.anonymous {
			opts = append(opts, client.WithAuthorization())
		}
		resp, err = s.client.PostMultipart(ctx, s.endpoints.Post, values, sub.Files, opts...)
	case s.anonymous:
		resp, err = s.client.Post(ctx, s.endpoints.Post, values)
	default:
		envelope := map[string]any{
			"iditem":        s.Identifier(),
			"sessionID":     st.SessionID(ctx),
			"cxauthxc":      st.AuthToken(ctx),
			"fingerprint":   fp,
			"ButtonPressed": sub.Submitter,
		}
		resp, err = s.client.Post(ctx, s.endpoints.Post, []any{envelope, values}, client.WithAuthorization())
	}
	if err != nil {
		return nil, s.fail(ctx, "submit", err)
	}

	s.mu.Lock()
	s.accepted = true
	s.blanked = false
	s.result = append(json.RawMessage(nil), resp.Body...)
	s.mu.Unlock()
	s.metrics.Submission("submit", client.CategoryNone.String())

	if !s.anonymous && s.session != nil && st.SessionID(ctx) != "" {
		if err := s.session.RefreshProfile(ctx, fp); err != nil {
			s.logger.V(1).Info("profile refresh after submit failed", "error", err.Error())
		}
	}
	if s.success != "" {
		s.present(ctx, feedback.Success(s.success))
	}
	return json.RawMessage(resp.Body), nil
}

// Delete asks the delete endpoint to remove record id.
func (s *State) Delete(ctx context.Context, id string) error {
	return s.recordAction(ctx, "delete", s.endpoints.Delete, id)
}

// Restore asks the restore endpoint to bring back record id.
func (s *State) Restore(ctx context.Context, id string) error {
	return s.recordAction(ctx, "restore", s.endpoints.Restore, id)
}

func (s *State) recordAction(ctx context.Context, action, endpoint, id string) error {
	if strings.TrimSpace(endpoint) == "" {
		return ErrMissingEndpoint
	}
	fp, err := fingerprint.GetOrSet(ctx, s.resolver, s.fingerprint)
	if err != nil {
		return fmt.Errorf("formstate: %s: %w", action, err)
	}
	env := s.client.Envelope(ctx, fp)
	if _, err := s.client.Post(ctx, endpoint, env.Fields(map[string]any{"id": id}), client.WithAuthorization()); err != nil {
		return s.fail(ctx, action, err)
	}

	s.mu.Lock()
	s.accepted = true
	s.mu.Unlock()
	s.metrics.Submission(action, client.CategoryNone.String())
	s.logger.V(1).Info("form action done", "action", action, "id", id)
	return nil
}

// fail classifies err, presents its message and wraps it. Anonymous forms
// do not force a logout: a 401 there means rejected credentials.
func (s *State) fail(ctx context.Context, action string, err error) error {
	var category client.Category
	if s.anonymous {
		category = client.Classify(err)
		s.logger.Error(err, "form action failed", "action", action, "category", category.String())
	} else {
		category = s.classify(ctx, err)
	}
	s.present(ctx, feedback.Error(category.MessageKey()))
	s.metrics.Submission(action, category.String())
	return fmt.Errorf("formstate: %s: %w", action, err)
}
