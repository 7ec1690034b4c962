package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formblocks/pkg/block"
	"github.com/goliatone/go-formblocks/pkg/store"
)

// Backend endpoints, relative to the base URL.
const (
	EndpointSettings        = "getsettings"
	EndpointCheckUsername   = "checkusername"
	EndpointCheckMail       = "checkmail"
	EndpointProfile         = "getprofile"
	EndpointLogout          = "logout"
	EndpointUserStatus      = "userstatus"
	EndpointUserData        = "getdatausername"
	EndpointRoles           = "rollist"
	EndpointUnreadCount     = "unreadcount"
	EndpointUserLog         = "userlog"
	EndpointMailTemplates   = "gettemplatesmailid"
	EndpointFavorite        = "getfavorites"
	EndpointSetFavorite     = "setfavorites"
	EndpointDeleteFavorite  = "delfavorites"
	EndpointAuthTwoStep     = "authTwostep"
	checkResultValid        = "Valid"
	lockScreenEnabledMarker = "true"
)

// Envelope identifies the caller on authenticated calls.
type Envelope struct {
	SessionID   string `json:"sessionID"`
	AuthToken   string `json:"cxauthxc"`
	Fingerprint string `json:"fingerprint"`
}

// Envelope builds the caller envelope from the store.
func (c *Client) Envelope(ctx context.Context, fingerprint string) Envelope {
	return Envelope{
		SessionID:   c.store.SessionID(ctx),
		AuthToken:   c.store.AuthToken(ctx),
		Fingerprint: fingerprint,
	}
}

// Fields merges the envelope into a copy of extra. Envelope keys win.
func (e Envelope) Fields(extra map[string]any) map[string]any {
	out := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		out[k] = v
	}
	out["sessionID"] = e.SessionID
	out["cxauthxc"] = e.AuthToken
	out["fingerprint"] = e.Fingerprint
	return out
}

// Reply is the common response shape: a data payload plus the optional
// permission level and code the form endpoints return.
type Reply struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Permission block.Level     `json:"permission,omitempty"`
	Code       json.RawMessage `json:"code,omitempty"`
}

// Service posts the caller envelope merged with extra to path, with the
// Authorization header.
func (c *Client) Service(ctx context.Context, path, fingerprint string, extra map[string]any) (Reply, error) {
	resp, err := c.Post(ctx, path, c.Envelope(ctx, fingerprint).Fields(extra), WithAuthorization())
	if err != nil {
		return Reply{}, err
	}
	var reply Reply
	if err := resp.Decode(&reply); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

type checkReply struct {
	Data struct {
		Result string `json:"result"`
	} `json:"data"`
}

// CheckUsername reports whether username is available.
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	return c.check(ctx, EndpointCheckUsername, "username", username)
}

// CheckMail reports whether email is available.
func (c *Client) CheckMail(ctx context.Context, email string) (bool, error) {
	return c.check(ctx, EndpointCheckMail, "email", email)
}

func (c *Client) check(ctx context.Context, path, field, value string) (bool, error) {
	resp, err := c.Post(ctx, path, map[string]any{
		field:     value,
		"session": c.store.SessionID(ctx),
	})
	if err != nil {
		return false, err
	}
	var reply checkReply
	if err := resp.Decode(&reply); err != nil {
		return false, err
	}
	return reply.Data.Result == checkResultValid, nil
}

// Profile fetches the current user's profile record.
func (c *Client) Profile(ctx context.Context, fingerprint string) (store.Profile, error) {
	resp, err := c.Post(ctx, EndpointProfile, map[string]any{
		"sessionID":   c.store.SessionID(ctx),
		"fingerprint": fingerprint,
	}, WithAuthorization())
	if err != nil {
		return store.Profile{}, err
	}
	var reply struct {
		Data []store.Profile `json:"data"`
	}
	if err := resp.Decode(&reply); err != nil {
		return store.Profile{}, err
	}
	if len(reply.Data) == 0 {
		return store.Profile{}, fmt.Errorf("client: %s: empty profile", EndpointProfile)
	}
	return reply.Data[0], nil
}

// Logout ends the session server side.
func (c *Client) Logout(ctx context.Context, env Envelope) error {
	_, err := c.Post(ctx, EndpointLogout, env, WithToken(env.AuthToken))
	return err
}

// Settings fetches public settings for keys.
func (c *Client) Settings(ctx context.Context, keys string) (json.RawMessage, error) {
	resp, err := c.Post(ctx, EndpointSettings, map[string]any{"keys": keys})
	if err != nil {
		return nil, err
	}
	var reply Reply
	if err := resp.Decode(&reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// LockScreen is the user's screen lock preference.
type LockScreen struct {
	Enabled bool
	Minutes int
}

// LockScreen reads the screen lock preference from path. The backend keeps
// it as a JSON document inside data[0].settings.
func (c *Client) LockScreen(ctx context.Context, path, fingerprint string) (LockScreen, error) {
	reply, err := c.Service(ctx, path, fingerprint, nil)
	if err != nil {
		return LockScreen{}, err
	}
	var rows []struct {
		Settings string `json:"settings"`
	}
	if err := json.Unmarshal(reply.Data, &rows); err != nil {
		return LockScreen{}, fmt.Errorf("client: decode lock screen: %w", err)
	}
	if len(rows) == 0 {
		return LockScreen{}, fmt.Errorf("client: %s: no settings", path)
	}
	var settings struct {
		BlockScreen     string          `json:"blockscreen"`
		BlockScreenTime json.RawMessage `json:"blockscreentime"`
	}
	if err := json.Unmarshal([]byte(rows[0].Settings), &settings); err != nil {
		return LockScreen{}, fmt.Errorf("client: decode lock screen settings: %w", err)
	}
	minutes, _ := strconv.Atoi(strings.Trim(string(settings.BlockScreenTime), `" `))
	return LockScreen{
		Enabled: settings.BlockScreen == lockScreenEnabledMarker,
		Minutes: minutes,
	}, nil
}

// IsFavorite reports whether url is in the user's favourites.
func (c *Client) IsFavorite(ctx context.Context, fingerprint, url string) (bool, error) {
	reply, err := c.Service(ctx, EndpointFavorite, fingerprint, map[string]any{"url": url})
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(reply.Data)) == "true", nil
}

// SetFavorite adds url to the user's favourites.
func (c *Client) SetFavorite(ctx context.Context, fingerprint, url, title string) error {
	_, err := c.Service(ctx, EndpointSetFavorite, fingerprint, map[string]any{"url": url, "title": title})
	return err
}

// DeleteFavorite removes url from the user's favourites.
func (c *Client) DeleteFavorite(ctx context.Context, fingerprint, url string) error {
	_, err := c.Service(ctx, EndpointDeleteFavorite, fingerprint, map[string]any{"url": url})
	return err
}

// ListFavorites returns the raw favourites list served at path.
func (c *Client) ListFavorites(ctx context.Context, path, fingerprint string) (json.RawMessage, error) {
	reply, err := c.Service(ctx, path, fingerprint, nil)
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// AuthTwoStep submits a second-factor code. authData is the login reply's
// data object; its auth member is sent as the Authorization header.
func (c *Client) AuthTwoStep(ctx context.Context, authData json.RawMessage, fingerprint, code string) error {
	var auth struct {
		Auth string `json:"auth"`
	}
	if len(authData) > 0 {
		if err := json.Unmarshal(authData, &auth); err != nil {
			return fmt.Errorf("client: decode auth data: %w", err)
		}
	}
	body := []any{authData, fingerprint, code}
	if len(authData) == 0 {
		body[0] = nil
	}
	_, err := c.Post(ctx, EndpointAuthTwoStep, body, WithToken(auth.Auth))
	return err
}
