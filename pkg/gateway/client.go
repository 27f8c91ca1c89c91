package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/pkg/errors"
)

type (
	// A Client defines all interactions that can be performed on the gateway account API.
	Client interface {
		// SetServiceToken sets the static token used by trusted services to open sessions.
		SetServiceToken(token string)
		// Login opens a session for the given external identity.
		Login(credentials Credentials) (Session, error)
		// Refresh gets a new access token for the current session.
		// The refresh token is kept as is.
		Refresh() (Session, error)
		// Logout terminates the current session.
		Logout() error
		// Me returns the current user.
		Me() (*User, error)
		// Sessions returns the opened sessions of the current user.
		Sessions() ([]SessionInfo, error)
		// Session returns the session used for authentication.
		Session() Session
		// SetSession sets the session used for authentication.
		SetSession(session Session)
	}

	// Credentials are the identity asserted by a trusted service on login.
	Credentials struct {
		Provider string `json:"provider"`
		UID      string `json:"uid"`
		Email    string `json:"email,omitempty"`
	}

	p      map[string]any
	client struct {
		http     *http.Client
		endpoint string
		service  string
		session  Session
		now      func() time.Time
	}

	tokens struct {
		AccessToken           string `json:"access_token"`
		ExpiresIn             int    `json:"expires_in"`
		RefreshToken          string `json:"refresh_token"`
		RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	}
)

// NewDefaultClient returns a new Client with default HTTP client.
func NewDefaultClient(endpoint string) (Client, error) {
	return NewClient(http.DefaultClient, endpoint)
}

// NewClient returns a new Client.
func NewClient(c *http.Client, endpoint string) (Client, error) {
	_, err := url.Parse(endpoint)
	return &client{endpoint: endpoint, http: c, now: time.Now}, errors.Wrap(err, "could not parse endpoint")
}

func (c *client) SetServiceToken(token string) {
	c.service = token
}

func (c *client) Session() Session {
	return c.session
}

func (c *client) SetSession(session Session) {
	c.session = session
}

func (c *client) Login(credentials Credentials) (Session, error) {
	if c.service == "" {
		return Session{}, errors.New("no service token defined")
	}

	var t tokens
	now := c.now()
	if err := c.do(http.MethodPost, "/api/account/auths/login/", c.service, credentials, &t); err != nil {
		return Session{}, err
	}

	c.session = Session{
		AccessToken:       t.AccessToken,
		RefreshToken:      t.RefreshToken,
		AccessExpiration:  now.Add(time.Duration(t.ExpiresIn) * time.Second),
		RefreshExpiration: now.Add(time.Duration(t.RefreshTokenExpiresIn) * time.Second),
	}
	return c.session, nil
}

func (c *client) Refresh() (Session, error) {
	if c.session.RefreshToken == "" {
		return c.session, errors.New("no session defined")
	}

	var t tokens
	now := c.now()
	err := c.do(http.MethodPost, "/api/account/auths/refresh/", "", p{"refresh_token": c.session.RefreshToken}, &t)
	if err != nil {
		return c.session, err
	}

	c.session.AccessToken = t.AccessToken
	c.session.AccessExpiration = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return c.session, nil
}

func (c *client) Logout() error {
	if c.session.AccessToken == "" {
		return errors.New("no session defined")
	}

	return c.do(http.MethodPost, "/api/account/auths/logout/", c.session.AccessToken, nil, nil)
}

func (c *client) Me() (*User, error) {
	var user User
	err := c.do(http.MethodGet, "/api/account/users/me/", c.session.AccessToken, nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *client) Sessions() ([]SessionInfo, error) {
	var sessions []SessionInfo
	err := c.do(http.MethodGet, "/api/account/sessions/", c.session.AccessToken, nil, &sessions)
	return sessions, err
}

func (c *client) do(method, route, bearer string, payload, v any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return errors.Wrap(err, "could not parse endpoint")
	}
	u.Path = path.Join(u.Path, route) + "/"

	//
	// Build request
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "could not serialize payload")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if bearer != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}

	//
	// Perform request
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not perform request")
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return parseAPIError(res.Body, res.StatusCode)
	}
	if v == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	//
	// Process response
	dec := json.NewDecoder(res.Body)
	return errors.Wrap(dec.Decode(v), "could not parse response")
}
