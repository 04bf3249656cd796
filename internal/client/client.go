package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"camdash/pkg/models"
)

// SessionCookie is the cookie the dashboard server uses for its session.
const SessionCookie = "camdash_session"

// PushPath is the websocket endpoint of the live channel.
const PushPath = "/api/ws"

type Client struct {
	HTTP   *resty.Client
	Config ClientConfig
	base   *url.URL
}

type ClientConfig struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool // self-signed certs on on-prem installs
}

func New(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	r := resty.New()
	r.SetBaseURL(base.String())
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}
	if cfg.InsecureSkipVerify {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		HTTP:   r,
		Config: cfg,
		base:   base,
	}, nil
}

// Jar returns the cookie jar holding the session cookie. The push channel
// dials with the same jar so the socket is authenticated too.
func (c *Client) Jar() http.CookieJar {
	return c.HTTP.GetClient().Jar
}

// SessionToken returns the current session cookie value, or "" when the
// client has no session.
func (c *Client) SessionToken() string {
	jar := c.Jar()
	if jar == nil {
		return ""
	}
	for _, ck := range jar.Cookies(c.base) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// UseSession restores a session token saved by a previous login.
func (c *Client) UseSession(token string) {
	jar := c.Jar()
	if jar == nil || token == "" {
		return
	}
	jar.SetCookies(c.base, []*http.Cookie{{Name: SessionCookie, Value: token, Path: "/"}})
}

// PushURL is the websocket URL of the live channel on the same host.
func (c *Client) PushURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + PushPath
	return u.String()
}

// CheckSetup asks whether the initial administrator still has to be created.
func (c *Client) CheckSetup(ctx context.Context) (models.SetupStatus, error) {
	var out models.SetupStatus
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/setup/status")
	if err := check("check setup", resp, err); err != nil {
		return models.SetupStatus{}, err
	}
	return out, nil
}

// CheckAuthStatus reports whether the current session cookie is valid.
func (c *Client) CheckAuthStatus(ctx context.Context) (models.AuthStatus, error) {
	var out models.AuthStatus
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/auth/status")
	if err := check("check auth status", resp, err); err != nil {
		if IsAuthError(err) {
			return models.AuthStatus{}, nil
		}
		return models.AuthStatus{}, err
	}
	if out.Authenticated && out.User == nil {
		return models.AuthStatus{}, &ProtocolError{Op: "check auth status", Reason: "authenticated without user"}
	}
	return out, nil
}

// Login authenticates and keeps the session cookie in the jar.
func (c *Client) Login(ctx context.Context, username, password string) (models.User, error) {
	var out models.LoginResponse
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(models.Credentials{Username: username, Password: password}).
		SetResult(&out).
		Post("/api/auth/login")
	if err := check("login", resp, err); err != nil {
		if IsAuthError(err) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if out.User.Username == "" {
		return models.User{}, &ProtocolError{Op: "login", Reason: "response has no user"}
	}
	return out.User, nil
}

// Register creates a user. During first-run setup this creates the admin.
func (c *Client) Register(ctx context.Context, username, password string) (models.RegisterResponse, error) {
	var out models.RegisterResponse
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(models.Credentials{Username: username, Password: password}).
		SetResult(&out).
		Post("/api/auth/register")
	if err := check("register", resp, err); err != nil {
		return models.RegisterResponse{}, err
	}
	return out, nil
}

// Logout ends the server session and drops the local cookie either way.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.HTTP.R().
		SetContext(ctx).
		Post("/api/auth/logout")

	if jar := c.Jar(); jar != nil {
		jar.SetCookies(c.base, []*http.Cookie{{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1}})
	}
	return check("logout", resp, err)
}
