package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/model"
)

// Login exchanges credentials for a session. The caller announces success.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	return c.authenticate(ctx, request{
		op:      "Login",
		method:  http.MethodPost,
		path:    "/user/login",
		body:    creds,
		failMsg: "Login failed",
		quiet:   true,
	})
}

// Register creates an account and returns its session. The caller announces success.
func (c *Client) Register(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	return c.authenticate(ctx, request{
		op:      "Register",
		method:  http.MethodPost,
		path:    "/user/register",
		body:    creds,
		failMsg: "Registration failed",
		quiet:   true,
	})
}

func (c *Client) authenticate(ctx context.Context, r request) (*model.Session, error) {
	var s model.Session
	if err := c.call(ctx, r, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		e := errs.API(r.op, codeOK, http.StatusOK, "Server returned no token")
		c.reject(r, e)
		return nil, e
	}
	return &s, nil
}

// UpdateTheme stores the preferred theme id.
func (c *Client) UpdateTheme(ctx context.Context, theme int) error {
	return c.call(ctx, request{
		op:      "UpdateTheme",
		method:  http.MethodPut,
		path:    "/user/theme/" + strconv.Itoa(theme),
		auth:    true,
		okMsg:   "Theme updated",
		failMsg: "Failed to update theme",
	}, nil)
}

// SendCode asks the backend to mail a verification code and returns its confirmation text,
// which is also shown as the success notification. Non-string data is rendered as sent.
func (c *Client) SendCode(ctx context.Context, email string) (string, error) {
	var confirmation json.RawMessage
	err := c.call(ctx, request{
		op:       "SendCode",
		method:   http.MethodPost,
		path:     "/user/send/" + url.PathEscape(email),
		auth:     true,
		showData: true,
		okMsg:    "Verification code sent",
		failMsg:  "Failed to send verification code",
	}, &confirmation)
	if err != nil {
		return "", err
	}
	return dataText(confirmation), nil
}

// CheckCode verifies the code mailed to email.
func (c *Client) CheckCode(ctx context.Context, email, code string) error {
	return c.call(ctx, request{
		op:      "CheckCode",
		method:  http.MethodPost,
		path:    "/user/check/" + url.PathEscape(email) + "/" + url.PathEscape(code),
		auth:    true,
		okMsg:   "Email verified",
		failMsg: "Verification failed",
	}, nil)
}

// UserStatus returns the global done/undone counts.
func (c *Client) UserStatus(ctx context.Context) (model.UserStatus, error) {
	var st model.UserStatus
	err := c.call(ctx, request{
		op:      "UserStatus",
		method:  http.MethodGet,
		path:    "/user/status",
		auth:    true,
		failMsg: "Failed to load statistics",
	}, &st)
	return st, err
}
