// Package remote is the HTTP client of the task backend: it builds authenticated requests,
// unwraps the {code, msg, data} envelope and turns every failure into one notification.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	u "github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/model"
)

const (
	codeOK       = 1
	maxBodyBytes = 8 << 20
	tracerName   = "github.com/and161185/clear/internal/remote"
)

// TokenSource resolves the bearer token of the current session.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, bool)

// Token calls f.
func (f TokenFunc) Token() (string, bool) { return f() }

// Notifier receives user-facing messages.
type Notifier interface {
	Show(message string, sev model.Severity, d time.Duration) int64
}

type nopNotifier struct{}

func (nopNotifier) Show(string, model.Severity, time.Duration) int64 { return 0 }

// Options configures Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client // nil uses a client with Timeout
	Timeout        time.Duration
	NotifyDuration time.Duration // 0 leaves the duration to the notifier
	TracerProvider trace.TracerProvider
}

// Client talks to the backend REST API.
type Client struct {
	base      string
	http      *http.Client
	tokens    TokenSource
	notifier  Notifier
	notifyDur time.Duration
	log       *zap.Logger
	tracer    trace.Tracer
	newID     func() (string, error)
	now       func() time.Time
}

// New constructs a client. tokens may be nil when only login/register are used.
func New(opts Options, tokens TokenSource, n Notifier, log *zap.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if tokens == nil {
		tokens = TokenFunc(func() (string, bool) { return "", false })
	}
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		http:      hc,
		tokens:    tokens,
		notifier:  n,
		notifyDur: opts.NotifyDuration,
		log:       log,
		tracer:    tp.Tracer(tracerName),
		newID:     newUUID,
		now:       time.Now,
	}
}

func newUUID() (string, error) {
	id, err := u.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// envelope is the uniform response wrapper; code 1 means success.
type envelope struct {
	Code *int            `json:"code"`
	Msg  *string         `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// request describes one backend call.
type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     any
	auth     bool
	okMsg    string // success text when the backend sends no msg
	failMsg  string // error text when the backend sends no msg
	showData bool   // show data instead of msg on success
	quiet    bool   // no success notification
}

// call performs r and decodes data into out (may be nil).
func (c *Client) call(ctx context.Context, r request, out any) error {
	ctx, span := c.tracer.Start(ctx, "remote."+r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("url.path", r.path),
		),
	)
	defer span.End()
	start := time.Now()

	var token string
	if r.auth {
		tok, ok := c.tokens.Token()
		if !ok || tok == "" {
			return c.fail(span, r, errs.Unauthenticated(r.op), start)
		}
		token = tok
	}

	req, err := c.newRequest(ctx, r, token)
	if err != nil {
		return c.fail(span, r, errs.RequestFailed(r.op, 0, err), start)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(span, r, errs.RequestFailed(r.op, 0, err), start)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(span, r, errs.RequestFailed(r.op, resp.StatusCode, err), start)
	}
	var env envelope
	if err := sonic.ConfigStd.Unmarshal(body, &env); err != nil || env.Code == nil {
		cause := err
		if cause == nil {
			cause = fmt.Errorf("http %d: response without envelope", resp.StatusCode)
		}
		return c.fail(span, r, errs.RequestFailed(r.op, resp.StatusCode, cause), start)
	}
	span.SetAttributes(attribute.Int("clear.code", *env.Code))

	if *env.Code != codeOK {
		msg := firstNonEmpty(deref(env.Msg), r.failMsg, "Request failed")
		return c.fail(span, r, errs.API(r.op, *env.Code, resp.StatusCode, msg), start)
	}
	if out != nil && hasData(env.Data) {
		if err := sonic.ConfigStd.Unmarshal(env.Data, out); err != nil {
			return c.fail(span, r, errs.RequestFailed(r.op, resp.StatusCode, fmt.Errorf("decode data: %w", err)), start)
		}
	}

	if !r.quiet {
		if text := successText(r, env); text != "" {
			c.notifier.Show(text, model.SeverityInfo, c.notifyDur)
		}
	}
	c.log.Debug("remote call",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)
	return nil
}

func (c *Client) newRequest(ctx context.Context, r request, token string) (*http.Request, error) {
	target := c.base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var body io.Reader
	if r.body != nil {
		b, err := sonic.ConfigStd.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// fail notifies once, marks the error as notified and records it on the span.
func (c *Client) fail(span trace.Span, r request, e *errs.Error, start time.Time) error {
	c.reject(r, e)
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Error())
	c.log.Warn("remote call failed",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", e.Status),
		zap.Duration("dur", time.Since(start)),
		zap.Error(e),
	)
	return e
}

// reject shows the error notification and marks e. Used directly for post-call validation.
func (c *Client) reject(r request, e *errs.Error) {
	c.notifier.Show(failureText(r, e), model.SeverityError, c.notifyDur)
	e.Notified = true
}

func failureText(r request, e *errs.Error) string {
	switch e.Kind {
	case errs.ErrUnauthenticated:
		return "Please log in first"
	case errs.ErrRequestFailed:
		return firstNonEmpty(r.failMsg, "Network error, please try again later")
	default:
		return e.Message
	}
}

func successText(r request, env envelope) string {
	if r.showData {
		if s := dataText(env.Data); s != "" {
			return s
		}
	}
	return firstNonEmpty(deref(env.Msg), r.okMsg)
}

// dataText renders scalar data for display; strings are unquoted.
func dataText(raw json.RawMessage) string {
	if !hasData(raw) {
		return ""
	}
	var s string
	if err := sonic.ConfigStd.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func hasData(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
