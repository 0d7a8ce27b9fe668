package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/model"
)

type shown struct {
	msg string
	sev model.Severity
}

type recNotifier struct {
	mu  sync.Mutex
	got []shown
}

var _ Notifier = (*recNotifier)(nil)

func (r *recNotifier) Show(msg string, sev model.Severity, _ time.Duration) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, shown{msg, sev})
	return int64(len(r.got))
}

func (r *recNotifier) all() []shown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shown(nil), r.got...)
}

type hit struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

type backend struct {
	mu   sync.Mutex
	hits []hit
	srv  *httptest.Server
}

// newBackend answers every request with reply(path) as the raw response body.
func newBackend(t *testing.T, reply func(r *http.Request) string) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.hits = append(b.hits, hit{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply(r))
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) requests() []hit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]hit(nil), b.hits...)
}

func fixed(body string) func(*http.Request) string {
	return func(*http.Request) string { return body }
}

func newClient(t *testing.T, base, token string) (*Client, *recNotifier, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exp)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	n := &recNotifier{}
	tokens := TokenFunc(func() (string, bool) { return token, token != "" })
	c := New(Options{BaseURL: base + "/", TracerProvider: tp}, tokens, n, zap.NewNop())
	return c, n, exp
}

func TestCall_SendsBearerToken(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"msg":null,"data":[]}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Empty(t, cats)

	hits := b.requests()
	require.Len(t, hits, 1)
	require.Equal(t, http.MethodGet, hits[0].method)
	require.Equal(t, "/category/categories", hits[0].path)
	require.Equal(t, "Bearer T1", hits[0].auth)
	require.Empty(t, n.all(), "no msg and no default text means no notification")
}

func TestCall_NoToken_NoRequest(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1}`))
	c, n, _ := newClient(t, b.srv.URL, "")

	err := c.DeleteTask(context.Background(), "5")
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.True(t, errs.Notified(err))
	require.Empty(t, b.requests())
	require.Equal(t, []shown{{"Please log in first", model.SeverityError}}, n.all())
}

func TestCall_APIError_NotifiedOnce(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":0,"msg":"Category exists","data":null}`))
	c, n, exp := newClient(t, b.srv.URL, "T1")

	err := c.AddCategory(context.Background(), "Home")
	require.ErrorIs(t, err, errs.ErrAPI)
	e, ok := errs.As(err)
	require.True(t, ok)
	require.True(t, e.Notified)
	require.Equal(t, "Category exists", e.Message)
	require.Equal(t, 0, e.Code)
	require.Equal(t, []shown{{"Category exists", model.SeverityError}}, n.all())
	require.JSONEq(t, `{"name":"Home"}`, b.requests()[0].body)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "remote.AddCategory", spans[0].Name)
	require.Equal(t, codes.Error, spans[0].Status.Code)
	require.Contains(t, spans[0].Attributes, attribute.Int("clear.code", 0))
}

func TestCall_APIError_DefaultMessage(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":500}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	err := c.UpdateCategory(context.Background(), "3", "Work")
	require.ErrorIs(t, err, errs.ErrAPI)
	require.Equal(t, "Failed to update category", errs.Message(err))
	require.Len(t, n.all(), 1)
	require.JSONEq(t, `{"id":3,"name":"Work"}`, b.requests()[0].body)
}

func TestCall_TransportFailure(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{}`))
	url := b.srv.URL
	b.srv.Close()
	c, n, _ := newClient(t, url, "T1")

	_, err := c.UserStatus(context.Background())
	require.ErrorIs(t, err, errs.ErrRequestFailed)
	require.True(t, errs.Notified(err))
	require.Equal(t, []shown{{"Failed to load statistics", model.SeverityError}}, n.all())
}

func TestCall_BodyWithoutEnvelope(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`<html>bad gateway</html>`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	err := c.DeleteCategory(context.Background(), "1")
	require.ErrorIs(t, err, errs.ErrRequestFailed)
	require.Len(t, n.all(), 1)
}

func TestCall_SuccessNotification(t *testing.T) {
	t.Parallel()

	b := newBackend(t, fixed(`{"code":1,"msg":"deleted!"}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")
	require.NoError(t, c.DeleteCategory(context.Background(), "4"))
	require.Equal(t, "/category/delete/4", b.requests()[0].path)
	require.Equal(t, []shown{{"deleted!", model.SeverityInfo}}, n.all())

	b = newBackend(t, fixed(`{"code":1,"msg":null}`))
	c, n, _ = newClient(t, b.srv.URL, "T1")
	require.NoError(t, c.UpdateTheme(context.Background(), 2))
	require.Equal(t, http.MethodPut, b.requests()[0].method)
	require.Equal(t, "/user/theme/2", b.requests()[0].path)
	require.Equal(t, []shown{{"Theme updated", model.SeverityInfo}}, n.all())
}

func TestSendCode_ShowsData(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"msg":"ok","data":"Code sent to a@b.c"}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	got, err := c.SendCode(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "Code sent to a@b.c", got)
	require.Equal(t, "/user/send/a@b.c", b.requests()[0].path)
	require.Equal(t, []shown{{"Code sent to a@b.c", model.SeverityInfo}}, n.all())
}

func TestSendCode_NumericData(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"msg":null,"data":123456}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	got, err := c.SendCode(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "123456", got)
	require.Equal(t, []shown{{"123456", model.SeverityInfo}}, n.all())
}

func TestSendCode_NoData(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"msg":null,"data":null}`))
	c, n, _ := newClient(t, b.srv.URL, "T1")

	got, err := c.SendCode(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, []shown{{"Verification code sent", model.SeverityInfo}}, n.all())
}

func TestCheckCode_Path(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1}`))
	c, _, _ := newClient(t, b.srv.URL, "T1")

	require.NoError(t, c.CheckCode(context.Background(), "a@b.c", "1234"))
	require.Equal(t, http.MethodPost, b.requests()[0].method)
	require.Equal(t, "/user/check/a@b.c/1234", b.requests()[0].path)
}

func TestLogin_ReturnsSessionQuietly(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"msg":"success","data":{"id":1,"username":"alice","tk":"T1"}}`))
	c, n, _ := newClient(t, b.srv.URL, "")

	s, err := c.Login(context.Background(), model.Credentials{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	require.Equal(t, &model.Session{ID: "1", Username: "alice", Token: "T1"}, s)
	require.Empty(t, n.all())

	h := b.requests()[0]
	require.Equal(t, "/user/login", h.path)
	require.Empty(t, h.auth)
	require.JSONEq(t, `{"username":"alice","password":"p1"}`, h.body)
}

func TestLogin_NoToken(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"data":{"id":1,"username":"alice"}}`))
	c, n, _ := newClient(t, b.srv.URL, "")

	s, err := c.Register(context.Background(), model.Credentials{Username: "alice", Password: "p1"})
	require.Nil(t, s)
	require.ErrorIs(t, err, errs.ErrAPI)
	require.True(t, errs.Notified(err))
	require.Len(t, n.all(), 1)
	require.Equal(t, "/user/register", b.requests()[0].path)
}

func TestUserStatus(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1,"data":{"username":"alice","numOfDone":3,"numOfUndone":4}}`))
	c, _, exp := newClient(t, b.srv.URL, "T1")

	st, err := c.UserStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.UserStatus{Username: "alice", NumOfDone: 3, NumOfUndone: 4}, st)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "remote.UserStatus", spans[0].Name)
	require.Contains(t, spans[0].Attributes, attribute.Int("http.status_code", http.StatusOK))
	require.Contains(t, spans[0].Attributes, attribute.String("url.path", "/user/status"))
}

func TestCall_ContextCanceled(t *testing.T) {
	t.Parallel()
	b := newBackend(t, fixed(`{"code":1}`))
	c, _, _ := newClient(t, b.srv.URL, "T1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Categories(ctx)
	require.ErrorIs(t, err, errs.ErrRequestFailed)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNew_TrimsBaseURL(t *testing.T) {
	t.Parallel()
	c := New(Options{BaseURL: "http://x/api///"}, nil, nil, nil)
	require.Equal(t, "http://x/api", c.base)
	_, ok := c.tokens.Token()
	require.False(t, ok)
}
