package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu     sync.Mutex
	paths  []string
	bodies map[string]string
	srv    *httptest.Server
}

// withBackend points the CLI at a backend answering path -> envelope; unknown paths get code 0.
func withBackend(t *testing.T, replies map[string]string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{bodies: map[string]string{}}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.paths = append(b.paths, key)
		b.bodies[key] = string(body)
		b.mu.Unlock()
		reply, ok := replies[key]
		if !ok {
			reply = `{"code":0,"msg":"unexpected ` + key + `"}`
		}
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(b.srv.Close)
	t.Setenv("CLEAR_API_URL", b.srv.URL)
	return b
}

func (b *fakeBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.paths...)
}

func (b *fakeBackend) body(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clear")
	t.Setenv("CLEAR_CONFIG_DIR", dir)
	t.Setenv("CLEAR_DEBUG", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeSession(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"),
		[]byte(`{"id":1,"username":"alice","tk":"T1"}`), 0o600))
}

func Test_login_SavesSession(t *testing.T) {
	dir := withTmpConfig(t)
	withBackend(t, map[string]string{
		"POST /user/login": `{"code":1,"msg":"success","data":{"id":1,"username":"alice","tk":"T1"}}`,
	})

	code, _, errOut := runCLI(t, "login", "-u", "alice", "-p", "p1")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "[success] Login successful\n", errOut)

	b, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"username":"alice","tk":"T1"}`, string(b))

	code, out, _ := runCLI(t, "whoami")
	require.Equal(t, 0, code)
	require.Contains(t, out, `"username": "alice"`)
}

func Test_login_Failure_PrintedOnce(t *testing.T) {
	withTmpConfig(t)
	withBackend(t, map[string]string{
		"POST /user/login": `{"code":0,"msg":"Wrong password"}`,
	})

	code, _, errOut := runCLI(t, "login", "-u", "alice", "-p", "bad")
	require.Equal(t, 1, code)
	require.Equal(t, "[error] Wrong password\n", errOut)
}

func Test_logout_RemovesSession(t *testing.T) {
	dir := withTmpConfig(t)
	withBackend(t, nil)
	writeSession(t, dir)

	code, _, _ := runCLI(t, "logout")
	require.Equal(t, 0, code)
	_, err := os.Stat(filepath.Join(dir, "session.json"))
	require.True(t, os.IsNotExist(err))

	code, _, errOut := runCLI(t, "whoami")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "clear login")
}

func Test_anonymous_NoRequests(t *testing.T) {
	withTmpConfig(t)
	b := withBackend(t, nil)

	code, _, errOut := runCLI(t, "tasks", "list")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unauthenticated")
	require.Empty(t, b.calls())
}

func Test_tasks_list(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	b := withBackend(t, map[string]string{
		"GET /todo/page": `{"code":1,"data":{"records":[{"id":5,"title":"X","status":1},{"id":6,"title":"Y","status":0}],"total":2}}`,
	})

	code, out, errOut := runCLI(t, "tasks", "list", "--status", "done", "--keyword", "x")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, []string{"GET /todo/page"}, b.calls())

	var got taskListing
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Tasks, 2)
	require.True(t, got.Tasks[0].Completed)
	require.Equal(t, 1, got.Page.TotalPages)
	require.Equal(t, 1, got.Pending)
	require.Equal(t, 1, got.Completed)
}

func Test_tasks_add_UsesCategoryName(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	b := withBackend(t, map[string]string{
		"GET /category/categories": `{"code":1,"data":[{"categoryId":2,"categoryName":"Home"}]}`,
		"POST /todo/addTodo":       `{"code":1,"data":{}}`,
	})

	code, out, errOut := runCLI(t, "tasks", "add", "Buy milk", "--category", "2")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, errOut, "[info] Task added")
	require.JSONEq(t, `{"title":"Buy milk","content":"","categoryId":2,"dueDate":null}`, b.body("POST /todo/addTodo"))

	var task struct {
		ID          string `json:"id"`
		Category    string `json:"category"`
		Completed   bool   `json:"completed"`
		Provisional bool   `json:"provisional"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	require.NotEmpty(t, task.ID)
	require.Equal(t, "Home", task.Category)
	require.False(t, task.Completed)
	require.True(t, task.Provisional)
}

func Test_tasks_done_StatusOnly(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	b := withBackend(t, map[string]string{"PUT /todo/updateTodo": `{"code":1}`})

	code, _, errOut := runCLI(t, "tasks", "done", "9")
	require.Equal(t, 0, code, errOut)
	require.JSONEq(t, `{"id":9,"status":1}`, b.body("PUT /todo/updateTodo"))
}

func Test_tasks_edit(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	b := withBackend(t, map[string]string{"PUT /todo/updateTodo": `{"code":1}`})

	code, _, errOut := runCLI(t, "tasks", "edit", "9", "--title", "new", "--clear-due")
	require.Equal(t, 0, code, errOut)
	require.JSONEq(t, `{"id":9,"title":"new","dueDate":null}`, b.body("PUT /todo/updateTodo"))

	code, _, errOut = runCLI(t, "tasks", "edit", "9")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "nothing to change")
}

func Test_tasks_toggle(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	b := withBackend(t, map[string]string{
		"GET /todo/page":       `{"code":1,"data":{"records":[{"id":5,"title":"X","status":1}],"total":1}}`,
		"PUT /todo/updateTodo": `{"code":1}`,
	})

	code, out, errOut := runCLI(t, "tasks", "toggle", "5")
	require.Equal(t, 0, code, errOut)
	require.JSONEq(t, `{"id":5,"status":0}`, b.body("PUT /todo/updateTodo"))
	require.Contains(t, out, `"completed": false`)

	code, _, errOut = runCLI(t, "tasks", "toggle", "77")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not on page 1")
}

func Test_categories_EmptyFallsBackToDefault(t *testing.T) {
	dir := withTmpConfig(t)
	writeSession(t, dir)
	withBackend(t, map[string]string{"GET /category/categories": `{"code":1,"data":[]}`})

	code, out, _ := runCLI(t, "categories")
	require.Equal(t, 0, code)
	require.JSONEq(t, `[{"categoryId":"0","categoryName":"Default"}]`, out)
}

func Test_flags_OverrideEnv(t *testing.T) {
	withTmpConfig(t)
	other := filepath.Join(t.TempDir(), "elsewhere")
	writeSession(t, other)
	b := withBackend(t, map[string]string{"GET /user/status": `{"code":1,"data":{"username":"alice","numOfDone":2,"numOfUndone":5}}`})
	t.Setenv("CLEAR_API_URL", "http://127.0.0.1:1")

	code, out, errOut := runCLI(t, "--config-dir", other, "--api", b.srv.URL, "status")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, `"numOfUndone": 5`)
}

func Test_config_Invalid(t *testing.T) {
	withTmpConfig(t)
	t.Setenv("CLEAR_API_URL", "ftp://nope")

	code, _, errOut := runCLI(t, "whoami")
	require.Equal(t, 1, code)
	require.True(t, strings.HasPrefix(errOut, "error: config:"), errOut)
}
