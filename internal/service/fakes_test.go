package service

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/clear/internal/model"
)

type fakeAuth struct{ ok bool }

var _ Authenticator = (*fakeAuth)(nil)

func (f *fakeAuth) IsAuthenticated() bool { return f.ok }

type note struct {
	msg string
	sev model.Severity
}

type recNotifier struct {
	mu  sync.Mutex
	got []note
}

var _ Notifier = (*recNotifier)(nil)

func (r *recNotifier) Show(msg string, sev model.Severity, _ time.Duration) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, note{msg, sev})
	return int64(len(r.got))
}

func (r *recNotifier) all() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]note(nil), r.got...)
}

// fakeAPI implements every remote interface the stores use. Hooks default to success.
type fakeAPI struct {
	mu sync.Mutex

	session   *model.Session
	loginErr  error
	themeErr  error
	codeReply string
	status    model.UserStatus

	cats       []model.Category
	catsErr    error
	catMutErr  error
	catCalls   int
	catMutated []string

	tasksFn   func(q model.TaskQuery) (model.TaskPage, error)
	queries   []model.TaskQuery
	added     model.Task
	addErr    error
	updErr    error
	delErr    error
	updates   map[string]model.TaskUpdate
	deleted   []string
	themes    []int
	checked   []string
	statusHit int
}

var (
	_ AuthAPI     = (*fakeAPI)(nil)
	_ CategoryAPI = (*fakeAPI)(nil)
	_ TaskAPI     = (*fakeAPI)(nil)
)

func (f *fakeAPI) Login(_ context.Context, _ model.Credentials) (*model.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	cp := *f.session
	return &cp, nil
}

func (f *fakeAPI) Register(ctx context.Context, c model.Credentials) (*model.Session, error) {
	return f.Login(ctx, c)
}

func (f *fakeAPI) UpdateTheme(_ context.Context, theme int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes = append(f.themes, theme)
	return f.themeErr
}

func (f *fakeAPI) SendCode(context.Context, string) (string, error) { return f.codeReply, nil }

func (f *fakeAPI) CheckCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, email+"/"+code)
	return nil
}

func (f *fakeAPI) UserStatus(context.Context) (model.UserStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusHit++
	return f.status, nil
}

func (f *fakeAPI) Categories(context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catCalls++
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	return append([]model.Category(nil), f.cats...), nil
}

func (f *fakeAPI) mutateCat(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catMutated = append(f.catMutated, op)
	return f.catMutErr
}

func (f *fakeAPI) AddCategory(_ context.Context, name string) error { return f.mutateCat("add " + name) }
func (f *fakeAPI) UpdateCategory(_ context.Context, id, name string) error {
	return f.mutateCat("update " + id + " " + name)
}
func (f *fakeAPI) DeleteCategory(_ context.Context, id string) error { return f.mutateCat("delete " + id) }

func (f *fakeAPI) Tasks(_ context.Context, q model.TaskQuery) (model.TaskPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.tasksFn
	f.mu.Unlock()
	if fn == nil {
		return model.TaskPage{}, nil
	}
	p, err := fn(q)
	p.Tasks = append([]model.Task(nil), p.Tasks...)
	return p, err
}

func (f *fakeAPI) taskQueries() []model.TaskQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TaskQuery(nil), f.queries...)
}

func (f *fakeAPI) AddTask(context.Context, model.TaskDraft) (model.Task, error) {
	return f.added, f.addErr
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, upd model.TaskUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updErr != nil {
		return f.updErr
	}
	if f.updates == nil {
		f.updates = map[string]model.TaskUpdate{}
	}
	f.updates[id] = upd
	return nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}
