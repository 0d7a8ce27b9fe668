package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/clear/internal/convert"
	"github.com/and161185/clear/internal/model"
)

// DefaultItemsPerPage is used when the store is constructed with a non-positive page size.
const DefaultItemsPerPage = 10

// TaskAPI is the part of the remote client used by the task store.
type TaskAPI interface {
	Tasks(ctx context.Context, q model.TaskQuery) (model.TaskPage, error)
	AddTask(ctx context.Context, d model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error
	UserStatus(ctx context.Context) (model.UserStatus, error)
}

// TaskStore holds one page of the remote task list together with its filter and paging state.
// All operations are silent no-ops while Anonymous.
type TaskStore interface {
	// FetchTasks replaces the page with the server's view of the current page and filter.
	FetchTasks(ctx context.Context) error
	// AddTask creates a task and prepends it to the page.
	AddTask(ctx context.Context, d model.TaskDraft) (model.Task, error)
	// UpdateTask sends upd and applies it to the page entry with the same id.
	UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) error
	// DeleteTask removes the task remotely and from the page.
	DeleteTask(ctx context.Context, id string) error
	// ToggleTaskCompletion flips the completion of a task on the page.
	ToggleTaskCompletion(ctx context.Context, id string) error

	SetCategory(ctx context.Context, id *string) error
	SetStatus(ctx context.Context, status *int) error
	SetKeyword(ctx context.Context, keyword string) error
	SetDateRange(ctx context.Context, from, to *time.Time) error
	ClearFilters(ctx context.Context) error
	// Navigate jumps to page with filter f in one fetch.
	Navigate(ctx context.Context, page int, f model.TaskFilter) error
	NextPage(ctx context.Context) error
	PrevPage(ctx context.Context) error

	TaskByID(id string) (model.Task, bool)
	Tasks() []model.Task
	Page() model.Pagination
	Filter() model.TaskFilter
	Busy() bool

	// Page-local derived views.
	PendingTasks() []model.Task
	CompletedTasks() []model.Task
	PendingCount() int
	CompletedCount() int
	// GlobalCounts returns done/undone counts over the whole remote collection.
	GlobalCounts(ctx context.Context) (model.UserStatus, error)
}

// listState is what a fetch reads; setters replace it wholesale.
type listState struct {
	page   int
	filter model.TaskFilter
}

type TaskStoreImpl struct {
	api     TaskAPI
	auth    Authenticator
	log     *zap.Logger
	perPage int

	mu         sync.Mutex
	tasks      []model.Task
	state      listState
	total      int
	totalPages int
	busy       int
	seq        uint64
}

var _ TaskStore = (*TaskStoreImpl)(nil)

// NewTaskStore constructs a store on page 1 with no filter. perPage is fixed for the store's lifetime.
func NewTaskStore(api TaskAPI, auth Authenticator, perPage int, log *zap.Logger) *TaskStoreImpl {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskStoreImpl{
		api:     api,
		auth:    auth,
		log:     log,
		perPage: perPage,
		state:   listState{page: 1},
	}
}

func (s *TaskStoreImpl) FetchTasks(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	return s.fetch(ctx, nil)
}

// fetch loads the page for the current state, switching to next first when it is non-nil.
// Stale responses are not applied. A failed latest response reverts a switch to the state
// held before it.
func (s *TaskStoreImpl) fetch(ctx context.Context, next *listState) error {
	s.mu.Lock()
	prev := s.state
	if next != nil {
		s.state = *next
	}
	s.seq++
	seq := s.seq
	s.busy++
	q := s.queryLocked()
	s.mu.Unlock()

	page, err := s.api.Tasks(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy--
	if seq != s.seq {
		s.log.Debug("discard stale task page", zap.Uint64("seq", seq), zap.Uint64("latest", s.seq))
		return err
	}
	if err != nil {
		if next != nil {
			s.state = prev
		}
		return err
	}
	s.tasks = page.Tasks
	s.total = page.Total
	s.totalPages = page.TotalPages
	return nil
}

func (s *TaskStoreImpl) queryLocked() model.TaskQuery {
	f := s.state.filter
	return model.TaskQuery{
		Page:       s.state.page,
		PageSize:   s.perPage,
		CategoryID: f.CategoryID,
		Status:     f.Status,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Keyword:    f.Keyword,
	}
}

// moveTo switches to next and refetches; see fetch for how failures revert.
func (s *TaskStoreImpl) moveTo(ctx context.Context, next listState) error {
	return s.fetch(ctx, &next)
}

// refilter applies change to a copy of the filter and refetches from page 1 when it differs.
func (s *TaskStoreImpl) refilter(ctx context.Context, change func(f *model.TaskFilter)) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	cur := s.state.filter
	s.mu.Unlock()

	next := cur
	change(&next)
	if sameFilter(cur, next) {
		return nil
	}
	return s.moveTo(ctx, listState{page: 1, filter: next})
}

func (s *TaskStoreImpl) SetCategory(ctx context.Context, id *string) error {
	return s.refilter(ctx, func(f *model.TaskFilter) { f.CategoryID = clone(id) })
}

func (s *TaskStoreImpl) SetStatus(ctx context.Context, status *int) error {
	return s.refilter(ctx, func(f *model.TaskFilter) { f.Status = clone(status) })
}

func (s *TaskStoreImpl) SetKeyword(ctx context.Context, keyword string) error {
	return s.refilter(ctx, func(f *model.TaskFilter) { f.Keyword = keyword })
}

func (s *TaskStoreImpl) SetDateRange(ctx context.Context, from, to *time.Time) error {
	return s.refilter(ctx, func(f *model.TaskFilter) {
		f.StartDate = clone(from)
		f.EndDate = clone(to)
	})
}

// ClearFilters drops every filter and returns to page 1.
func (s *TaskStoreImpl) ClearFilters(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	cur := s.state
	s.mu.Unlock()
	if cur.filter.IsZero() && cur.page == 1 {
		return nil
	}
	return s.moveTo(ctx, listState{page: 1})
}

func (s *TaskStoreImpl) Navigate(ctx context.Context, page int, f model.TaskFilter) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	if page < 1 {
		page = 1
	}
	f.CategoryID = clone(f.CategoryID)
	f.Status = clone(f.Status)
	f.StartDate = clone(f.StartDate)
	f.EndDate = clone(f.EndDate)
	return s.moveTo(ctx, listState{page: page, filter: f})
}

// NextPage is a no-op on the last page.
func (s *TaskStoreImpl) NextPage(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	cur := s.state
	last := s.totalPages
	s.mu.Unlock()
	if cur.page >= last {
		return nil
	}
	cur.page++
	return s.moveTo(ctx, cur)
}

// PrevPage is a no-op on the first page.
func (s *TaskStoreImpl) PrevPage(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.mu.Lock()
	cur := s.state
	s.mu.Unlock()
	if cur.page <= 1 {
		return nil
	}
	cur.page--
	return s.moveTo(ctx, cur)
}

// AddTask prepends the created task; its id may be provisional until the next fetch.
func (s *TaskStoreImpl) AddTask(ctx context.Context, d model.TaskDraft) (model.Task, error) {
	if !s.auth.IsAuthenticated() {
		return model.Task{}, nil
	}
	s.begin()
	t, err := s.api.AddTask(ctx, d)
	s.end()
	if err != nil {
		return model.Task{}, err
	}
	s.mu.Lock()
	s.tasks = append([]model.Task{t}, s.tasks...)
	s.mu.Unlock()
	return t, nil
}

// UpdateTask applies upd locally after the backend accepted it. A task not on the page is
// left out of view.
func (s *TaskStoreImpl) UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) error {
	if !s.auth.IsAuthenticated() || upd.Empty() {
		return nil
	}
	s.begin()
	err := s.api.UpdateTask(ctx, id, upd)
	s.end()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks[i] = convert.ApplyUpdate(s.tasks[i], upd)
	}
	return nil
}

func (s *TaskStoreImpl) DeleteTask(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	s.begin()
	err := s.api.DeleteTask(ctx, id)
	s.end()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
	return nil
}

// ToggleTaskCompletion sends a status-only update for a task on the current page.
// A task not on the page is ignored.
func (s *TaskStoreImpl) ToggleTaskCompletion(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return nil
	}
	t, ok := s.TaskByID(id)
	if !ok {
		return nil
	}
	done := !t.Completed
	return s.UpdateTask(ctx, id, model.TaskUpdate{Completed: &done})
}

func (s *TaskStoreImpl) TaskByID(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

func (s *TaskStoreImpl) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

func (s *TaskStoreImpl) Page() model.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Pagination{
		CurrentPage:  s.state.page,
		ItemsPerPage: s.perPage,
		TotalPages:   s.totalPages,
		Total:        s.total,
	}
}

func (s *TaskStoreImpl) Filter() model.TaskFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.state.filter
	f.CategoryID = clone(f.CategoryID)
	f.Status = clone(f.Status)
	f.StartDate = clone(f.StartDate)
	f.EndDate = clone(f.EndDate)
	return f
}

func (s *TaskStoreImpl) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy > 0
}

func (s *TaskStoreImpl) PendingTasks() []model.Task   { return s.where(false) }
func (s *TaskStoreImpl) CompletedTasks() []model.Task { return s.where(true) }
func (s *TaskStoreImpl) PendingCount() int            { return len(s.where(false)) }
func (s *TaskStoreImpl) CompletedCount() int          { return len(s.where(true)) }

func (s *TaskStoreImpl) GlobalCounts(ctx context.Context) (model.UserStatus, error) {
	if !s.auth.IsAuthenticated() {
		return model.UserStatus{}, nil
	}
	return s.api.UserStatus(ctx)
}

func (s *TaskStoreImpl) where(completed bool) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

func (s *TaskStoreImpl) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStoreImpl) begin() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
}

func (s *TaskStoreImpl) end() {
	s.mu.Lock()
	s.busy--
	s.mu.Unlock()
}

func sameFilter(a, b model.TaskFilter) bool {
	return samePtr(a.CategoryID, b.CategoryID) &&
		samePtr(a.Status, b.Status) &&
		a.Keyword == b.Keyword &&
		sameTime(a.StartDate, b.StartDate) &&
		sameTime(a.EndDate, b.EndDate)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
