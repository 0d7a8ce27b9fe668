// Package convert translates between backend payloads and domain types.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/and161185/clear/internal/model"
)

// Backend status codes. 1 is completed, 0 is pending; other values read as pending.
const (
	StatusPending   = 0
	StatusCompleted = 1
)

// DueDateLayout is the wire format for dates sent to the backend (local time).
const DueDateLayout = "2006-01-02 15:04:05"

var parseLayouts = []string{
	DueDateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// --- backend shapes ---

// TodoRecord is one element of the paged task list.
// Older backends send todoId/createTime, newer ones id/createdAt.
type TodoRecord struct {
	TodoID       model.Flex `json:"todoId"`
	ID           model.Flex `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	CategoryID   model.Flex `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	Status       int        `json:"status"`
	DueDate      *string    `json:"dueDate"`
	CreateTime   string     `json:"createTime"`
	CreatedAt    string     `json:"createdAt"`
}

// TodoPage is the data of GET /todo/page.
type TodoPage struct {
	Records []TodoRecord `json:"records"`
	Total   int          `json:"total"`
}

// CategoryRecord accepts both {categoryId, categoryName} and {id, name}.
type CategoryRecord struct {
	CategoryID   model.Flex `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	ID           model.Flex `json:"id"`
	Name         string     `json:"name"`
}

// CreatedTodo is the optional echo of POST /todo/addTodo.
type CreatedTodo struct {
	TodoID    model.Flex `json:"todoId"`
	ID        model.Flex `json:"id"`
	CreatedAt string     `json:"createdAt"`
}

// Identifier returns the echoed id, if any.
func (c CreatedTodo) Identifier() string {
	return firstNonEmpty(c.TodoID.String(), c.ID.String())
}

// --- status polarity ---

// CompletedFromStatus maps the backend status to the domain flag.
func CompletedFromStatus(status int) bool { return status == StatusCompleted }

// StatusFromCompleted maps the domain flag to the backend status.
func StatusFromCompleted(completed bool) int {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

// --- records -> domain ---

// TaskFromRecord converts one backend record.
func TaskFromRecord(r TodoRecord) model.Task {
	return model.Task{
		ID:         firstNonEmpty(r.TodoID.String(), r.ID.String()),
		Title:      r.Title,
		Content:    r.Content,
		Category:   r.CategoryName,
		CategoryID: r.CategoryID.String(),
		DueDate:    nonEmpty(r.DueDate),
		Completed:  CompletedFromStatus(r.Status),
		CreatedAt:  firstNonEmpty(r.CreateTime, r.CreatedAt),
	}
}

// TaskPageFromRecords converts a backend page; pageSize drives TotalPages.
func TaskPageFromRecords(p TodoPage, pageSize int) model.TaskPage {
	tasks := make([]model.Task, 0, len(p.Records))
	for _, r := range p.Records {
		tasks = append(tasks, TaskFromRecord(r))
	}
	return model.TaskPage{Tasks: tasks, Total: p.Total, TotalPages: TotalPages(p.Total, pageSize)}
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// CategoriesFromRecords converts the category list, skipping records without an id.
func CategoriesFromRecords(rs []CategoryRecord) []model.Category {
	out := make([]model.Category, 0, len(rs))
	for _, r := range rs {
		id := firstNonEmpty(r.CategoryID.String(), r.ID.String())
		if id == "" {
			continue
		}
		out = append(out, model.Category{CategoryID: id, CategoryName: firstNonEmpty(r.CategoryName, r.Name)})
	}
	return out
}

// ProvisionalTask builds the task shown until the next refresh when the backend did not echo one.
func ProvisionalTask(id string, d model.TaskDraft, now time.Time) model.Task {
	return model.Task{
		ID:          id,
		Title:       d.Title,
		Content:     d.Content,
		Category:    d.Category,
		CategoryID:  d.CategoryID,
		DueDate:     FormatDueDate(d.DueDate),
		Completed:   false,
		CreatedAt:   now.Format(time.RFC3339),
		Provisional: true,
	}
}

// --- domain -> payloads ---

// AddTaskPayload builds the POST /todo/addTodo body.
func AddTaskPayload(d model.TaskDraft) map[string]any {
	return map[string]any{
		"title":      d.Title,
		"content":    d.Content,
		"categoryId": model.Flex(d.CategoryID),
		"dueDate":    FormatDueDate(d.DueDate),
	}
}

// UpdateTaskPayload builds the PUT /todo/updateTodo body. Only present fields are included;
// a completion-only update yields exactly {id, status}.
func UpdateTaskPayload(id string, u model.TaskUpdate) map[string]any {
	p := map[string]any{"id": model.Flex(id)}
	if u.Completed != nil {
		p["status"] = StatusFromCompleted(*u.Completed)
	}
	if u.StatusOnly() {
		return p
	}
	if u.Title != nil {
		p["title"] = *u.Title
	}
	if u.Content != nil {
		p["content"] = *u.Content
	}
	if u.CategoryID != nil {
		p["categoryId"] = model.Flex(*u.CategoryID)
	}
	if u.DueDateSet {
		p["dueDate"] = FormatDueDate(u.DueDate)
	}
	return p
}

// ApplyUpdate returns t with the present fields of u applied.
func ApplyUpdate(t model.Task, u model.TaskUpdate) model.Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Content != nil {
		t.Content = *u.Content
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.DueDateSet {
		t.DueDate = FormatDueDate(u.DueDate)
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}

// --- dates ---

// FormatDueDate renders t in local time as DueDateLayout; nil or zero gives nil.
func FormatDueDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.In(time.Local).Format(DueDateLayout)
	return &s
}

// ParseDueDate parses the wire format, RFC 3339 or a bare date in local time.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseOptionalDate treats an empty string as "no date".
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDueDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// CreatedFromData reads the addTodo data, which may be an object, a bare id or empty.
func CreatedFromData(raw []byte) CreatedTodo {
	var c CreatedTodo
	if err := sonic.ConfigStd.Unmarshal(raw, &c); err == nil {
		return c
	}
	var id model.Flex
	if err := sonic.ConfigStd.Unmarshal(raw, &id); err == nil {
		return CreatedTodo{ID: id}
	}
	return CreatedTodo{}
}
