// Package model defines domain entities shared by the remote client and the stores.
package model

import "time"

// Session is the authenticated identity persisted between runs.
// JSON names follow the login payload so the stored entry equals what the backend returned.
type Session struct {
	ID       Flex   `json:"id"`
	Username string `json:"username"`
	Token    string `json:"tk"`
	Theme    Flex   `json:"theme,omitempty"`
}

// Credentials are sent to login and register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Category is a user-defined task group.
type Category struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

// DefaultCategoryID is the sentinel id of the synthesized fallback category.
const DefaultCategoryID = "0"

// DefaultCategory is substituted whenever the backend yields no categories.
var DefaultCategory = Category{CategoryID: DefaultCategoryID, CategoryName: "Default"}

// Task is the domain shape of a to-do item.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Category    string  `json:"category"`
	CategoryID  string  `json:"categoryId,omitempty"`
	DueDate     *string `json:"dueDate"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"createdAt"`
	Provisional bool    `json:"provisional,omitempty"` // id generated locally, valid until next refresh
}

// TaskDraft holds the fields accepted when creating a task.
type TaskDraft struct {
	Title      string
	Content    string
	Category   string // display name, kept on the provisional task
	CategoryID string
	DueDate    *time.Time
}

// TaskUpdate is a partial update. Nil fields are absent and never sent.
// DueDateSet distinguishes "clear the due date" (DueDateSet && DueDate == nil) from "leave as is".
type TaskUpdate struct {
	Title      *string
	Content    *string
	CategoryID *string
	Category   *string
	DueDate    *time.Time
	DueDateSet bool
	Completed  *bool
}

// StatusOnly reports whether the update only toggles completion.
func (u TaskUpdate) StatusOnly() bool {
	return u.Completed != nil &&
		u.Title == nil && u.Content == nil && u.CategoryID == nil && !u.DueDateSet
}

// Empty reports whether the update carries no field at all.
func (u TaskUpdate) Empty() bool {
	return u.Completed == nil && u.Title == nil && u.Content == nil &&
		u.CategoryID == nil && u.Category == nil && !u.DueDateSet
}

// TaskQuery selects one page of the remote task list.
type TaskQuery struct {
	Page       int
	PageSize   int
	CategoryID *string
	Status     *int
	StartDate  *time.Time
	EndDate    *time.Time
	Keyword    string
}

// TaskPage is one page of tasks plus the server-side totals.
type TaskPage struct {
	Tasks      []Task `json:"tasks"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// UserStatus carries global completion counts computed by the backend.
type UserStatus struct {
	Username    string `json:"username"`
	NumOfDone   int    `json:"numOfDone"`
	NumOfUndone int    `json:"numOfUndone"`
}

// TaskFilter is the filter part of the task list state. Nil means "any".
type TaskFilter struct {
	CategoryID *string    `json:"categoryId,omitempty"`
	Status     *int       `json:"status,omitempty"`
	Keyword    string     `json:"keyword,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

// IsZero reports whether no filter is set.
func (f TaskFilter) IsZero() bool {
	return f.CategoryID == nil && f.Status == nil && f.Keyword == "" && f.StartDate == nil && f.EndDate == nil
}

// Pagination is the page part of the task list state. TotalPages and Total come from the
// latest server response.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	Total        int `json:"total"`
}
