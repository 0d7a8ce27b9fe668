package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/clear/internal/convert"
	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/model"
)

const defaultPageSize = 10

// Tasks loads one page of tasks matching q.
func (c *Client) Tasks(ctx context.Context, q model.TaskQuery) (model.TaskPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.CategoryID != nil {
		v.Set("categoryId", *q.CategoryID)
	}
	if q.Status != nil {
		v.Set("status", strconv.Itoa(*q.Status))
	}
	if s := convert.FormatDueDate(q.StartDate); s != nil {
		v.Set("startDate", *s)
	}
	if s := convert.FormatDueDate(q.EndDate); s != nil {
		v.Set("endDate", *s)
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}

	var page convert.TodoPage
	if err := c.call(ctx, request{
		op:      "Tasks",
		method:  http.MethodGet,
		path:    "/todo/page",
		query:   v,
		auth:    true,
		failMsg: "Failed to load tasks",
	}, &page); err != nil {
		return model.TaskPage{}, err
	}
	return convert.TaskPageFromRecords(page, q.PageSize), nil
}

// AddTask creates a task. When the backend does not echo an id the returned task carries
// a locally generated one and Provisional is set; it stays valid until the next refresh.
func (c *Client) AddTask(ctx context.Context, d model.TaskDraft) (model.Task, error) {
	r := request{
		op:      "AddTask",
		method:  http.MethodPost,
		path:    "/todo/addTodo",
		body:    convert.AddTaskPayload(d),
		auth:    true,
		okMsg:   "Task added",
		failMsg: "Failed to add task",
	}
	localID, err := c.newID()
	if err != nil {
		e := errs.RequestFailed(r.op, 0, fmt.Errorf("generate id: %w", err))
		c.reject(r, e)
		return model.Task{}, e
	}

	var raw json.RawMessage
	if err := c.call(ctx, r, &raw); err != nil {
		return model.Task{}, err
	}

	task := convert.ProvisionalTask(localID, d, c.now())
	created := convert.CreatedFromData(raw)
	if id := created.Identifier(); id != "" {
		task.ID = id
		task.Provisional = false
		if created.CreatedAt != "" {
			task.CreatedAt = created.CreatedAt
		}
	}
	return task, nil
}

// UpdateTask sends the present fields of upd; a completion-only change sends {id, status}.
func (c *Client) UpdateTask(ctx context.Context, id string, upd model.TaskUpdate) error {
	return c.call(ctx, request{
		op:      "UpdateTask",
		method:  http.MethodPut,
		path:    "/todo/updateTodo",
		body:    convert.UpdateTaskPayload(id, upd),
		auth:    true,
		okMsg:   "Task updated",
		failMsg: "Failed to update task",
	}, nil)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.call(ctx, request{
		op:      "DeleteTask",
		method:  http.MethodDelete,
		path:    "/todo/deleteTodo/" + url.PathEscape(id),
		auth:    true,
		okMsg:   "Task deleted",
		failMsg: "Failed to delete task",
	}, nil)
}
