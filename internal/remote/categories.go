package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/and161185/clear/internal/convert"
	"github.com/and161185/clear/internal/model"
)

// Categories lists the user's categories.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var rs []convert.CategoryRecord
	if err := c.call(ctx, request{
		op:      "Categories",
		method:  http.MethodGet,
		path:    "/category/categories",
		auth:    true,
		failMsg: "Failed to load categories",
	}, &rs); err != nil {
		return nil, err
	}
	return convert.CategoriesFromRecords(rs), nil
}

// AddCategory creates a category.
func (c *Client) AddCategory(ctx context.Context, name string) error {
	return c.call(ctx, request{
		op:      "AddCategory",
		method:  http.MethodPost,
		path:    "/category/add",
		body:    map[string]any{"name": name},
		auth:    true,
		okMsg:   "Category added",
		failMsg: "Failed to add category",
	}, nil)
}

// UpdateCategory renames a category.
func (c *Client) UpdateCategory(ctx context.Context, id, name string) error {
	return c.call(ctx, request{
		op:      "UpdateCategory",
		method:  http.MethodPut,
		path:    "/category/update",
		body:    map[string]any{"id": model.Flex(id), "name": name},
		auth:    true,
		okMsg:   "Category updated",
		failMsg: "Failed to update category",
	}, nil)
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.call(ctx, request{
		op:      "DeleteCategory",
		method:  http.MethodDelete,
		path:    "/category/delete/" + url.PathEscape(id),
		auth:    true,
		okMsg:   "Category deleted",
		failMsg: "Failed to delete category",
	}, nil)
}
