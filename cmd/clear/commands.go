package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/and161185/clear/internal/convert"
	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/model"
)

// ---- account ----

func credentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func credentials(cmd *cobra.Command) model.Credentials {
	u, _ := cmd.Flags().GetString("username")
	p, _ := cmd.Flags().GetString("password")
	return model.Credentials{Username: u, Password: p}
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.auth.Login(cmd.Context(), credentials(cmd))
		},
	}
	credentialFlags(cmd)
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and save its session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.auth.Register(cmd.Context(), credentials(cmd))
		},
	}
	credentialFlags(cmd)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.auth.Logout()
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.auth.Session()
			if s == nil {
				return a.requireSession()
			}
			a.printJSON(map[string]any{"id": s.ID, "username": s.Username, "theme": s.Theme})
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print done/undone counts over all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			st, err := a.auth.Status(cmd.Context())
			if err != nil {
				return err
			}
			a.printJSON(st)
			return nil
		},
	}
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme <id>",
		Short: "Set the preferred theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("theme id must be a number: %w", err)
			}
			return a.auth.SetTheme(cmd.Context(), n)
		},
	}
}

func (a *app) emailCmd() *cobra.Command {
	email := &cobra.Command{Use: "email", Short: "Verify an email address"}
	email.AddCommand(
		&cobra.Command{
			Use:   "send <address>",
			Short: "Mail a verification code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				_, err := a.auth.SendCode(cmd.Context(), args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "check <address> <code>",
			Short: "Check a verification code",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				return a.auth.CheckCode(cmd.Context(), args[0], args[1])
			},
		},
	)
	return email
}

// ---- categories ----

func (a *app) categoriesCmd() *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		err := a.cats.Fetch(cmd.Context())
		a.printJSON(a.cats.Categories())
		return err
	}
	cats := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List and edit categories",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	cats.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.cats.Add(cmd.Context(), args[0]); err != nil {
					return err
				}
				a.printJSON(a.cats.Categories())
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.cats.Update(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				a.printJSON(a.cats.Categories())
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.cats.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				a.printJSON(a.cats.Categories())
				return nil
			},
		},
	)
	return cats
}

// ---- tasks ----

func (a *app) tasksCmd() *cobra.Command {
	tasks := &cobra.Command{Use: "tasks", Aliases: []string{"todo"}, Short: "List and edit tasks"}
	tasks.AddCommand(a.tasksListCmd(), a.tasksAddCmd(), a.tasksEditCmd(), a.tasksDoneCmd(), a.tasksToggleCmd(), a.tasksRmCmd())
	return tasks
}

// taskListing is what "tasks list" prints.
type taskListing struct {
	Tasks     []model.Task     `json:"tasks"`
	Page      model.Pagination `json:"page"`
	Pending   int              `json:"pending"`
	Completed int              `json:"completed"`
}

func filterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("page", 1, "Page number")
	f.String("category", "", "Category id")
	f.String("status", "", "pending or done")
	f.String("keyword", "", "Keyword in title or content")
	f.String("from", "", "Due date from (yyyy-MM-dd[ HH:mm:ss])")
	f.String("to", "", "Due date to (yyyy-MM-dd[ HH:mm:ss])")
}

func readFilter(cmd *cobra.Command) (int, model.TaskFilter, error) {
	f := cmd.Flags()
	var filter model.TaskFilter
	page, _ := f.GetInt("page")
	if f.Changed("category") {
		v, _ := f.GetString("category")
		filter.CategoryID = &v
	}
	if f.Changed("status") {
		v, _ := f.GetString("status")
		st, err := parseStatus(v)
		if err != nil {
			return 0, filter, err
		}
		filter.Status = &st
	}
	filter.Keyword, _ = f.GetString("keyword")
	var err error
	from, _ := f.GetString("from")
	if filter.StartDate, err = convert.ParseOptionalDate(from); err != nil {
		return 0, filter, err
	}
	to, _ := f.GetString("to")
	if filter.EndDate, err = convert.ParseOptionalDate(to); err != nil {
		return 0, filter, err
	}
	return page, filter, nil
}

func parseStatus(v string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "done", "completed", "1":
		return convert.StatusCompleted, nil
	case "pending", "undone", "0":
		return convert.StatusPending, nil
	}
	return 0, fmt.Errorf("unknown status %q (want pending or done)", v)
}

func (a *app) tasksListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			page, filter, err := readFilter(cmd)
			if err != nil {
				return err
			}
			if err := a.tasks.Navigate(cmd.Context(), page, filter); err != nil {
				return err
			}
			a.printJSON(taskListing{
				Tasks:     a.tasks.Tasks(),
				Page:      a.tasks.Page(),
				Pending:   a.tasks.PendingCount(),
				Completed: a.tasks.CompletedCount(),
			})
			return nil
		},
	}
	filterFlags(cmd)
	return cmd
}

// categoryName resolves the display name of id; unknown ids yield "".
func (a *app) categoryName(cmd *cobra.Command, id string) string {
	if id == "" {
		return ""
	}
	_ = a.cats.Fetch(cmd.Context())
	for _, c := range a.cats.Categories() {
		if c.CategoryID == id {
			return c.CategoryName
		}
	}
	return ""
}

func (a *app) tasksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			f := cmd.Flags()
			d := model.TaskDraft{Title: args[0]}
			d.Content, _ = f.GetString("content")
			d.CategoryID, _ = f.GetString("category")
			due, _ := f.GetString("due")
			var err error
			if d.DueDate, err = convert.ParseOptionalDate(due); err != nil {
				return err
			}
			d.Category = a.categoryName(cmd, d.CategoryID)

			t, err := a.tasks.AddTask(cmd.Context(), d)
			if err != nil {
				return err
			}
			a.printJSON(t)
			return nil
		},
	}
	cmd.Flags().String("content", "", "Task details")
	cmd.Flags().String("category", "", "Category id")
	cmd.Flags().String("due", "", "Due date (yyyy-MM-dd[ HH:mm:ss])")
	return cmd
}

func (a *app) tasksEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			upd, err := readUpdate(cmd)
			if err != nil {
				return err
			}
			if upd.Empty() {
				return fmt.Errorf("nothing to change")
			}
			if upd.CategoryID != nil {
				name := a.categoryName(cmd, *upd.CategoryID)
				upd.Category = &name
			}
			return a.tasks.UpdateTask(cmd.Context(), args[0], upd)
		},
	}
	f := cmd.Flags()
	f.String("title", "", "New title")
	f.String("content", "", "New details")
	f.String("category", "", "New category id")
	f.String("due", "", "New due date (yyyy-MM-dd[ HH:mm:ss])")
	f.Bool("clear-due", false, "Remove the due date")
	f.String("status", "", "pending or done")
	return cmd
}

// readUpdate includes only the flags given on the command line.
func readUpdate(cmd *cobra.Command) (model.TaskUpdate, error) {
	f := cmd.Flags()
	var upd model.TaskUpdate
	if f.Changed("title") {
		v, _ := f.GetString("title")
		upd.Title = &v
	}
	if f.Changed("content") {
		v, _ := f.GetString("content")
		upd.Content = &v
	}
	if f.Changed("category") {
		v, _ := f.GetString("category")
		upd.CategoryID = &v
	}
	if f.Changed("due") {
		v, _ := f.GetString("due")
		due, err := convert.ParseOptionalDate(v)
		if err != nil {
			return upd, err
		}
		upd.DueDate, upd.DueDateSet = due, true
	}
	if clr, _ := f.GetBool("clear-due"); clr {
		upd.DueDate, upd.DueDateSet = nil, true
	}
	if f.Changed("status") {
		v, _ := f.GetString("status")
		st, err := parseStatus(v)
		if err != nil {
			return upd, err
		}
		done := convert.CompletedFromStatus(st)
		upd.Completed = &done
	}
	return upd, nil
}

func (a *app) tasksDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			undo, _ := cmd.Flags().GetBool("undo")
			done := !undo
			return a.tasks.UpdateTask(cmd.Context(), args[0], model.TaskUpdate{Completed: &done})
		},
	}
	cmd.Flags().Bool("undo", false, "Mark pending instead")
	return cmd
}

func (a *app) tasksToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip completion of a task on the selected page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			page, filter, err := readFilter(cmd)
			if err != nil {
				return err
			}
			if err := a.tasks.Navigate(cmd.Context(), page, filter); err != nil {
				return err
			}
			if _, ok := a.tasks.TaskByID(args[0]); !ok {
				return fmt.Errorf("task %s is not on page %d: %w", args[0], page, errs.ErrNotFound)
			}
			if err := a.tasks.ToggleTaskCompletion(cmd.Context(), args[0]); err != nil {
				return err
			}
			t, _ := a.tasks.TaskByID(args[0])
			a.printJSON(t)
			return nil
		},
	}
	filterFlags(cmd)
	return cmd
}

func (a *app) tasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			return a.tasks.DeleteTask(cmd.Context(), args[0])
		},
	}
}
