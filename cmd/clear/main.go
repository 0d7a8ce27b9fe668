// Command clear is a CLI client for the Clear task backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/clear/internal/config"
	"github.com/and161185/clear/internal/errs"
	"github.com/and161185/clear/internal/logging"
	"github.com/and161185/clear/internal/model"
	"github.com/and161185/clear/internal/notify"
	"github.com/and161185/clear/internal/remote"
	"github.com/and161185/clear/internal/service"
	"github.com/and161185/clear/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app is wired once per invocation in the root PersistentPreRunE.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfg   *config.Config
	log   *zap.Logger
	notes *notify.Channel
	auth  service.AuthStore
	cats  service.CategoryStore
	tasks service.TaskStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		// notified errors were already printed by the notification subscriber
		if !errs.Notified(err) {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clear",
		Short: "Manage tasks and categories on a Clear backend",
		Long: `clear talks to a Clear task backend.

CONFIGURATION:
  Priority: command-line flags > environment variables > defaults

    CLEAR_API_URL            Backend base URL (default: http://localhost:8080/api)
    CLEAR_CONFIG_DIR         Session directory (default: $XDG_CONFIG_HOME/clear)
    CLEAR_PAGE_SIZE          Tasks per page (default: 10)
    CLEAR_NOTIFY_DURATION    Notification lifetime (default: 3s)
    CLEAR_HTTP_TIMEOUT       Request timeout, 0 for none (default: 0)
    CLEAR_DEBUG              Debug logging (default: false)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("api", "", "Backend base URL (overrides CLEAR_API_URL)")
	flags.String("config-dir", "", "Session directory (overrides CLEAR_CONFIG_DIR)")
	flags.Int("page-size", 0, "Tasks per page (overrides CLEAR_PAGE_SIZE)")
	flags.Bool("debug", false, "Debug logging (overrides CLEAR_DEBUG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintf(a.out, "clear %s (%s)\n", version, buildDate)
				return nil
			},
		},
		a.loginCmd(), a.registerCmd(), a.logoutCmd(), a.whoamiCmd(),
		a.statusCmd(), a.themeCmd(), a.emailCmd(),
		a.categoriesCmd(), a.tasksCmd(),
	)
	return root
}

// setup builds configuration from defaults, environment and flags, then wires the stores.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.New()
	if err := cfg.LoadFromEnvironment(); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIURL, _ = flags.GetString("api")
	}
	if flags.Changed("config-dir") {
		cfg.ConfigDir, _ = flags.GetString("config-dir")
	}
	if flags.Changed("page-size") {
		cfg.PageSize, _ = flags.GetInt("page-size")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	notes := notify.New(cfg.NotifyDuration)
	notes.Subscribe(func(n model.Notification) {
		fmt.Fprintf(a.errOut, "[%s] %s\n", n.Severity, n.Message)
	})

	store := session.NewFileStore(cfg.SessionPath())
	client := remote.New(remote.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.HTTPTimeout,
		NotifyDuration: cfg.NotifyDuration,
	}, store, notes, log.Named("remote"))

	auth := service.NewAuthStore(client, store, notes, log.Named("auth"))
	if err := auth.Load(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.notes = notes
	a.auth = auth
	a.cats = service.NewCategoryStore(client, auth, log.Named("categories"))
	a.tasks = service.NewTaskStore(client, auth, cfg.PageSize, log.Named("tasks"))
	return nil
}

func (a *app) close() {
	if a.notes != nil {
		a.notes.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// requireSession turns the stores' silent Anonymous no-op into a visible hint for CLI users.
func (a *app) requireSession() error {
	if !a.auth.IsAuthenticated() {
		return fmt.Errorf("run 'clear login' first: %w", errs.ErrUnauthenticated)
	}
	return nil
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
