// Package cli implements the daily command: it loads the task page from a
// running server and drives the page controllers against it.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"daily-app/internal/client"
	"daily-app/internal/config"
	"daily-app/internal/page"
	"daily-app/internal/prefs"
	"daily-app/internal/tasklist"
	"daily-app/internal/theme"
)

// App carries the global flags shared by every subcommand.
type App struct {
	Server     string
	Token      string
	Prefs      string
	PrefsRedis string
	Timeout    time.Duration
	Debug      bool

	// Fade overrides the row fade interval; tests shorten it.
	Fade time.Duration

	logger *log.Logger
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// NewRootCmd builds the daily command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{Fade: tasklist.DefaultFade})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "daily",
		Short:        "Work with today's task list from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  daily list
  daily add Buy milk
  daily done 3f1c0a4e-...
  daily pref set theme dark
`),
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.logger = newLogger(cmd.ErrOrStderr(), app.Debug)
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("DAILY_SERVER", "http://localhost:8080"), "Task server base URL")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("DAILY_TOKEN", ""), "Session token (JWT)")
	cmd.PersistentFlags().StringVar(&app.Prefs, "prefs", envOr("DAILY_PREFS", prefs.DefaultPath()), "Preference file")
	cmd.PersistentFlags().StringVar(&app.PrefsRedis, "prefs-redis", envOr("DAILY_PREFS_REDIS", ""), "Keep preferences in Redis instead of the preference file")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 0, "Per-request timeout (0 = none)")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "Verbose logging")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newPrefCmd(app))
	cmd.AddCommand(newPanelCmd(app))
	return cmd
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func (a *App) prefsStore(origin string) (prefs.Store, error) {
	if a.PrefsRedis == "" {
		return prefs.NewFileStore(a.Prefs, origin), nil
	}
	opts, err := config.ParseRedisConnectionString(a.PrefsRedis)
	if err != nil {
		return nil, err
	}
	return prefs.NewRedisStore(redis.NewClient(opts), origin), nil
}

// pageApp is one loaded task page with its controllers bound.
type pageApp struct {
	session   *client.Session
	tasks     *tasklist.Controller
	themes    []*theme.Controller
	presenter *alertPresenter
}

func (a *App) open(ctx context.Context, errOut io.Writer) (*pageApp, error) {
	cl, err := client.New(a.Server, client.Options{Token: a.Token, Timeout: a.Timeout})
	if err != nil {
		return nil, err
	}
	store, err := a.prefsStore(cl.Origin())
	if err != nil {
		return nil, err
	}

	p := &pageApp{presenter: newAlertPresenter(errOut)}
	p.session = client.NewSession(cl)
	opts := tasklist.DefaultOptions()
	opts.Fade = a.Fade
	p.session.OnLoad = func(ctx context.Context, doc *page.Document) error {
		ctrl, err := tasklist.New(doc, cl, p.session, p.presenter, a.logger, opts)
		if err != nil {
			return err
		}
		ctrl.Bind()
		p.tasks = ctrl
		p.themes, err = theme.Define(ctx, doc, store, a.logger)
		return err
	}
	if _, err := p.session.Load(ctx); err != nil {
		return nil, fmt.Errorf("load %s: %w", a.Server, err)
	}
	return p, nil
}

func (p *pageApp) themeController() (*theme.Controller, error) {
	if len(p.themes) == 0 {
		return nil, fmt.Errorf("page has no %s element", theme.ElementTag)
	}
	return p.themes[0], nil
}
