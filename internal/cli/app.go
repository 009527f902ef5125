package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/prefs"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/internal/store"
)

// app holds what every command needs: configuration, logging and a handle
// on the data service.
type app struct {
	cfg      config.Config
	log      *logrus.Entry
	client   *repository.Client
	sessions *service.SessionService
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	// Command output owns stdout; logs go to stderr.
	log := logger.New(cmd.ErrOrStderr(), "taskflow", level)

	client, err := repository.Open(repository.Options{
		DSN:        cfg.DSN(),
		StorageDir: cfg.StorageDir,
		PublicURL:  cfg.PublicURL,
		Log:        logger.Component(log, "repository"),
	})
	if err != nil {
		return nil, fmt.Errorf("open data service: %w", err)
	}

	opts := store.Options{
		RefetchDelay:   cfg.RefetchDelay,
		ReconcileDelay: cfg.ReconcileDelay,
		Log:            logger.Component(log, "store"),
	}
	return &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: service.NewSessionService(client.Users, store.BackendFrom(client), opts, logger.Component(log, "sessions")),
	}, nil
}

// session signs in with --email or TASKFLOW_EMAIL.
func (a *app) session(ctx context.Context, cmd *cobra.Command) (*store.Session, error) {
	email, _ := cmd.Flags().GetString("email")
	if strings.TrimSpace(email) == "" {
		email = a.cfg.Email
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("no user: pass --email or set TASKFLOW_EMAIL")
	}
	return a.sessions.ForEmail(ctx, email)
}

func (a *app) prefsPath() (string, error) {
	if a.cfg.PrefsPath != "" {
		return a.cfg.PrefsPath, nil
	}
	return prefs.DefaultPath()
}

func (a *app) Close() {
	a.sessions.Close()
	if err := a.client.Close(); err != nil {
		a.log.WithError(err).Warn("close data service")
	}
}

// withSession runs fn with a signed-in session and tears everything down after.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, sess *store.Session) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := a.session(ctx, cmd)
	if err != nil {
		return err
	}
	return fn(ctx, a, sess)
}
