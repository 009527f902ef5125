package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/bot"
	"taskflow/internal/logger"
	"taskflow/internal/metrics"
	"taskflow/internal/service"
)

const digestTimeout = 2 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the daily digest and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	telegramBot, err := bot.New(a.cfg.TelegramToken, a.sessions, service.NewDigestService(time.Local), logger.Component(a.log, "bot"))
	if err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(time.Local, logger.Component(a.log, "scheduler"))
	sendDigests := func() {
		jobCtx, cancel := context.WithTimeout(ctx, digestTimeout)
		defer cancel()
		if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Error("send digests")
		}
	}
	switch {
	case a.cfg.DigestAt != "":
		if _, err := scheduler.ScheduleDaily("digest", a.cfg.DigestAt, sendDigests); err != nil {
			return err
		}
	case a.cfg.ReportInterval > 0:
		if _, err := scheduler.ScheduleInterval("digest", a.cfg.ReportInterval, sendDigests); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.MetricsAddr != "" {
		srv := newHTTPServer(a)
		go func() {
			a.log.WithField("addr", a.cfg.MetricsAddr).Info("http server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.WithError(err).Error("http server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info("taskflow bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}

// newHTTPServer exposes /metrics and the public avatar files.
func newHTTPServer(a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle(a.client.Avatars.PublicPath(), a.client.Avatars.Handler())
	return &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
