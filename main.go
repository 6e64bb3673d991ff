package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/linesmerrill/push-dispatcher/alerts"
	"github.com/linesmerrill/push-dispatcher/api"
	"github.com/linesmerrill/push-dispatcher/config"
	"github.com/linesmerrill/push-dispatcher/databases"
	"github.com/linesmerrill/push-dispatcher/dispatch"
	"github.com/linesmerrill/push-dispatcher/fcm"
	"github.com/linesmerrill/push-dispatcher/runner"
)

// scheduledRunTimeout bounds a single cron triggered run
const scheduledRunTimeout = 30 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	schedule := pflag.String("schedule", "", "cron expression to keep dispatching on (overrides RUN_SCHEDULE)")
	heartbeat := pflag.Bool("heartbeat", false, "send the Telegram heartbeat and exit")
	pflag.Parse()

	conf := config.New()
	defer func() { _ = zap.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *heartbeat {
		return sendHeartbeat(ctx, conf)
	}

	if err := conf.Validate(); err != nil {
		zap.S().Errorw("invalid configuration", "error", err)
		return 1
	}
	if *schedule != "" {
		conf.Schedule = *schedule
	}

	client, err := databases.NewClient(conf)
	if err != nil {
		zap.S().With(err).Error("failed to create new client")
		return 1
	}
	connectCtx, cancel := context.WithTimeout(ctx, conf.RequestTimeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		zap.S().With(err).Error("failed to connect to database")
		return 1
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), conf.RequestTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}()
	zap.S().Info("push-dispatcher has connected to the database")

	db := databases.NewDatabase(conf, client)
	r := runner.New(
		databases.NewNotificationDatabase(db),
		databases.NewFCMTokenDatabase(db),
		databases.NewSchedulerLockDatabase(db),
		newDispatcher(conf),
	)
	r.OpTimeout = conf.RequestTimeout
	r.LockTTL = conf.RunLockTTL
	if conf.ReportsEnabled() {
		r.Reporter = alerts.NewMailer(conf.SendgridAPIKey, conf.ReportEmail)
	}

	if conf.Schedule == "" {
		return runOnce(ctx, r)
	}
	return runScheduled(ctx, conf, r)
}

// newDispatcher returns the per run dispatcher factory. Every run derives its
// own bearer token.
func newDispatcher(conf *config.Config) runner.DispatcherFunc {
	if conf.ProjectID == "" {
		zap.S().Warn("FCM_PROJECT_ID is not set, every pending notification will be marked failed")
		return func() runner.Dispatcher { return dispatch.New(nil) }
	}

	return func() runner.Dispatcher {
		tokens := fcm.NewTokenSource([]byte(conf.ServiceAccountJSON), conf.TokenURL, &http.Client{Timeout: conf.RequestTimeout})
		client := fcm.NewClient(conf.FCMSendURL, conf.ProjectID, tokens, conf.RequestTimeout)
		return dispatch.New(client, dispatch.WithConcurrency(conf.SendConcurrency))
	}
}

func runOnce(ctx context.Context, r *runner.Runner) int {
	start := time.Now()
	report, err := r.Run(ctx)
	if err != nil {
		zap.S().Errorw("notification dispatch run failed",
			"runId", report.RunID,
			"error", err,
			"elapsedMs", time.Since(start).Milliseconds(),
		)
		return 1
	}

	zap.S().Infow("notification dispatch finished",
		"runId", report.RunID,
		"total", report.Total,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsedMs", time.Since(start).Milliseconds(),
	)
	return 0
}

func runScheduled(ctx context.Context, conf *config.Config, r *runner.Runner) int {
	s := runner.NewScheduler(r, scheduledRunTimeout)
	if err := s.Start(conf.Schedule); err != nil {
		return 1
	}
	defer s.Stop()

	a := api.App{Status: s}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           a.New(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		zap.S().Infow("push-dispatcher is up and running", "port", conf.Port, "schedule", conf.Schedule)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorw("status server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		zap.S().Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("failed to shut down status server", "error", err)
	}
	return 0
}

func sendHeartbeat(ctx context.Context, conf *config.Config) int {
	if err := conf.ValidateHeartbeat(); err != nil {
		zap.S().Errorw("invalid configuration", "error", err)
		return 1
	}

	start := time.Now()
	h := alerts.NewHeartbeat(conf.TelegramBotToken, conf.TelegramChatID, conf.RequestTimeout)
	if _, err := h.Ping(ctx); err != nil {
		zap.S().Errorw("failed to send heartbeat", "error", err, "elapsedMs", time.Since(start).Milliseconds())
		return 1
	}
	return 0
}
