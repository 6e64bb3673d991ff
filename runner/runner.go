package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/push-dispatcher/databases"
	"github.com/linesmerrill/push-dispatcher/dispatch"
	"github.com/linesmerrill/push-dispatcher/logging"
	"github.com/linesmerrill/push-dispatcher/models"
)

const lockName = "notification_dispatch"

// Dispatcher fans one notification out to the active tokens
type Dispatcher interface {
	Dispatch(ctx context.Context, notification models.Notification, tokens []models.FCMToken) dispatch.Outcome
}

// DispatcherFunc builds the dispatcher for one run. Credentials derived by a
// dispatcher live only as long as the run that created it.
type DispatcherFunc func() Dispatcher

// Reporter is told about every finished run
type Reporter interface {
	Report(ctx context.Context, report models.RunReport, runErr error) error
}

// Runner drains the pending notifications once per call to Run
type Runner struct {
	NDB        databases.NotificationDatabase
	TDB        databases.FCMTokenDatabase
	LockDB        databases.SchedulerLockDatabase
	NewDispatcher DispatcherFunc
	Reporter      Reporter

	// OpTimeout bounds each datastore call
	OpTimeout  time.Duration
	LockTTL    time.Duration
	instanceID string
	now        func() time.Time
}

// New creates a runner. lockDB may be nil when invocations are already
// serialized by whatever schedules them.
func New(
	nDB databases.NotificationDatabase,
	tDB databases.FCMTokenDatabase,
	lockDB databases.SchedulerLockDatabase,
	newDispatcher DispatcherFunc,
) *Runner {
	return &Runner{
		NDB:           nDB,
		TDB:           tDB,
		LockDB:        lockDB,
		NewDispatcher: newDispatcher,
		OpTimeout:     15 * time.Second,
		LockTTL:       10 * time.Minute,
		instanceID:    instanceID(),
		now:           time.Now,
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString())
}

// Run processes every pending notification. Only a failure to read the pending
// notifications or the tokens (or to take the run lock) is returned as an
// error; per notification failures are recorded on the notification itself.
func (r *Runner) Run(ctx context.Context) (report models.RunReport, err error) {
	report = models.RunReport{RunID: uuid.NewString(), StartedAt: r.now()}
	log := logging.ForRun(report.RunID)

	defer func() {
		report.FinishedAt = r.now()
		if err != nil {
			report.Error = err.Error()
		}
		if r.Reporter != nil {
			if repErr := r.Reporter.Report(context.WithoutCancel(ctx), report, err); repErr != nil {
				log.Warnw("failed to report run", "error", repErr)
			}
		}
	}()

	if r.LockDB != nil {
		acquired, lockErr := r.acquireLock(ctx)
		if lockErr != nil {
			return report, fmt.Errorf("failed to acquire run lock: %w", lockErr)
		}
		if !acquired {
			r.logLockHolder(ctx, log)
			report.Skipped = true
			return report, nil
		}
		defer r.releaseLock(ctx, log)
	}

	log.Infow("starting notification dispatch run", "instance", r.instanceID)

	pending, err := r.findPending(ctx)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		log.Info("no pending notifications")
		return report, nil
	}
	report.Total = len(pending)
	log.Infow("found pending notifications", "count", len(pending))

	tokens, err := r.findTokens(ctx)
	if err != nil {
		return report, err
	}
	if len(tokens) == 0 {
		log.Warn("no fcm tokens registered, marking every pending notification as failed")
	} else {
		log.Infow("found active fcm tokens", "count", len(tokens))
	}

	dispatcher := r.NewDispatcher()
	for i, notification := range pending {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warnw("run cancelled, leaving remaining notifications pending", "remaining", len(pending)-i)
			return report, ctxErr
		}

		if r.process(ctx, log, dispatcher, notification, tokens) {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	log.Infow("notification dispatch run complete",
		"total", report.Total,
		"sent", report.Sent,
		"failed", report.Failed,
		"elapsedMs", r.now().Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

// process dispatches one notification and records its terminal state. It
// reports whether the notification counts as sent.
func (r *Runner) process(ctx context.Context, log *zap.SugaredLogger, dispatcher Dispatcher, notification models.Notification, tokens []models.FCMToken) bool {
	log = log.With("notificationId", notification.ID)
	log.Infow("processing notification", "title", notification.Title)

	var outcome dispatch.Outcome
	if len(tokens) == 0 {
		outcome = dispatch.Outcome{NotificationID: notification.ID, Reason: dispatch.ReasonNoTokens}
	} else {
		outcome = dispatcher.Dispatch(ctx, notification, tokens)
	}

	// sends cannot be undone, so the outcome is recorded even if ctx is cancelled
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.OpTimeout)
	defer cancel()

	applied, err := r.NDB.MarkSent(writeCtx, notification.ID, outcome.Diagnostic())
	switch {
	case err != nil:
		log.Errorw("failed to record notification status", "error", err, "sent", outcome.Sent())
	case !applied:
		log.Warn("notification was already marked by another run")
	}

	if outcome.Sent() {
		log.Infow("notification sent", "delivered", outcome.Delivered, "failedSends", len(outcome.Failures))
		return true
	}
	log.Warnw("notification marked as failed", "reason", outcome.Diagnostic())
	return false
}

func (r *Runner) findPending(ctx context.Context) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.OpTimeout)
	defer cancel()
	return r.NDB.FindPending(ctx)
}

func (r *Runner) findTokens(ctx context.Context) ([]models.FCMToken, error) {
	ctx, cancel := context.WithTimeout(ctx, r.OpTimeout)
	defer cancel()
	return r.TDB.FindActive(ctx)
}

func (r *Runner) acquireLock(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.OpTimeout)
	defer cancel()
	return r.LockDB.TryAcquireLock(ctx, lockName, r.instanceID, r.LockTTL)
}

func (r *Runner) releaseLock(ctx context.Context, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.OpTimeout)
	defer cancel()
	if err := r.LockDB.ReleaseLock(ctx, lockName, r.instanceID); err != nil {
		log.Warnw("failed to release run lock", "error", err)
	}
}

func (r *Runner) logLockHolder(ctx context.Context, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(ctx, r.OpTimeout)
	defer cancel()

	holder, err := r.LockDB.Holder(ctx, lockName)
	if err != nil {
		log.Infow("notification dispatch already running on another instance, skipping", "instance", r.instanceID)
		return
	}
	log.Infow("notification dispatch already running on another instance, skipping",
		"instance", r.instanceID,
		"holder", holder.Owner,
		"expiresAt", holder.ExpiresAt.Time(),
	)
}
