package sync

import (
	"context"
	"time"

	appLog "rostersync/internal/log"
	"rostersync/internal/model"
)

// CalendarAPI is the remote calendar store the reconciler writes to.
// Implementations live in internal/gcal and internal/caldav.
type CalendarAPI interface {
	// List returns the events whose start falls inside [from, to].
	List(ctx context.Context, from, to time.Time) ([]model.RemoteEvent, error)
	Delete(ctx context.Context, id string) error
	Create(ctx context.Context, ev model.ShiftEvent) error
}

// Window is the future date range cleared and repopulated on each run.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowFrom spans today's midnight in loc through days later.
func WindowFrom(now time.Time, days int, loc *time.Location) Window {
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{From: from, To: from.AddDate(0, 0, days)}
}

// Reconciler replaces the remote window contents with the aggregated
// set: list, delete everything listed, then create one event per set
// entry. Every remote call is best-effort; individual failures are
// recorded in the summary and the loops continue. There is no
// transactional guarantee between the delete and create passes.
type Reconciler struct {
	api CalendarAPI
}

func NewReconciler(api CalendarAPI) *Reconciler {
	return &Reconciler{api: api}
}

func (r *Reconciler) Reconcile(ctx context.Context, set model.ShiftEventSet, win Window, sum *Summary) {
	remote, err := r.api.List(ctx, win.From, win.To)
	if err != nil {
		sum.ListErr = err.Error()
		appLog.Error("remote list failed; nothing deleted", err, "from", win.From.Format(time.RFC3339), "to", win.To.Format(time.RFC3339))
	}
	sum.RemoteListed = len(remote)

	for _, ev := range remote {
		if err := r.api.Delete(ctx, ev.ID); err != nil {
			sum.DeleteFailed = append(sum.DeleteFailed, ev.ID)
			appLog.Error("remote delete failed", err, "id", ev.ID)
			continue
		}
		sum.Deleted++
	}

	for _, ev := range set.Events() {
		if err := r.api.Create(ctx, ev); err != nil {
			sum.CreateFailed = append(sum.CreateFailed, ev.Key)
			appLog.Error("remote create failed", err, "key", ev.Key, "summary", ev.Summary)
			continue
		}
		sum.Created++
	}

	appLog.Info("reconciliation done",
		"listed", sum.RemoteListed,
		"deleted", sum.Deleted,
		"delete_failed", len(sum.DeleteFailed),
		"created", sum.Created,
		"create_failed", len(sum.CreateFailed),
	)
}
