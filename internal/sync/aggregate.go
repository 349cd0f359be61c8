package sync

import (
	"context"
	"fmt"
	"time"

	appLog "rostersync/internal/log"
	"rostersync/internal/model"
	"rostersync/internal/portal"
	"rostersync/internal/roster"
)

// Aggregator walks month pages of an authenticated portal session and
// folds every successfully built shift into one keyed ShiftEventSet.
// It owns the set for the duration of a run and hands it off to the
// reconciler; nothing else mutates it.
type Aggregator struct {
	session portal.Session
	builder *roster.Builder
	ack     Acknowledger
}

// NewAggregator wires an aggregator. ack may be nil, in which case
// malformed cells are skipped without an operator checkpoint.
func NewAggregator(session portal.Session, builder *roster.Builder, ack Acknowledger) *Aggregator {
	return &Aggregator{session: session, builder: builder, ack: ack}
}

// Run logs in, ingests the current month page, then applies each
// navigation step in order, ingesting every resulting page. A login
// failure is fatal; a navigation failure stops further pagination but
// keeps everything aggregated so far. The returned set holds one event
// per distinct shift start, later pages winning on key collisions.
func (a *Aggregator) Run(ctx context.Context, steps []portal.Step, sum *Summary) (model.ShiftEventSet, error) {
	sum.StartedAt = time.Now()

	set := model.NewShiftEventSet()

	html, err := a.session.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: portal login: %w", err)
	}
	a.ingest(html, set, sum)

	for _, step := range steps {
		html, err := a.session.Navigate(ctx, step)
		if err != nil {
			// Keep what we have; remaining steps are unreachable anyway.
			sum.NavigationErr = err.Error()
			appLog.Error("navigation failed, stopping pagination", err, "step", step.String())
			break
		}
		a.ingest(html, set, sum)
	}

	appLog.Info("aggregation done",
		"pages", sum.PagesParsed,
		"events", len(set),
		"non_shift", sum.NonShiftCells,
		"malformed", len(sum.Malformed),
		"skipped", len(sum.Skipped),
	)
	return set, nil
}

// ingest parses one page and merges its shifts into the set. Cell
// failures never escape: malformed cells go through the operator
// checkpoint, date-resolution failures are recorded, and in both cases
// the rest of the page is still processed.
func (a *Aggregator) ingest(html string, set model.ShiftEventSet, sum *Summary) {
	page, err := roster.ParsePage(html)
	if err != nil {
		sum.Skipped = append(sum.Skipped, fmt.Sprintf("page %d: %v", sum.PagesParsed+1, err))
		appLog.Error("page parse failed, skipping page", err)
		return
	}
	sum.PagesParsed++

	for _, cell := range page.Cells {
		tok := roster.Interpret(cell.Text)

		switch tok.Kind {
		case roster.KindNonShift:
			sum.NonShiftCells++
			appLog.Debug("non-shift cell", "month", page.MonthLabel, "day", cell.Day, "reason", string(tok.Reason))

		case roster.KindMalformed:
			sum.Malformed = append(sum.Malformed, cell.Text)
			if a.ack != nil {
				a.ack.Acknowledge(page.MonthLabel, cell.Day, cell.Text)
			}
			appLog.Warn("malformed cell skipped", "month", page.MonthLabel, "day", cell.Day, "text", cell.Text)

		case roster.KindShift:
			ev, err := a.builder.Build(page.MonthLabel, cell.Day, tok)
			if err != nil {
				sum.Skipped = append(sum.Skipped, fmt.Sprintf("%s day %d: %v", page.MonthLabel, cell.Day, err))
				appLog.Error("event build failed, skipping record", err, "month", page.MonthLabel, "day", cell.Day)
				continue
			}
			set.Insert(ev)
			sum.EventsBuilt++
		}
	}
}
