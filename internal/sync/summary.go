package sync

import "time"

// Summary collects per-record outcomes across one run so the operator
// gets a complete account of what was skipped or failed without any
// single bad record aborting the run.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Aggregation phase.
	PagesParsed   int      `json:"pages_parsed"`
	EventsBuilt   int      `json:"events_built"`
	NonShiftCells int      `json:"non_shift_cells"`
	Malformed     []string `json:"malformed,omitempty"`      // raw cell texts acknowledged and skipped
	Skipped       []string `json:"skipped,omitempty"`        // records lost to date-resolution failures
	NavigationErr string   `json:"navigation_err,omitempty"` // set when pagination was cut short

	// Reconciliation phase.
	RemoteListed int      `json:"remote_listed"`
	Deleted      int      `json:"deleted"`
	DeleteFailed []string `json:"delete_failed,omitempty"` // remote ids
	Created      int      `json:"created"`
	CreateFailed []string `json:"create_failed,omitempty"` // event keys
	ListErr      string   `json:"list_err,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

// Clean reports whether the run finished without skipping or failing
// anything.
func (s *Summary) Clean() bool {
	return len(s.Malformed) == 0 &&
		len(s.Skipped) == 0 &&
		s.NavigationErr == "" &&
		len(s.DeleteFailed) == 0 &&
		len(s.CreateFailed) == 0 &&
		s.ListErr == ""
}
