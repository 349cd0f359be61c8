// Package portal drives an authenticated session against the Microster
// self-service rostering portal and hands back rendered month pages as
// raw HTML. Two drivers exist: a headless-browser driver (the portal
// is an ASP.NET WebForms app and the browser path is the most faithful
// one) and a plain HTTP form driver that replays the WebForms postback
// protocol without a browser.
package portal

import (
	"context"
	"errors"
	"time"
)

// Default portal endpoints. Overridable through configuration; the
// defaults match the hosted Microster self-service deployment.
const (
	DefaultLoginURL  = "https://ess.tmc.tambla.net/Microster.SelfService/Default.aspx"
	DefaultRosterURL = "https://ess.tmc.tambla.net/Microster.SelfService/MyRoster2.aspx"
)

// WebForms element names and ids on the login and roster pages.
const (
	fieldPersonnelID = "ctl00$ContentPlaceHolder1$txtPersonnelId"
	fieldPassword    = "ctl00$ContentPlaceHolder1$txtPassword"
	fieldLoginButton = "ctl00$ContentPlaceHolder1$btnLogin"

	idNextMonth = "ctl00_ContentPlaceHolder1_calendar_lnkNextMonth"
	idPrevMonth = "ctl00_ContentPlaceHolder1_calendar_lnkPreviousMonth"

	targetNextMonth = "ctl00$ContentPlaceHolder1$calendar$lnkNextMonth"
	targetPrevMonth = "ctl00$ContentPlaceHolder1$calendar$lnkPreviousMonth"
)

// DefaultSettleDelay is how long to wait after a month-navigation
// click before reading the page back. The portal re-renders the grid
// client-side and offers no completion signal to wait on.
const DefaultSettleDelay = time.Second

// Step is one month-navigation action on the roster calendar.
type Step int

const (
	StepNext Step = iota
	StepPrev
)

func (s Step) String() string {
	switch s {
	case StepNext:
		return "next"
	case StepPrev:
		return "prev"
	default:
		return "unknown"
	}
}

// ParseStep reads a config token ("next"/"prev") into a Step.
func ParseStep(s string) (Step, error) {
	switch s {
	case "next":
		return StepNext, nil
	case "prev", "previous":
		return StepPrev, nil
	default:
		return 0, errors.New("portal: navigation step must be \"next\" or \"prev\", got " + s)
	}
}

// Credentials identify the employee to the portal.
type Credentials struct {
	Username string
	Password string
}

// Session is an authenticated portal session. Login must be called
// first; it returns the roster page for the current month. Navigate
// moves one month and returns the newly rendered page. All calls block
// until the resulting page has loaded.
type Session interface {
	Login(ctx context.Context) (html string, err error)
	Navigate(ctx context.Context, step Step) (html string, err error)
	Close() error
}
