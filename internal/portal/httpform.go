package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	appLog "rostersync/internal/log"
)

// FormOptions configures the plain-HTTP portal driver.
type FormOptions struct {
	LoginURL    string
	RosterURL   string
	Credentials Credentials

	// Client may be supplied for tests; a cookie jar is attached if the
	// given client has none.
	Client *http.Client
}

// FormSession replays the ASP.NET WebForms protocol over plain HTTP:
// it scrapes __VIEWSTATE / __EVENTVALIDATION from each response and
// posts them back with the next request, and drives month navigation
// through __EVENTTARGET postbacks.
type FormSession struct {
	opts   FormOptions
	client *http.Client

	// state is the hidden-field snapshot from the most recent roster
	// page, needed to authenticate the next postback.
	state formState
}

type formState struct {
	viewState       string
	eventValidation string
}

var _ Session = (*FormSession)(nil)

// NewFormSession builds an HTTP-form portal session.
func NewFormSession(opts FormOptions) (*FormSession, error) {
	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.RosterURL == "" {
		opts.RosterURL = DefaultRosterURL
	}
	if opts.Credentials.Username == "" || opts.Credentials.Password == "" {
		return nil, fmt.Errorf("portal: form session requires credentials")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("portal: cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return &FormSession{opts: opts, client: client}, nil
}

// Login fetches the login page, posts the credential form with the
// scraped hidden fields, then fetches the roster page and returns it.
func (s *FormSession) Login(ctx context.Context) (string, error) {
	appLog.Info("portal login start", "driver", "http", "url", s.opts.LoginURL)

	loginPage, err := s.get(ctx, s.opts.LoginURL)
	if err != nil {
		return "", fmt.Errorf("portal: fetch login page: %w", err)
	}
	state, err := scrapeFormState(loginPage)
	if err != nil {
		return "", fmt.Errorf("portal: login page: %w", err)
	}

	form := url.Values{
		fieldPersonnelID:        {s.opts.Credentials.Username},
		fieldPassword:           {s.opts.Credentials.Password},
		"__VIEWSTATE":           {state.viewState},
		"__EVENTVALIDATION":     {state.eventValidation},
		fieldLoginButton + ".x": {"0"},
		fieldLoginButton + ".y": {"0"},
	}
	if _, err := s.post(ctx, s.opts.LoginURL, form); err != nil {
		return "", fmt.Errorf("portal: submit login form: %w", err)
	}

	rosterPage, err := s.get(ctx, s.opts.RosterURL)
	if err != nil {
		return "", fmt.Errorf("portal: fetch roster page: %w", err)
	}
	if s.state, err = scrapeFormState(rosterPage); err != nil {
		return "", fmt.Errorf("portal: roster page: %w", err)
	}

	appLog.Info("portal login ok", "driver", "http")
	return rosterPage, nil
}

// Navigate issues a month-navigation postback against the roster page.
func (s *FormSession) Navigate(ctx context.Context, step Step) (string, error) {
	target := targetNextMonth
	if step == StepPrev {
		target = targetPrevMonth
	}

	form := url.Values{
		"__EVENTTARGET":     {target},
		"__EVENTARGUMENT":   {""},
		"__VIEWSTATE":       {s.state.viewState},
		"__EVENTVALIDATION": {s.state.eventValidation},
	}

	page, err := s.post(ctx, s.opts.RosterURL, form)
	if err != nil {
		return "", fmt.Errorf("portal: %s-month navigation failed: %w", step, err)
	}
	if s.state, err = scrapeFormState(page); err != nil {
		return "", fmt.Errorf("portal: %s-month page: %w", step, err)
	}
	return page, nil
}

// Close is a no-op for the HTTP driver; cookies die with the process.
func (s *FormSession) Close() error { return nil }

func (s *FormSession) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	return s.do(req)
}

func (s *FormSession) post(ctx context.Context, rawURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *FormSession) do(req *http.Request) (string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("portal: %s returned %s", req.URL.Path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// scrapeFormState pulls the __VIEWSTATE and __EVENTVALIDATION hidden
// inputs out of a WebForms page.
func scrapeFormState(html string) (formState, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return formState{}, err
	}

	viewState, ok := doc.Find(`input[name="__VIEWSTATE"]`).Attr("value")
	if !ok {
		return formState{}, fmt.Errorf("__VIEWSTATE input not found")
	}
	eventValidation, ok := doc.Find(`input[name="__EVENTVALIDATION"]`).Attr("value")
	if !ok {
		return formState{}, fmt.Errorf("__EVENTVALIDATION input not found")
	}

	return formState{viewState: viewState, eventValidation: eventValidation}, nil
}
