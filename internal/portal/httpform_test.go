package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formPage(viewState, eventValidation, body string) string {
	return fmt.Sprintf(`<html><body><form>
		<input type="hidden" name="__VIEWSTATE" value=%q/>
		<input type="hidden" name="__EVENTVALIDATION" value=%q/>
		%s</form></body></html>`, viewState, eventValidation, body)
}

func TestScrapeFormState(t *testing.T) {
	state, err := scrapeFormState(formPage("vs-1", "ev-1", ""))
	require.NoError(t, err)
	assert.Equal(t, "vs-1", state.viewState)
	assert.Equal(t, "ev-1", state.eventValidation)
}

func TestScrapeFormState_MissingFields(t *testing.T) {
	_, err := scrapeFormState("<html><body>no form here</body></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__VIEWSTATE")
}

// portalStub fakes the WebForms login/roster flow: the login page
// carries hidden state, a POST back with credentials sets a session
// cookie, and the roster page requires it.
type portalStub struct {
	t *testing.T

	loginPosts  int
	navPosts    []string
	rosterPage  string
	failNextNav bool
}

func (p *portalStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/Default.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, formPage("vs-login", "ev-login", ""))
			return
		}

		require.NoError(p.t, r.ParseForm())
		assert.Equal(p.t, "vs-login", r.PostFormValue("__VIEWSTATE"))
		assert.Equal(p.t, "ev-login", r.PostFormValue("__EVENTVALIDATION"))
		assert.Equal(p.t, "emp42", r.PostFormValue("ctl00$ContentPlaceHolder1$txtPersonnelId"))
		assert.Equal(p.t, "hunter2", r.PostFormValue("ctl00$ContentPlaceHolder1$txtPassword"))
		assert.Equal(p.t, "0", r.PostFormValue("ctl00$ContentPlaceHolder1$btnLogin.x"))

		p.loginPosts++
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "sess-1"})
		fmt.Fprint(w, formPage("vs-after-login", "ev-after-login", ""))
	})

	mux.HandleFunc("/MyRoster2.aspx", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("ASP.NET_SessionId")
		if err != nil || cookie.Value != "sess-1" {
			http.Error(w, "not logged in", http.StatusForbidden)
			return
		}

		if r.Method == http.MethodGet {
			fmt.Fprint(w, formPage("vs-roster-0", "ev-roster-0", p.rosterPage))
			return
		}

		require.NoError(p.t, r.ParseForm())
		assert.NotEmpty(p.t, r.PostFormValue("__VIEWSTATE"))
		p.navPosts = append(p.navPosts, r.PostFormValue("__EVENTTARGET"))
		if p.failNextNav {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, formPage("vs-roster-1", "ev-roster-1", p.rosterPage))
	})

	return mux
}

func newStubSession(t *testing.T, stub *portalStub) (*FormSession, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	session, err := NewFormSession(FormOptions{
		LoginURL:    srv.URL + "/Default.aspx",
		RosterURL:   srv.URL + "/MyRoster2.aspx",
		Credentials: Credentials{Username: "emp42", Password: "hunter2"},
		Client:      srv.Client(),
	})
	require.NoError(t, err)
	return session, srv
}

func TestFormSession_LoginAndNavigate(t *testing.T) {
	stub := &portalStub{t: t, rosterPage: "<span>calendar</span>"}
	session, _ := newStubSession(t, stub)

	html, err := session.Login(context.Background())
	require.NoError(t, err)
	assert.Contains(t, html, "calendar")
	assert.Equal(t, 1, stub.loginPosts)

	html, err = session.Navigate(context.Background(), StepNext)
	require.NoError(t, err)
	assert.Contains(t, html, "calendar")

	_, err = session.Navigate(context.Background(), StepPrev)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ctl00$ContentPlaceHolder1$calendar$lnkNextMonth",
		"ctl00$ContentPlaceHolder1$calendar$lnkPreviousMonth",
	}, stub.navPosts)
}

func TestFormSession_NavigateFailureSurfaces(t *testing.T) {
	stub := &portalStub{t: t, rosterPage: "", failNextNav: true}
	session, _ := newStubSession(t, stub)

	_, err := session.Login(context.Background())
	require.NoError(t, err)

	_, err = session.Navigate(context.Background(), StepNext)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next-month navigation failed")
}

func TestNewFormSession_RequiresCredentials(t *testing.T) {
	_, err := NewFormSession(FormOptions{})
	require.Error(t, err)
}

func TestParseStep(t *testing.T) {
	step, err := ParseStep("next")
	require.NoError(t, err)
	assert.Equal(t, StepNext, step)

	step, err = ParseStep("prev")
	require.NoError(t, err)
	assert.Equal(t, StepPrev, step)

	_, err = ParseStep("sideways")
	require.Error(t, err)
}
