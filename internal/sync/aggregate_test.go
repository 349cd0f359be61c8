package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostersync/internal/portal"
	"rostersync/internal/roster"
)

// fakeSession serves canned pages: Login returns pages[0], the Nth
// Navigate returns pages[N]. A nil page triggers a navigation error.
type fakeSession struct {
	pages []string
	pos   int
	steps []portal.Step
}

func (f *fakeSession) Login(context.Context) (string, error) {
	f.pos = 1
	return f.pages[0], nil
}

func (f *fakeSession) Navigate(_ context.Context, step portal.Step) (string, error) {
	f.steps = append(f.steps, step)
	if f.pos >= len(f.pages) || f.pages[f.pos] == "" {
		return "", errors.New("click timed out")
	}
	page := f.pages[f.pos]
	f.pos++
	return page, nil
}

func (f *fakeSession) Close() error { return nil }

// monthPage renders a minimal roster page: cell index -> text.
func monthPage(label string, cells map[int]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><span id="ctl00_ContentPlaceHolder1_calendar_lblCurrentMonth">`)
	b.WriteString(label)
	b.WriteString(`</span><table>`)
	for i := 1; i <= 39; i++ {
		if text, ok := cells[i]; ok {
			fmt.Fprintf(&b, `<td id="ctl00_ContentPlaceHolder1_calendar_DateCell%d"><div>%s</div></td>`, i, text)
		}
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

type recordingAck struct {
	raw []string
}

func (r *recordingAck) Acknowledge(_ string, _ int, rawText string) {
	r.raw = append(r.raw, rawText)
}

func testAggregator(t *testing.T, session portal.Session, ack Acknowledger) *Aggregator {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	return NewAggregator(session, roster.NewBuilder(loc, "12 Hospital Rd"), ack)
}

func TestAggregator_TwoMonthsDistinctKeys(t *testing.T) {
	// March has a shift on its 5th populated cell; April's shift sits
	// on a later cell index but is its first populated cell, so it
	// resolves to day 1.
	march := map[int]string{}
	for i := 1; i <= 31; i++ {
		march[i+4] = "OFF" // cells 5..35 populated
	}
	march[9] = "0600-1400 ABC Nurse" // 5th populated cell
	april := map[int]string{8: "0700-1500 ABC Porter"}

	session := &fakeSession{pages: []string{
		monthPage("March 2024", march),
		monthPage("April 2024", april),
	}}

	sum := &Summary{}
	set, err := testAggregator(t, session, nil).Run(context.Background(), []portal.Step{portal.StepNext}, sum)
	require.NoError(t, err)

	require.Len(t, set, 2)
	assert.Contains(t, set, "2024-03-05T06:00:00")
	assert.Contains(t, set, "2024-04-01T07:00:00")
	assert.Equal(t, []portal.Step{portal.StepNext}, session.steps)
	assert.Equal(t, 2, sum.PagesParsed)
	assert.Equal(t, 2, sum.EventsBuilt)
}

func TestAggregator_SamePageTwiceIsIdempotent(t *testing.T) {
	page := monthPage("March 2024", map[int]string{
		1: "0600-1400 ABC Nurse",
		2: "OFF",
		3: "2200-0600 ABC Nurse",
	})
	session := &fakeSession{pages: []string{page, page}}

	sum := &Summary{}
	set, err := testAggregator(t, session, nil).Run(context.Background(), []portal.Step{portal.StepNext}, sum)
	require.NoError(t, err)

	assert.Len(t, set, 2)
	assert.Equal(t, 4, sum.EventsBuilt) // built twice, collapsed by key
}

func TestAggregator_NavigationFailureKeepsAggregated(t *testing.T) {
	session := &fakeSession{pages: []string{
		monthPage("March 2024", map[int]string{1: "0600-1400 ABC Nurse"}),
		"", // second page fails to load
	}}

	sum := &Summary{}
	set, err := testAggregator(t, session, nil).Run(context.Background(),
		[]portal.Step{portal.StepNext, portal.StepNext}, sum)
	require.NoError(t, err)

	assert.Len(t, set, 1)
	assert.Contains(t, sum.NavigationErr, "click timed out")
	// The failing step aborts the rest of the walk.
	assert.Len(t, session.steps, 1)
}

func TestAggregator_MalformedCellPromptsAndSkips(t *testing.T) {
	session := &fakeSession{pages: []string{
		monthPage("March 2024", map[int]string{
			1: "0600-1400 ABC Nurse",
			2: "garbled text here",
			3: "0700-1500 ABC Porter",
		}),
	}}
	ack := &recordingAck{}

	sum := &Summary{}
	set, err := testAggregator(t, session, ack).Run(context.Background(), nil, sum)
	require.NoError(t, err)

	assert.Len(t, set, 2)
	assert.Equal(t, []string{"garbled text here"}, ack.raw)
	assert.Equal(t, []string{"garbled text here"}, sum.Malformed)
}

func TestAggregator_DateResolutionFailureSkipsRecordOnly(t *testing.T) {
	session := &fakeSession{pages: []string{
		monthPage("Smarch 2024", map[int]string{
			1: "0600-1400 ABC Nurse",
			2: "0700-1500 ABC Porter",
		}),
	}}

	sum := &Summary{}
	set, err := testAggregator(t, session, nil).Run(context.Background(), nil, sum)
	require.NoError(t, err)

	assert.Empty(t, set)
	assert.Len(t, sum.Skipped, 2)
	assert.False(t, sum.Clean())
}

func TestAggregator_NonShiftCellsProduceNoEvents(t *testing.T) {
	session := &fakeSession{pages: []string{
		monthPage("March 2024", map[int]string{1: "OFF", 2: "PH", 3: "SICK"}),
	}}

	sum := &Summary{}
	set, err := testAggregator(t, session, nil).Run(context.Background(), nil, sum)
	require.NoError(t, err)

	assert.Empty(t, set)
	assert.Equal(t, 3, sum.NonShiftCells)
	assert.True(t, sum.Clean())
}
