package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostersync/internal/model"
)

type fakeCalendar struct {
	remote  []model.RemoteEvent
	listErr error

	deleted    []string
	deleteErrs map[string]error
	created    []string
	createErrs map[string]error
}

func (f *fakeCalendar) List(context.Context, time.Time, time.Time) ([]model.RemoteEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.remote, nil
}

func (f *fakeCalendar) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErrs[id]
}

func (f *fakeCalendar) Create(_ context.Context, ev model.ShiftEvent) error {
	f.created = append(f.created, ev.Key)
	return f.createErrs[ev.Key]
}

func testSet(keys ...string) model.ShiftEventSet {
	set := model.NewShiftEventSet()
	for _, k := range keys {
		start, _ := time.Parse(model.KeyLayout, k)
		set.Insert(model.ShiftEvent{Key: k, Summary: "Nurse", Start: start, End: start.Add(8 * time.Hour)})
	}
	return set
}

func testWindow() Window {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: from.AddDate(0, 0, 60)}
}

func TestReconcile_DeletesAllThenCreatesAll(t *testing.T) {
	api := &fakeCalendar{
		remote: []model.RemoteEvent{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}},
	}
	set := testSet("2024-03-05T06:00:00", "2024-04-01T07:00:00")

	sum := &Summary{}
	NewReconciler(api).Reconcile(context.Background(), set, testWindow(), sum)

	assert.Equal(t, []string{"r1", "r2", "r3"}, api.deleted)
	assert.Equal(t, []string{"2024-03-05T06:00:00", "2024-04-01T07:00:00"}, api.created)
	assert.Equal(t, 3, sum.Deleted)
	assert.Equal(t, 2, sum.Created)
	assert.True(t, sum.Clean())
}

func TestReconcile_DeleteFailureDoesNotAbort(t *testing.T) {
	api := &fakeCalendar{
		remote:     []model.RemoteEvent{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}},
		deleteErrs: map[string]error{"r2": errors.New("409 conflict")},
	}
	set := testSet("2024-03-05T06:00:00", "2024-04-01T07:00:00")

	sum := &Summary{}
	NewReconciler(api).Reconcile(context.Background(), set, testWindow(), sum)

	// All three deletes attempted despite the middle one failing, and
	// both creates still run.
	require.Len(t, api.deleted, 3)
	require.Len(t, api.created, 2)
	assert.Equal(t, 2, sum.Deleted)
	assert.Equal(t, []string{"r2"}, sum.DeleteFailed)
	assert.False(t, sum.Clean())
}

func TestReconcile_CreateFailureDoesNotAbort(t *testing.T) {
	api := &fakeCalendar{
		createErrs: map[string]error{"2024-03-05T06:00:00": errors.New("backend unavailable")},
	}
	set := testSet("2024-03-05T06:00:00", "2024-04-01T07:00:00")

	sum := &Summary{}
	NewReconciler(api).Reconcile(context.Background(), set, testWindow(), sum)

	require.Len(t, api.created, 2)
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, []string{"2024-03-05T06:00:00"}, sum.CreateFailed)
}

func TestReconcile_ListFailureStillCreates(t *testing.T) {
	api := &fakeCalendar{listErr: errors.New("timeout")}
	set := testSet("2024-03-05T06:00:00")

	sum := &Summary{}
	NewReconciler(api).Reconcile(context.Background(), set, testWindow(), sum)

	assert.Empty(t, api.deleted)
	require.Len(t, api.created, 1)
	assert.Equal(t, "timeout", sum.ListErr)
}

func TestWindowFrom_StartsAtLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	now := time.Date(2024, 3, 5, 15, 42, 7, 0, loc)
	win := WindowFrom(now, 60, loc)

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, loc), win.From)
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, loc), win.To)
}
