package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFetch(t *testing.T) {
	base := Query{Action: ActionUpdate, Limit: 50}

	q := PlanFetch(base, 3, RefineOptions{})
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, 100, q.Offset)
	assert.Equal(t, ActionUpdate, q.Action)

	q = PlanFetch(base, 3, RefineOptions{Search: "xa"})
	assert.Equal(t, RefineLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)

	q = PlanFetch(Query{}, 0, RefineOptions{})
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(100, 100))
	assert.False(t, HasMore(99, 100))
	assert.False(t, HasMore(0, 0))
}

func TestRefineByLocalDayAndSearch(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	ip := "10.1.1.1"
	entries := []Entry{
		// 2026-03-02 03:00 UTC is still 2026-03-01 in CST.
		{ID: 1, Username: "ana", Action: ActionView, Resource: ResourceAircraft, CreatedAt: time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC),
			Details: SearchResult{SearchQuery: "XA-ABC", NotFound: true}},
		{ID: 2, Username: "luis", Action: ActionUpdate, Resource: ResourcePilot, CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), IPAddress: &ip},
		{ID: 3, Username: "ana", Action: ActionDelete, Resource: ResourcePilot, CreatedAt: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)},
	}

	got := Refine(entries, RefineOptions{DateStart: "2026-03-01", DateEnd: "2026-03-01", Location: loc})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got = Refine(entries, RefineOptions{DateStart: "2026-03-02", Location: loc})
	assert.Len(t, got, 2)

	got = Refine(entries, RefineOptions{Search: "NOT FOUND"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got = Refine(entries, RefineOptions{Search: "10.1.1"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got = Refine(entries, RefineOptions{Search: "delete"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	assert.Equal(t, entries, Refine(entries, RefineOptions{}))
}
