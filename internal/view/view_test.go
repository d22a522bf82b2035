package view

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"numtrack/internal/record"
)

func day(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func seq(from, to int) []int {
	var out []int
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

func TestCount(t *testing.T) {
	rs := NewRecords()
	rs[1] = record.Record{Status: record.StatusDone}
	rs[2] = record.Record{Status: record.StatusDead, Dead: record.Sub{Status: record.SubDone}}
	rs[3] = record.Record{Status: record.StatusDead, Dead: record.Sub{Status: record.SubNo}}
	rs[4] = record.Record{Status: record.StatusDead}
	rs[5] = record.Record{Status: record.StatusPending, Pending: record.Sub{Status: record.SubDone}}
	// stale sub-status on a record that is no longer in the category
	rs[6] = record.Record{Status: record.StatusNo, Resettle: record.Sub{Status: record.SubDone}}

	c := Count(rs)
	assert.Equal(t, 1, c.Status[record.StatusDone])
	assert.Equal(t, 3, c.Status[record.StatusDead])
	assert.Equal(t, 1, c.Status[record.StatusPending])
	assert.Equal(t, record.MaxNumber-5, c.Status[record.StatusNo])
	assert.Equal(t, SubCounts{Done: 1, No: 1}, c.Sub[record.StatusDead])
	assert.Equal(t, SubCounts{Done: 1}, c.Sub[record.StatusPending])
	assert.Equal(t, SubCounts{}, c.Sub[record.StatusResettle])

	total := 0
	for _, v := range c.Status {
		total += v
	}
	assert.Equal(t, record.MaxNumber, total)
}

func TestFilterNumericSearch(t *testing.T) {
	rs := NewRecords()
	assert.Equal(t, seq(42, 52), Filter(rs, Query{Search: " 42 "}))
	assert.Equal(t, seq(1415, 1421), Filter(rs, Query{Search: "1415"}))

	rs[44] = record.Record{Status: record.StatusDone}
	rs[50] = record.Record{Status: record.StatusDone}
	rs[60] = record.Record{Status: record.StatusDone}
	assert.Equal(t, []int{44, 50}, Filter(rs, Query{Search: "42", Status: record.StatusDone}))
}

func TestFilterTextSearch(t *testing.T) {
	rs := NewRecords()
	rs[7] = record.Record{Status: record.StatusNo, Name: "Fatima Noor"}
	rs[900] = record.Record{Status: record.StatusNo, Name: "noorani"}

	got := Filter(rs, Query{Search: "NOOR"})
	assert.Equal(t, []int{7, 900}, got)

	// digits embedded in text fall back to substring search on the number
	got = Filter(rs, Query{Search: "14x"})
	assert.Empty(t, got)

	assert.Len(t, Filter(rs, Query{}), record.MaxNumber)
	assert.Len(t, Filter(rs, Query{Status: "all"}), record.MaxNumber)
}

func TestFilterStatus(t *testing.T) {
	rs := NewRecords()
	rs[3] = record.Record{Status: record.StatusResettle}
	rs[9] = record.Record{Status: record.StatusResettle}
	assert.Equal(t, []int{3, 9}, Filter(rs, Query{Status: record.StatusResettle}))
}

func TestFilterDateWindow(t *testing.T) {
	rs := NewRecords()
	rs[1] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 1, 10, 23)}
	rs[2] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 1, 11, 0)}
	rs[3] = record.Record{Status: record.StatusDone}
	rs[4] = record.Record{Status: record.StatusDead, Dead: record.Sub{Status: record.SubDone, DoneDate: day(2024, 1, 10, 5)}}
	rs[5] = record.Record{Status: record.StatusDead, Dead: record.Sub{Status: record.SubNo, DoneDate: day(2024, 1, 10, 5)}}
	rs[6] = record.Record{Status: record.StatusNo, DoneDate: day(2024, 1, 10, 5)}

	q := Query{DateField: record.FieldDone, Start: day(2024, 1, 10, 0), End: day(2024, 1, 10, 0), Location: time.UTC}
	assert.Equal(t, []int{1}, Filter(rs, q))

	q.End = nil
	assert.Equal(t, []int{1, 2}, Filter(rs, q))

	q = Query{DateField: record.FieldDeadDone, End: day(2024, 1, 31, 0), Location: time.UTC}
	assert.Equal(t, []int{4}, Filter(rs, q))

	// a selected field without bounds is inactive
	q = Query{DateField: record.FieldDone, Location: time.UTC}
	assert.Len(t, Filter(rs, q), record.MaxNumber)
}

func TestFilterDateWindowRespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	rs := NewRecords()
	// 2024-01-09 20:00 UTC is 2024-01-10 01:00 at UTC+5
	rs[1] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 1, 9, 20)}

	q := Query{DateField: record.FieldDone, Start: day(2024, 1, 10, 0), Location: loc}
	assert.Equal(t, []int{1}, Filter(rs, q))

	q.Location = time.UTC
	assert.Empty(t, Filter(rs, q))
}

func TestRecentTouch(t *testing.T) {
	var r Recent
	for _, n := range []int{1, 2, 3, 4, 5, 6, 3, 7} {
		r.Touch(n)
		items := r.Items()
		require.LessOrEqual(t, len(items), RecentCapacity)
		assert.Equal(t, n, items[0])
		seen := map[int]bool{}
		for _, v := range items {
			require.False(t, seen[v], "duplicate %d in %v", v, items)
			seen[v] = true
		}
	}
	assert.Equal(t, []int{7, 3, 6, 5, 4}, r.Items())
}

func TestRecentUpdates(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := NewRecords()
	rs[10] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 5, 1, 0)}
	rs[11] = record.Record{Status: record.StatusDead, Dead: record.Sub{Status: record.SubDone, DoneDate: day(2024, 6, 1, 0)}}
	rs[12] = record.Record{Status: record.StatusResettle, Resettle: record.Sub{Status: record.SubDone, DoneDate: day(2024, 4, 1, 0)}}
	rs[13] = record.Record{Status: record.StatusPending, Pending: record.Sub{Status: record.SubDone, DoneDate: day(2024, 7, 1, 0)}}
	rs[14] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 3, 1, 0)}
	rs[15] = record.Record{Status: record.StatusDone, DoneDate: day(2024, 2, 1, 0)}
	rs[16] = record.Record{Status: record.StatusNo, DoneDate: day(2029, 1, 1, 0)}

	got := RecentUpdates(rs, now)
	var numbers []int
	for _, u := range got {
		numbers = append(numbers, u.Number)
	}
	// pending dates are ignored so 13 ranks as "now"
	want := []int{13, 11, 10, 12, 14}
	if diff := cmp.Diff(want, numbers); diff != "" {
		t.Fatalf("recent updates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, now, got[0].At)
}

func TestRecentUpdatesUsesLatestDate(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := NewRecords()
	rs[1] = record.Record{Status: record.StatusDead, DoneDate: day(2024, 1, 1, 0), Dead: record.Sub{Status: record.SubDone, DoneDate: day(2024, 9, 1, 0)}}
	got := RecentUpdates(rs, now)
	require.Len(t, got, 1)
	assert.Equal(t, *day(2024, 9, 1, 0), got[0].At)
}
