package view

import (
	"sort"
	"time"

	"numtrack/internal/record"
)

// RecentCapacity bounds both recent-activity lists.
const RecentCapacity = 5

// Recent remembers the numbers touched in this session, most recent
// first, without duplicates.
type Recent struct {
	items []int
}

// Touch moves n to the front, dropping any older occurrence and the
// oldest entry once the list is full.
func (r *Recent) Touch(n int) {
	next := make([]int, 0, RecentCapacity)
	next = append(next, n)
	for _, v := range r.items {
		if v == n {
			continue
		}
		if len(next) == RecentCapacity {
			break
		}
		next = append(next, v)
	}
	r.items = next
}

// Items returns a copy of the list.
func (r *Recent) Items() []int {
	out := make([]int, len(r.items))
	copy(out, r.items)
	return out
}

type Update struct {
	Number int
	Record record.Record
	At     time.Time
}

// RecentUpdates ranks records not in status "no" by the latest of their
// done, dead and resettle dates (now when none is set) and returns the
// top RecentCapacity, newest first. Pending and duplicates dates are not
// part of the ranking.
func RecentUpdates(rs Records, now time.Time) []Update {
	var all []Update
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		r := rs.Get(n)
		if r.Status == record.StatusNo {
			continue
		}
		all = append(all, Update{Number: n, Record: r, At: lastUpdate(r, now)})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].At.After(all[j].At)
	})
	if len(all) > RecentCapacity {
		all = all[:RecentCapacity]
	}
	return all
}

func lastUpdate(r record.Record, now time.Time) time.Time {
	var latest *time.Time
	for _, t := range []*time.Time{r.DoneDate, r.Dead.DoneDate, r.Resettle.DoneDate} {
		if t != nil && (latest == nil || t.After(*latest)) {
			latest = t
		}
	}
	if latest == nil {
		return now
	}
	return *latest
}
