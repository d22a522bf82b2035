package view

import (
	"strconv"
	"strings"
	"time"

	"numtrack/internal/record"
)

// SearchWindow is how far past a numeric search the listing extends.
const SearchWindow = 10

// Query selects numbers for the listing. All set predicates must hold.
type Query struct {
	Search string
	// Status is "" or "all" for no status filter.
	Status record.Status
	// DateField selects the date the Start/End window applies to.
	DateField record.DateField
	Start     *time.Time
	End       *time.Time
	// Location anchors the calendar days of Start and End; nil means local.
	Location *time.Location
}

// Filter returns the ascending numbers matching q.
func Filter(rs Records, q Query) []int {
	match := q.matcher()
	out := make([]int, 0, record.MaxNumber)
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		if match(n, rs.Get(n)) {
			out = append(out, n)
		}
	}
	return out
}

func (q Query) matcher() func(int, record.Record) bool {
	search := q.searchPredicate()
	window := q.windowPredicate()
	return func(n int, r record.Record) bool {
		if !search(n, r) {
			return false
		}
		if q.Status != "" && q.Status != "all" && r.Status != q.Status {
			return false
		}
		return window(r)
	}
}

func (q Query) searchPredicate() func(int, record.Record) bool {
	trimmed := strings.TrimSpace(q.Search)
	if trimmed != "" {
		if base, err := strconv.Atoi(trimmed); err == nil {
			return func(n int, _ record.Record) bool {
				return n >= base && n <= base+SearchWindow
			}
		}
	}
	needle := strings.ToLower(q.Search)
	return func(n int, r record.Record) bool {
		if strings.Contains(strconv.Itoa(n), needle) {
			return true
		}
		return strings.Contains(strings.ToLower(r.Name), needle)
	}
}

func (q Query) windowPredicate() func(record.Record) bool {
	if q.DateField == record.FieldNone || (q.Start == nil && q.End == nil) {
		return func(record.Record) bool { return true }
	}
	loc := q.Location
	if loc == nil {
		loc = time.Local
	}
	var from, to time.Time
	if q.Start != nil {
		y, m, d := q.Start.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	if q.End != nil {
		y, m, d := q.End.Date()
		to = time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
	}
	return func(r record.Record) bool {
		if !r.InDateState(q.DateField) {
			return false
		}
		date := r.Date(q.DateField)
		if date == nil {
			return false
		}
		if q.Start != nil && date.Before(from) {
			return false
		}
		if q.End != nil && date.After(to) {
			return false
		}
		return true
	}
}
