// Package view derives read-only projections from the record set: status
// counts, the filtered listing and the recent-activity lists.
package view

import "numtrack/internal/record"

// Records is the full record set indexed by number. Index 0 is unused;
// numbers past the end read as record.Default.
type Records []record.Record

// NewRecords returns a set with every number at record.Default.
func NewRecords() Records {
	rs := make(Records, record.MaxNumber+1)
	for n := range rs {
		rs[n] = record.Default
	}
	return rs
}

func (rs Records) Get(n int) record.Record {
	if n < record.MinNumber || n >= len(rs) {
		return record.Default
	}
	return rs[n]
}

type SubCounts struct {
	Done int
	No   int
}

type Counts struct {
	Status map[record.Status]int
	Sub    map[record.Category]SubCounts
}

// Count tallies every number once by status and, for records sitting in
// a category, by that category's sub-status. Unset sub-statuses count
// toward neither bucket.
func Count(rs Records) Counts {
	c := Counts{
		Status: make(map[record.Status]int, len(record.Statuses)),
		Sub:    make(map[record.Category]SubCounts, len(record.Categories)),
	}
	for _, s := range record.Statuses {
		c.Status[s] = 0
	}
	for _, cat := range record.Categories {
		c.Sub[cat] = SubCounts{}
	}
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		r := rs.Get(n)
		c.Status[r.Status]++
		if !record.IsCategory(r.Status) {
			continue
		}
		sc := c.Sub[r.Status]
		switch r.Sub(r.Status).Status {
		case record.SubDone:
			sc.Done++
		case record.SubNo:
			sc.No++
		}
		c.Sub[r.Status] = sc
	}
	return c
}
