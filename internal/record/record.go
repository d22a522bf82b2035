// Package record holds the tracked entity: one Record per number in
// [MinNumber, MaxNumber], its status enums and the transitions that keep
// the status, sub-status and date fields consistent.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	MinNumber = 1
	MaxNumber = 1421
)

var (
	ErrOutOfRange       = errors.New("number out of range")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidSubStatus = errors.New("invalid sub-status")
	ErrInvalidCategory  = errors.New("status has no sub-status")
	ErrCategoryMismatch = errors.New("record status does not match category")
)

type Status string

const (
	StatusDone       Status = "done"
	StatusNo         Status = "no"
	StatusPending    Status = "pending"
	StatusDead       Status = "dead"
	StatusResettle   Status = "resettle"
	StatusDuplicates Status = "duplicates"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusDone, StatusNo, StatusPending, StatusDead, StatusResettle, StatusDuplicates}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Label is the human-facing spelling ("Done", "Resettle", ...).
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

// SubStatus is the secondary done/no mark. The zero value means unset.
type SubStatus string

const (
	SubUnset SubStatus = ""
	SubDone  SubStatus = "done"
	SubNo    SubStatus = "no"
)

func (s SubStatus) Valid() bool {
	return s == SubUnset || s == SubDone || s == SubNo
}

func ParseSubStatus(v string) (SubStatus, error) {
	s := SubStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubStatus, v)
	}
	return s, nil
}

// Category is a status that carries a sub-status and its own done date.
type Category = Status

// Categories lists the sub-status-bearing statuses.
var Categories = []Category{StatusDead, StatusResettle, StatusPending, StatusDuplicates}

func IsCategory(s Status) bool {
	switch s {
	case StatusDead, StatusResettle, StatusPending, StatusDuplicates:
		return true
	}
	return false
}

type Sub struct {
	Status   SubStatus
	DoneDate *time.Time
}

type Record struct {
	Status     Status
	Name       string
	DoneDate   *time.Time
	Dead       Sub
	Resettle   Sub
	Pending    Sub
	Duplicates Sub
}

// Default is the record every number starts with and the value used
// wherever a lookup misses.
var Default = Record{Status: StatusNo}

// InRange reports whether n is a trackable number.
func InRange(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}

func CheckNumber(n int) error {
	if !InRange(n) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return nil
}

// Sub returns the sub-status block of category c, or the zero Sub when c
// is not a category.
func (r Record) Sub(c Category) Sub {
	if p := r.sub(c); p != nil {
		return *p
	}
	return Sub{}
}

func (r *Record) sub(c Category) *Sub {
	switch c {
	case StatusDead:
		return &r.Dead
	case StatusResettle:
		return &r.Resettle
	case StatusPending:
		return &r.Pending
	case StatusDuplicates:
		return &r.Duplicates
	}
	return nil
}

// ActiveDate is the date shown for the record in its current state: the
// done date for done records, the category date when the category
// sub-status is done, nil otherwise.
func (r Record) ActiveDate() *time.Time {
	if r.Status == StatusDone {
		return r.DoneDate
	}
	if IsCategory(r.Status) {
		s := r.Sub(r.Status)
		if s.Status == SubDone {
			return s.DoneDate
		}
	}
	return nil
}

func (r Record) Clone() Record {
	c := r
	c.DoneDate = cloneTime(r.DoneDate)
	c.Dead.DoneDate = cloneTime(r.Dead.DoneDate)
	c.Resettle.DoneDate = cloneTime(r.Resettle.DoneDate)
	c.Pending.DoneDate = cloneTime(r.Pending.DoneDate)
	c.Duplicates.DoneDate = cloneTime(r.Duplicates.DoneDate)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
