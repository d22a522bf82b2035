package record

import (
	"fmt"
	"time"
)

// DateField names one of the five nullable dates on a Record.
type DateField string

const (
	FieldNone           DateField = ""
	FieldDone           DateField = "done"
	FieldDeadDone       DateField = "deadDone"
	FieldResettleDone   DateField = "resettleDone"
	FieldPendingDone    DateField = "pendingDone"
	FieldDuplicatesDone DateField = "duplicatesDone"
)

// DateFields lists the selectable date fields in display order.
var DateFields = []DateField{FieldDone, FieldDeadDone, FieldResettleDone, FieldPendingDone, FieldDuplicatesDone}

func ParseDateField(v string) (DateField, error) {
	if v == "" || v == "all" {
		return FieldNone, nil
	}
	for _, f := range DateFields {
		if string(f) == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown date field %q", v)
}

// FieldFor maps a status to the date field it owns.
func FieldFor(s Status) DateField {
	switch s {
	case StatusDone:
		return FieldDone
	case StatusDead:
		return FieldDeadDone
	case StatusResettle:
		return FieldResettleDone
	case StatusPending:
		return FieldPendingDone
	case StatusDuplicates:
		return FieldDuplicatesDone
	}
	return FieldNone
}

// Owner is the inverse of FieldFor.
func (f DateField) Owner() Status {
	switch f {
	case FieldDone:
		return StatusDone
	case FieldDeadDone:
		return StatusDead
	case FieldResettleDone:
		return StatusResettle
	case FieldPendingDone:
		return StatusPending
	case FieldDuplicatesDone:
		return StatusDuplicates
	}
	return ""
}

// Date returns the value of field f.
func (r Record) Date(f DateField) *time.Time {
	if f == FieldDone {
		return r.DoneDate
	}
	return r.Sub(f.Owner()).DoneDate
}

// InDateState reports whether r is in the state where field f is
// meaningful: status done for FieldDone, otherwise the owning category
// with sub-status done.
func (r Record) InDateState(f DateField) bool {
	owner := f.Owner()
	if owner == "" || r.Status != owner {
		return false
	}
	if f == FieldDone {
		return true
	}
	return r.Sub(owner).Status == SubDone
}

// WithStatus returns r moved to status s. A category keeps its sub-status
// only while it is the active status, and its date only while that
// sub-status is done. The done date is set to date, or now, when s is
// done and cleared otherwise.
func (r Record) WithStatus(s Status, date *time.Time, now time.Time) (Record, error) {
	if !s.Valid() {
		return r, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	out := r.Clone()
	out.Status = s
	out.DoneDate = nil
	if s == StatusDone {
		out.DoneDate = pick(date, now)
	}
	for _, c := range Categories {
		sub := out.sub(c)
		if c != s {
			*sub = Sub{}
			continue
		}
		if sub.Status != SubDone {
			sub.DoneDate = nil
		}
	}
	return out, nil
}

// WithSubStatus sets the sub-status of category c. The record must
// currently be in status c. Setting done stamps the category date with
// date or now; any other value clears it.
func (r Record) WithSubStatus(sub SubStatus, c Category, date *time.Time, now time.Time) (Record, error) {
	if !IsCategory(c) {
		return r, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	if !sub.Valid() {
		return r, fmt.Errorf("%w: %q", ErrInvalidSubStatus, sub)
	}
	if r.Status != c {
		return r, fmt.Errorf("%w: status %q, category %q", ErrCategoryMismatch, r.Status, c)
	}
	out := r.Clone()
	p := out.sub(c)
	p.Status = sub
	p.DoneDate = nil
	if sub == SubDone {
		p.DoneDate = pick(date, now)
	}
	return out, nil
}

// WithDate overwrites field f without touching status or sub-status. A
// nil date clears the field.
func (r Record) WithDate(f DateField, date *time.Time) (Record, error) {
	out := r.Clone()
	switch f {
	case FieldDone:
		out.DoneDate = cloneTime(date)
	case FieldDeadDone, FieldResettleDone, FieldPendingDone, FieldDuplicatesDone:
		out.sub(f.Owner()).DoneDate = cloneTime(date)
	default:
		return r, fmt.Errorf("unknown date field %q", f)
	}
	return out, nil
}

func pick(date *time.Time, now time.Time) *time.Time {
	if date != nil {
		return cloneTime(date)
	}
	return &now
}
