package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp layout exchanged with the backend.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is the calendar-date layout accepted from date inputs.
const DateLayout = "2006-01-02"

// wireRecord is the flat JSON shape used by the backend and the snapshot.
type wireRecord struct {
	Number              int     `json:"number,omitempty"`
	Status              string  `json:"status"`
	Name                string  `json:"name"`
	DoneDate            *string `json:"doneDate"`
	DeadSubStatus       *string `json:"deadSubStatus"`
	DeadDoneDate        *string `json:"deadDoneDate"`
	ResettleSubStatus   *string `json:"resettleSubStatus"`
	ResettleDoneDate    *string `json:"resettleDoneDate"`
	PendingSubStatus    *string `json:"pendingSubStatus"`
	PendingDoneDate     *string `json:"pendingDoneDate"`
	DuplicatesSubStatus *string `json:"duplicatesSubStatus"`
	DuplicatesDoneDate  *string `json:"duplicatesDoneDate"`
}

// Entry is a Record paired with its number, as listed by GET /numbers.
type Entry struct {
	Number int
	Record Record
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toWire(0))
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec, err := w.toRecord()
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Record.toWire(e.Number))
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec, err := w.toRecord()
	if err != nil {
		return fmt.Errorf("number %d: %w", w.Number, err)
	}
	e.Number = w.Number
	e.Record = rec
	return nil
}

func (r Record) toWire(number int) wireRecord {
	return wireRecord{
		Number:              number,
		Status:              string(r.Status),
		Name:                r.Name,
		DoneDate:            FormatTime(r.DoneDate),
		DeadSubStatus:       subString(r.Dead.Status),
		DeadDoneDate:        FormatTime(r.Dead.DoneDate),
		ResettleSubStatus:   subString(r.Resettle.Status),
		ResettleDoneDate:    FormatTime(r.Resettle.DoneDate),
		PendingSubStatus:    subString(r.Pending.Status),
		PendingDoneDate:     FormatTime(r.Pending.DoneDate),
		DuplicatesSubStatus: subString(r.Duplicates.Status),
		DuplicatesDoneDate:  FormatTime(r.Duplicates.DoneDate),
	}
}

func (w wireRecord) toRecord() (Record, error) {
	rec := Default
	if w.Status != "" {
		s, err := ParseStatus(w.Status)
		if err != nil {
			return Record{}, err
		}
		rec.Status = s
	}
	rec.Name = w.Name

	var err error
	if rec.DoneDate, err = ParseTime(w.DoneDate); err != nil {
		return Record{}, err
	}
	subs := []struct {
		dst        *Sub
		status     *string
		doneDate   *string
		fieldLabel string
	}{
		{&rec.Dead, w.DeadSubStatus, w.DeadDoneDate, "dead"},
		{&rec.Resettle, w.ResettleSubStatus, w.ResettleDoneDate, "resettle"},
		{&rec.Pending, w.PendingSubStatus, w.PendingDoneDate, "pending"},
		{&rec.Duplicates, w.DuplicatesSubStatus, w.DuplicatesDoneDate, "duplicates"},
	}
	for _, s := range subs {
		if s.status != nil {
			sub, err := ParseSubStatus(*s.status)
			if err != nil {
				return Record{}, fmt.Errorf("%s: %w", s.fieldLabel, err)
			}
			s.dst.Status = sub
		}
		if s.dst.DoneDate, err = ParseTime(s.doneDate); err != nil {
			return Record{}, fmt.Errorf("%s: %w", s.fieldLabel, err)
		}
	}
	return rec, nil
}

func subString(s SubStatus) *string {
	if s == SubUnset {
		return nil
	}
	v := string(s)
	return &v
}

// FormatTime renders t in TimeLayout (UTC); nil stays nil.
func FormatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(TimeLayout)
	return &v
}

// ParseTime accepts RFC 3339 timestamps and bare calendar dates. Nil and
// empty strings yield a nil time.
func ParseTime(v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", s)
	}
	return &t, nil
}
