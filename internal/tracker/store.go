// Package tracker owns the authoritative in-memory record set. Commands
// update it optimistically, mirror it to the local snapshot and push the
// change to the backend without waiting for the result.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

// Backend is the remote record service.
type Backend interface {
	FetchAll(ctx context.Context) ([]record.Entry, error)
	PutRecord(ctx context.Context, n int, r record.Record) error
	BulkUpdate(ctx context.Context, numbers []int, status record.Status) error
}

// Cache is the local fallback copy of the full set.
type Cache interface {
	SaveSnapshot(rs view.Records) error
	LoadSnapshot() (view.Records, error)
}

// Source tells where Load found its data.
type Source int

const (
	SourceDefaults Source = iota
	SourceBackend
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceBackend:
		return "backend"
	case SourceCache:
		return "local snapshot"
	default:
		return "defaults"
	}
}

// MaxInFlight bounds concurrent write-throughs to the backend.
const MaxInFlight = 8

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for load and write failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithContext sets the parent context of background writes.
func WithContext(ctx context.Context) Option {
	return func(s *Store) { s.ctx = ctx }
}

type Store struct {
	backend Backend
	cache   Cache
	log     *zap.Logger
	now     func() time.Time
	ctx     context.Context

	records view.Records
	recent  view.Recent
	writes  sync.WaitGroup
	slots   *semaphore.Weighted
}

// New returns a store holding the default set. backend and cache may be
// nil.
func New(backend Backend, cache Cache, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		cache:   cache,
		log:     zap.NewNop(),
		now:     time.Now,
		ctx:     context.Background(),
		records: view.NewRecords(),
		slots:   semaphore.NewWeighted(MaxInFlight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the set from the backend, falling back to the local
// snapshot and then to defaults. It always leaves a usable set.
func (s *Store) Load(ctx context.Context) Source {
	if s.backend != nil {
		entries, err := s.backend.FetchAll(ctx)
		if err == nil {
			rs := view.NewRecords()
			for _, e := range entries {
				if !record.InRange(e.Number) {
					s.log.Warn("ignoring out-of-range record", zap.Int("number", e.Number))
					continue
				}
				rs[e.Number] = e.Record
			}
			s.records = rs
			s.saveSnapshot()
			return SourceBackend
		}
		s.log.Warn("backend load failed, using fallback", zap.Error(err))
	}

	if s.cache != nil {
		rs, err := s.cache.LoadSnapshot()
		if err == nil && len(rs) == record.MaxNumber+1 {
			s.records = rs
			return SourceCache
		}
		if err != nil {
			s.log.Warn("local snapshot unavailable", zap.Error(err))
		}
	}

	s.records = view.NewRecords()
	s.saveSnapshot()
	return SourceDefaults
}

// Get returns the record for n, or record.Default when n is out of range.
func (s *Store) Get(n int) record.Record {
	return s.records.Get(n).Clone()
}

// All returns a copy of the full set.
func (s *Store) All() view.Records {
	out := make(view.Records, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Records exposes the live set to read-only projections; callers must not
// modify it.
func (s *Store) Records() view.Records {
	return s.records
}

func (s *Store) Recent() []int {
	return s.recent.Items()
}

func (s *Store) SetStatus(n int, status record.Status, date *time.Time) error {
	if err := record.CheckNumber(n); err != nil {
		return err
	}
	next, err := s.records[n].WithStatus(status, date, s.now())
	if err != nil {
		return err
	}
	s.commit(n, next)
	return nil
}

func (s *Store) SetSubStatus(n int, sub record.SubStatus, c record.Category, date *time.Time) error {
	if err := record.CheckNumber(n); err != nil {
		return err
	}
	next, err := s.records[n].WithSubStatus(sub, c, date, s.now())
	if err != nil {
		return err
	}
	s.commit(n, next)
	return nil
}

// SetDate overrides one date field as a manual correction; status and
// sub-status are left alone.
func (s *Store) SetDate(n int, f record.DateField, date *time.Time) error {
	if err := record.CheckNumber(n); err != nil {
		return err
	}
	next, err := s.records[n].WithDate(f, date)
	if err != nil {
		return err
	}
	s.commit(n, next)
	return nil
}

func (s *Store) SetName(n int, name string) error {
	if err := record.CheckNumber(n); err != nil {
		return err
	}
	next := s.records[n].Clone()
	next.Name = name
	s.commit(n, next)
	return nil
}

// BulkApply sets status on every number named by spec and sends one
// batched update. Only the status field changes. It returns the numbers
// it resolved.
func (s *Store) BulkApply(spec string, status record.Status) ([]int, error) {
	if !status.Valid() {
		return nil, record.ErrInvalidStatus
	}
	numbers := record.ParseRange(spec)
	if len(numbers) == 0 {
		return nil, nil
	}
	for _, n := range numbers {
		s.records[n].Status = status
		s.recent.Touch(n)
	}
	s.saveSnapshot()
	s.dispatch("bulk update", func(ctx context.Context) error {
		return s.backend.BulkUpdate(ctx, numbers, status)
	}, zap.Int("count", len(numbers)), zap.String("status", string(status)))
	return numbers, nil
}

// Wait blocks until every write started so far has finished.
func (s *Store) Wait() {
	s.writes.Wait()
}

// Edit sets the status and/or name of one number. An empty Status or a nil
// Name leaves that field alone.
type Edit struct {
	Number int
	Status record.Status
	Name   *string
}

// ApplyEdits merges all edits for a number into one record and sends a
// single write-through per changed number, refreshing the snapshot once.
// Nothing is applied when any edit is invalid. It returns the changed
// numbers in first-seen order.
func (s *Store) ApplyEdits(edits []Edit) ([]int, error) {
	next := make(map[int]record.Record, len(edits))
	dirty := make(map[int]bool, len(edits))
	var order []int
	for _, e := range edits {
		if err := record.CheckNumber(e.Number); err != nil {
			return nil, err
		}
		r, seen := next[e.Number]
		if !seen {
			r = s.records[e.Number].Clone()
			order = append(order, e.Number)
		}
		if e.Status != "" && e.Status != r.Status {
			var err error
			if r, err = r.WithStatus(e.Status, nil, s.now()); err != nil {
				return nil, fmt.Errorf("number %d: %w", e.Number, err)
			}
			dirty[e.Number] = true
		}
		if e.Name != nil && *e.Name != r.Name {
			r.Name = *e.Name
			dirty[e.Number] = true
		}
		next[e.Number] = r
	}

	var changed []int
	for _, n := range order {
		if !dirty[n] {
			continue
		}
		s.apply(n, next[n])
		changed = append(changed, n)
	}
	if len(changed) > 0 {
		s.saveSnapshot()
	}
	return changed, nil
}

func (s *Store) commit(n int, next record.Record) {
	s.apply(n, next)
	s.saveSnapshot()
}

func (s *Store) apply(n int, next record.Record) {
	s.records[n] = next
	s.recent.Touch(n)
	body := next.Clone()
	s.dispatch("record update", func(ctx context.Context) error {
		return s.backend.PutRecord(ctx, n, body)
	}, zap.Int("number", n), zap.String("status", string(body.Status)))
}

// dispatch runs write in the background. Failures are logged and
// otherwise dropped; the local state is never rolled back.
func (s *Store) dispatch(what string, write func(context.Context) error, fields ...zap.Field) {
	if s.backend == nil {
		return
	}
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		if err := s.slots.Acquire(s.ctx, 1); err != nil {
			s.log.Error(what+" dropped", append(fields, zap.Error(err))...)
			return
		}
		defer s.slots.Release(1)
		if err := write(s.ctx); err != nil {
			s.log.Error(what+" failed", append(fields, zap.Error(err))...)
		}
	}()
}

func (s *Store) saveSnapshot() {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveSnapshot(s.records); err != nil {
		s.log.Warn("saving local snapshot failed", zap.Error(err))
	}
}
