// Package syncer keeps the in-memory snapshot consistent with the remote row
// store: parallel reads in, normalized writes out, write-then-resync in
// between. No optimistic updates; every successful write refetches.
package syncer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/storage/rowstore"
)

// ErrBusy is returned when a mutation is attempted while another is still in
// flight. The busy flag covers write+resync as one critical section.
var ErrBusy = errors.New("another change is still being applied")

type Service struct {
	store rowstore.Client
	log   core.Logger

	busy int32

	mu   sync.RWMutex
	snap Snapshot
}

func NewService(store rowstore.Client, log core.Logger) *Service {
	return &Service{store: store, log: log}
}

// Snapshot returns the current snapshot. The value's collections must be
// treated as read-only; they are replaced wholesale on resync, never patched.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) publish(next Snapshot) {
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
}

func (s *Service) Busy() bool {
	return atomic.LoadInt32(&s.busy) == 1
}

func (s *Service) begin() bool {
	return atomic.CompareAndSwapInt32(&s.busy, 0, 1)
}

func (s *Service) end() {
	atomic.StoreInt32(&s.busy, 0)
}

// Refresh re-runs the full fetch and publishes the result. On partial
// failure the successful collections are still published and a *SyncError
// names the rest; callers expose it as a retry affordance, never a loop.
func (s *Service) Refresh(ctx context.Context) error {
	next, err := s.fetchAll(ctx)
	s.publish(next)
	return err
}

// Save performs one logical create/update. The payload is normalized first
// (no network call happens on validation failure), upserted, then the
// snapshot is resynced: a narrow per-school refetch for students, a narrow
// refetch for messages, a full run otherwise.
func (s *Service) Save(ctx context.Context, kind record.Kind, raw record.RawData, editID string) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	payload, err := record.Normalize(kind, raw, editID)
	if err != nil {
		return err
	}
	if err = s.store.Upsert(ctx, kind.Table(), payload); err != nil {
		return core.NewRemoteWriteError(kind.Table(), err)
	}

	schoolID, _ := payload["school_id"].(string)
	return s.resync(ctx, kind, schoolID)
}

// Remove deletes one row by id and resyncs like Save. Confirmation is the
// caller's concern. There is no cascade: a school's students and a member's
// transactions survive their owner and show up dangling on the next refresh.
func (s *Service) Remove(ctx context.Context, kind record.Kind, id string) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	var value interface{} = id
	if kind.HasNumericID() {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return core.NewValidationError(
				errors.Errorf("invalid %s id %q", kind.Table(), id),
				core.FieldError{Field: "id", Error: "must be numeric"},
			)
		}
		value = n
	}

	// resolve the owning school before the row disappears
	var schoolID string
	if kind == record.KindStudent {
		for _, st := range s.Snapshot().Students {
			if st.ID == id {
				schoolID = st.SchoolID
				break
			}
		}
	}

	if err := s.store.Delete(ctx, kind.Table(), rowstore.Filter{Column: "id", Value: value}); err != nil {
		return core.NewRemoteWriteError(kind.Table(), err)
	}
	return s.resync(ctx, kind, schoolID)
}

// ClearMessages wipes the whole chat in one delete-all call; the store's
// per-call atomicity makes the wipe all-or-nothing.
func (s *Service) ClearMessages(ctx context.Context) error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	f := rowstore.Filter{Column: "id", Value: 0, Not: true}
	if err := s.store.Delete(ctx, record.KindMessage.Table(), f); err != nil {
		return core.NewRemoteWriteError(record.KindMessage.Table(), err)
	}
	return s.refetchMessages(ctx)
}

func (s *Service) resync(ctx context.Context, kind record.Kind, schoolID string) error {
	switch {
	case kind == record.KindStudent && schoolID != "":
		return s.refetchSchoolStudents(ctx, schoolID)
	case kind == record.KindMessage:
		return s.refetchMessages(ctx)
	}
	return s.Refresh(ctx)
}

// refetchSchoolStudents refreshes only the mutated school's students and
// recomputes the join; every other collection keeps its current data.
func (s *Service) refetchSchoolStudents(ctx context.Context, schoolID string) error {
	rows, err := s.store.Select(ctx, record.KindStudent.Table(), rowstore.Query{
		Filter: &rowstore.Filter{Column: "school_id", Value: schoolID},
		Order:  &rowstore.Ordering{Field: "roll", Ascending: true},
	})
	if err != nil {
		return &SyncError{Failed: map[string]error{"students": err}}
	}
	var fetched []record.Student
	if err = decode(rows, &fetched); err != nil {
		return &SyncError{Failed: map[string]error{"students": err}}
	}

	next := s.Snapshot()
	students := make([]record.Student, 0, len(next.Students))
	for _, st := range next.Students {
		if st.SchoolID != schoolID {
			students = append(students, st)
		}
	}
	next.Students = append(students, fetched...)
	next.Schools = joinSchools(next.Schools, next.Students)
	s.publish(next)
	return nil
}

func (s *Service) refetchMessages(ctx context.Context) error {
	next := s.Snapshot()
	if err := fetchMessages(ctx, s.store, &next); err != nil {
		return &SyncError{Failed: map[string]error{"messages": err}}
	}
	s.publish(next)
	return nil
}
