package syncer

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/services/logger"
	"github.com/trezcool/umoja/storage/rowstore/dummy"
)

func newTestService(t *testing.T) (*Service, *dummydb.DB) {
	t.Helper()
	db := dummydb.New()
	return NewService(db, logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))), db
}

func TestJoinSchools(t *testing.T) {
	schools := []record.School{
		{ID: "s1", Name: "Mirpur Model"},
		{ID: "s2", Name: "Savar High"},
	}
	students := []record.Student{
		{ID: "st1", SchoolID: "s1", Name: "Rahim", Roll: "1"},
		{ID: "st2", SchoolID: "s1", Name: "Karim", Roll: "2"},
		{ID: "st3", SchoolID: "s9", Name: "Orphan", Roll: "1"}, // school long gone
	}

	joined := joinSchools(schools, students)

	if got := joined[0].StudentCount; got != 2 {
		t.Errorf("s1 StudentCount = %d, want 2", got)
	}
	if got := len(joined[0].Students); got != 2 {
		t.Errorf("s1 Students = %d, want 2", got)
	}
	if got := joined[1].StudentCount; got != 0 {
		t.Errorf("s2 StudentCount = %d, want 0", got)
	}
	// the input slice is never touched; prior snapshots stay frozen
	if schools[0].Students != nil || schools[0].StudentCount != 0 {
		t.Error("joinSchools mutated its input")
	}
}

func TestService_Refresh_ordering(t *testing.T) {
	svc, db := newTestService(t)
	db.Seed("updates",
		record.RawData{"title": "first"},
		record.RawData{"title": "second"},
		record.RawData{"title": "third"},
	)
	db.Seed("messages",
		record.RawData{"text": "later", "timestamp": 1615700002000},
		record.RawData{"text": "earlier", "timestamp": 1615700001000},
	)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	snap := svc.Snapshot()

	// announcements newest first
	if got := snap.Updates[0].Title; got != "third" {
		t.Errorf("Updates[0].Title = %q, want %q", got, "third")
	}
	if got := snap.Updates[2].Title; got != "first" {
		t.Errorf("Updates[2].Title = %q, want %q", got, "first")
	}
	// chat chronological
	if got := snap.Messages[0].Text; got != "earlier" {
		t.Errorf("Messages[0].Text = %q, want %q", got, "earlier")
	}
}

func TestService_Refresh_partialFailure(t *testing.T) {
	svc, db := newTestService(t)
	db.Seed("schools", record.RawData{"name": "Mirpur Model"})
	db.Seed("updates", record.RawData{"title": "Notice"})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}

	db.FailTable("schools", errors.New("boom"))
	db.Seed("updates", record.RawData{"title": "Another"})

	err := svc.Refresh(context.Background())
	serr, ok := err.(*SyncError)
	if !ok {
		t.Fatalf("Refresh() error = %v, want *SyncError", err)
	}
	if got := serr.Collections(); len(got) != 1 || got[0] != "schools" {
		t.Errorf("Collections() = %v, want [schools]", got)
	}

	snap := svc.Snapshot()
	// the failed collection keeps its prior data, the rest moved on
	if got := len(snap.Schools); got != 1 {
		t.Errorf("Schools = %d, want 1 (prior data)", got)
	}
	if got := len(snap.Updates); got != 2 {
		t.Errorf("Updates = %d, want 2", got)
	}
}

func TestService_Refresh_settings(t *testing.T) {
	svc, db := newTestService(t)

	// nothing seeded yet: zero-value settings, no error
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	if got := svc.Snapshot().Settings.ID; got != "" {
		t.Errorf("Settings.ID = %q, want empty", got)
	}

	db.Seed("site_settings",
		record.RawData{"id": record.SettingsSentinelID, "phone1": "01712345678"},
		record.RawData{"id": "stray", "phone1": "nope"},
	)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	snap := svc.Snapshot()
	if snap.Settings.ID != record.SettingsSentinelID {
		t.Errorf("Settings.ID = %q, want %q", snap.Settings.ID, record.SettingsSentinelID)
	}
	if snap.Settings.Phone1 != "01712345678" {
		t.Errorf("Settings.Phone1 = %q, want %q", snap.Settings.Phone1, "01712345678")
	}
}

func TestService_Refresh_join(t *testing.T) {
	svc, db := newTestService(t)
	ids := db.Seed("schools",
		record.RawData{"name": "Mirpur Model"},
		record.RawData{"name": "Savar High"},
	)
	db.Seed("students",
		record.RawData{"school_id": ids[0], "name": "Rahim", "roll": "1"},
		record.RawData{"school_id": ids[0], "name": "Karim", "roll": "2"},
	)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	for _, sc := range svc.Snapshot().Schools {
		want := 0
		if sc.ID == ids[0] {
			want = 2
		}
		if sc.StudentCount != want {
			t.Errorf("school %q StudentCount = %d, want %d", sc.Name, sc.StudentCount, want)
		}
	}
}
