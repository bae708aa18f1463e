package syncer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/storage/rowstore"
)

func TestService_Save_transaction(t *testing.T) {
	svc, db := newTestService(t)
	memberIDs := db.Seed("profiles", record.RawData{"name": "Karim", "mobile": "01712345678"})

	raw := record.RawData{
		"userId": memberIDs[0],
		"amount": "150.50",
		"month":  "মার্চ",
	}
	if err := svc.Save(context.Background(), record.KindTransaction, raw, ""); err != nil {
		t.Fatalf("Save() failed, %v", err)
	}

	snap := svc.Snapshot()
	if got := len(snap.Transactions); got != 1 {
		t.Fatalf("Transactions = %d, want 1", got)
	}
	tr := snap.Transactions[0]
	if tr.ID == 0 {
		t.Error("transaction id not assigned by the store")
	}
	if tr.Amount != 150.5 {
		t.Errorf("Amount = %v, want 150.5", tr.Amount)
	}
	if tr.MemberID != memberIDs[0] {
		t.Errorf("MemberID = %q, want %q", tr.MemberID, memberIDs[0])
	}
	if tr.Date == "" {
		t.Error("Date not stamped")
	}
}

func TestService_Save_editIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ids := db.Seed("gallery", record.RawData{"title": "Picnic", "url": "a.jpg"})

	raw := record.RawData{"title": "Picnic 2021", "url": "a.jpg", "description": ""}
	for i := 0; i < 2; i++ {
		if err := svc.Save(context.Background(), record.KindGallery, raw, ids[0]); err != nil {
			t.Fatalf("Save() #%d failed, %v", i+1, err)
		}
	}

	snap := svc.Snapshot()
	if got := len(snap.Gallery); got != 1 {
		t.Fatalf("Gallery = %d, want 1 (no duplicate rows)", got)
	}
	if got := snap.Gallery[0].Title; got != "Picnic 2021" {
		t.Errorf("Title = %q, want %q", got, "Picnic 2021")
	}
}

func TestService_Save_rejectedPayloadNeverHitsStore(t *testing.T) {
	svc, db := newTestService(t)

	writes := db.WriteCount()
	err := svc.Save(context.Background(), record.KindTransaction, record.RawData{"amount": "abc"}, "")

	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Save() error = %v, want *core.ValidationError", err)
	}
	if got := db.WriteCount(); got != writes {
		t.Errorf("WriteCount = %d, want %d (no remote call on validation failure)", got, writes)
	}
	if svc.Busy() {
		t.Error("Busy() = true after Save returned")
	}
}

func TestService_Save_student_narrowResync(t *testing.T) {
	svc, db := newTestService(t)
	ids := db.Seed("schools",
		record.RawData{"name": "Mirpur Model"},
		record.RawData{"name": "Savar High"},
	)
	db.Seed("students", record.RawData{"school_id": ids[1], "name": "Karim", "roll": "1"})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}

	// lands after the snapshot; only a full refresh would pick it up
	db.Seed("updates", record.RawData{"title": "late"})
	reads := db.ReadCount()

	raw := record.RawData{"school_id": ids[0], "name": "Rahim", "roll": "1"}
	if err := svc.Save(context.Background(), record.KindStudent, raw, ""); err != nil {
		t.Fatalf("Save() failed, %v", err)
	}

	if got := db.ReadCount(); got != reads+1 {
		t.Errorf("ReadCount = %d, want %d (students only)", got, reads+1)
	}
	snap := svc.Snapshot()
	if got := len(snap.Updates); got != 0 {
		t.Errorf("Updates = %d, want 0 (narrow resync must not refetch)", got)
	}
	for _, sc := range snap.Schools {
		want := 1
		if sc.ID != ids[0] && sc.ID != ids[1] {
			t.Fatalf("unexpected school %q", sc.ID)
		}
		if sc.StudentCount != want {
			t.Errorf("school %q StudentCount = %d, want %d", sc.Name, sc.StudentCount, want)
		}
	}
}

func TestService_Save_message_narrowResync(t *testing.T) {
	svc, db := newTestService(t)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	db.Seed("updates", record.RawData{"title": "late"})

	raw := record.RawData{"senderId": "m1", "senderName": "Karim", "text": "hello", "timestamp": 1615700000000}
	if err := svc.Save(context.Background(), record.KindMessage, raw, ""); err != nil {
		t.Fatalf("Save() failed, %v", err)
	}

	snap := svc.Snapshot()
	if got := len(snap.Messages); got != 1 {
		t.Errorf("Messages = %d, want 1", got)
	}
	if got := len(snap.Updates); got != 0 {
		t.Errorf("Updates = %d, want 0 (narrow resync must not refetch)", got)
	}
}

func TestService_Save_remoteFailureKeepsSnapshot(t *testing.T) {
	svc, db := newTestService(t)
	db.Seed("schools", record.RawData{"name": "Mirpur Model"})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}
	before := svc.Snapshot()

	db.FailTable("schools", errors.New("boom"))
	err := svc.Save(context.Background(), record.KindSchool, record.RawData{"name": "Savar High"}, "")

	var wErr *core.RemoteWriteError
	if !errors.As(err, &wErr) {
		t.Fatalf("Save() error = %v, want *core.RemoteWriteError", err)
	}
	if wErr.Table != "schools" {
		t.Errorf("Table = %q, want %q", wErr.Table, "schools")
	}
	if got := len(svc.Snapshot().Schools); got != len(before.Schools) {
		t.Errorf("Schools = %d, want %d (untouched)", got, len(before.Schools))
	}
	if svc.Busy() {
		t.Error("Busy() = true after Save returned")
	}
}

func TestService_Remove_badNumericID(t *testing.T) {
	svc, db := newTestService(t)

	writes := db.WriteCount()
	err := svc.Remove(context.Background(), record.KindUpdate, "abc")

	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Remove() error = %v, want *core.ValidationError", err)
	}
	if got := db.WriteCount(); got != writes {
		t.Errorf("WriteCount = %d, want %d", got, writes)
	}
}

func TestService_Remove_schoolLeavesStudentsDangling(t *testing.T) {
	svc, db := newTestService(t)
	ids := db.Seed("schools", record.RawData{"name": "Mirpur Model"})
	db.Seed("students", record.RawData{"school_id": ids[0], "name": "Rahim", "roll": "1"})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}

	if err := svc.Remove(context.Background(), record.KindSchool, ids[0]); err != nil {
		t.Fatalf("Remove() failed, %v", err)
	}

	snap := svc.Snapshot()
	if got := len(snap.Schools); got != 0 {
		t.Errorf("Schools = %d, want 0", got)
	}
	// no cascade: the student row survives its school
	if got := len(snap.Students); got != 1 {
		t.Errorf("Students = %d, want 1 (dangling)", got)
	}
}

func TestService_ClearMessages(t *testing.T) {
	svc, db := newTestService(t)
	db.Seed("messages",
		record.RawData{"text": "hello", "timestamp": 1615700000000},
		record.RawData{"text": "world", "timestamp": 1615700001000},
	)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed, %v", err)
	}

	if err := svc.ClearMessages(context.Background()); err != nil {
		t.Fatalf("ClearMessages() failed, %v", err)
	}
	if got := len(svc.Snapshot().Messages); got != 0 {
		t.Errorf("Messages = %d, want 0", got)
	}
}

// blockingStore parks Upsert until released so a second mutation can be
// attempted mid-flight.
type blockingStore struct {
	rowstore.Client
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Upsert(ctx context.Context, table string, payload interface{}) error {
	close(b.entered)
	<-b.release
	return b.Client.Upsert(ctx, table, payload)
}

var _ rowstore.Client = (*blockingStore)(nil)

func TestService_Save_busy(t *testing.T) {
	svc, db := newTestService(t)
	blocked := &blockingStore{
		Client:  db,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc.store = blocked

	done := make(chan error, 1)
	go func() {
		done <- svc.Save(context.Background(), record.KindSchool, record.RawData{"name": "Mirpur Model"}, "")
	}()
	<-blocked.entered

	if !svc.Busy() {
		t.Error("Busy() = false while a write is in flight")
	}
	if err := svc.Save(context.Background(), record.KindSchool, record.RawData{"name": "Savar High"}, ""); err != ErrBusy {
		t.Errorf("Save() error = %v, want ErrBusy", err)
	}

	close(blocked.release)
	if err := <-done; err != nil {
		t.Fatalf("first Save() failed, %v", err)
	}
	if svc.Busy() {
		t.Error("Busy() = true after the write finished")
	}
}

func TestDecode(t *testing.T) {
	rows := []json.RawMessage{
		[]byte(`{"id":"s1","name":"Mirpur Model"}`),
		[]byte(`{"id":"s2","name":"Savar High"}`),
	}
	var schools []record.School
	if err := decode(rows, &schools); err != nil {
		t.Fatalf("decode() failed, %v", err)
	}
	if len(schools) != 2 || schools[1].Name != "Savar High" {
		t.Errorf("decode() = %+v", schools)
	}
}
