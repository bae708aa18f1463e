package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/umoja/core/member"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/storage/rowstore"
)

// Snapshot is the complete in-memory copy of all remote collections as of
// the last successful fetch. Collections are replaced wholesale on every
// run; a reader always sees either the prior snapshot or the new one.
type Snapshot struct {
	Members      []member.Member      `json:"members"`
	Schools      []record.School      `json:"schools"`
	Students     []record.Student     `json:"students"`
	Updates      []record.Update      `json:"updates"`
	Gallery      []record.GalleryItem `json:"gallery"`
	Transactions []record.Transaction `json:"transactions"`
	Messages     []record.Message     `json:"messages"`
	Settings     record.SiteSettings  `json:"settings"`
	FetchedAt    time.Time            `json:"fetched_at"`
}

// SyncError reports the collections whose reads failed during a fetch run.
// The partial snapshot is kept; the caller may retry with Refresh.
type SyncError struct {
	Failed map[string]error
}

func (e *SyncError) Error() string {
	return "sync incomplete; failed collections: " + strings.Join(e.Collections(), ", ")
}

func (e *SyncError) Collections() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type fetcher struct {
	name  string
	fetch func(ctx context.Context, store rowstore.Client, next *Snapshot) error
}

// Each fetcher fills exactly one Snapshot field, so they can run in parallel
// against the same staging value.
var fetchers = []fetcher{
	{"members", fetchMembers},
	{"schools", fetchSchools},
	{"students", fetchStudents},
	{"updates", fetchUpdates},
	{"gallery", fetchGallery},
	{"transactions", fetchTransactions},
	{"messages", fetchMessages},
	{"settings", fetchSettings},
}

// fetchAll issues all reads concurrently. A failed read keeps the prior
// snapshot's data for that collection; the school/student join is recomputed
// from scratch either way.
func (s *Service) fetchAll(ctx context.Context) (Snapshot, error) {
	next := s.Snapshot()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed map[string]error
	)
	for _, f := range fetchers {
		wg.Add(1)
		go func(f fetcher) {
			defer wg.Done()
			if err := f.fetch(ctx, s.store, &next); err != nil {
				mu.Lock()
				if failed == nil {
					failed = make(map[string]error)
				}
				failed[f.name] = err
				mu.Unlock()
			}
		}(f)
	}
	wg.Wait()

	next.Schools = joinSchools(next.Schools, next.Students)
	next.FetchedAt = time.Now().UTC()

	if failed != nil {
		return next, &SyncError{Failed: failed}
	}
	return next, nil
}

func fetchMembers(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindMember.Table(), rowstore.Query{})
	if err != nil {
		return err
	}
	var members []member.Member
	if err = decode(rows, &members); err != nil {
		return err
	}
	next.Members = members
	return nil
}

func fetchSchools(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindSchool.Table(), rowstore.Query{})
	if err != nil {
		return err
	}
	var schools []record.School
	if err = decode(rows, &schools); err != nil {
		return err
	}
	next.Schools = schools
	return nil
}

func fetchStudents(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindStudent.Table(), rowstore.Query{})
	if err != nil {
		return err
	}
	var students []record.Student
	if err = decode(rows, &students); err != nil {
		return err
	}
	next.Students = students
	return nil
}

func fetchUpdates(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	// newest first
	rows, err := store.Select(ctx, record.KindUpdate.Table(), rowstore.Query{
		Order: &rowstore.Ordering{Field: "id", Ascending: false},
	})
	if err != nil {
		return err
	}
	var updates []record.Update
	if err = decode(rows, &updates); err != nil {
		return err
	}
	next.Updates = updates
	return nil
}

func fetchGallery(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindGallery.Table(), rowstore.Query{})
	if err != nil {
		return err
	}
	var items []record.GalleryItem
	if err = decode(rows, &items); err != nil {
		return err
	}
	next.Gallery = items
	return nil
}

func fetchTransactions(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindTransaction.Table(), rowstore.Query{})
	if err != nil {
		return err
	}
	var trans []record.Transaction
	if err = decode(rows, &trans); err != nil {
		return err
	}
	next.Transactions = trans
	return nil
}

func fetchMessages(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	// chat history is chronological
	rows, err := store.Select(ctx, record.KindMessage.Table(), rowstore.Query{
		Order: &rowstore.Ordering{Field: "timestamp", Ascending: true},
	})
	if err != nil {
		return err
	}
	var msgs []record.Message
	if err = decode(rows, &msgs); err != nil {
		return err
	}
	next.Messages = msgs
	return nil
}

func fetchSettings(ctx context.Context, store rowstore.Client, next *Snapshot) error {
	rows, err := store.Select(ctx, record.KindSettings.Table(), rowstore.Query{
		Filter: &rowstore.Filter{Column: "id", Value: record.SettingsSentinelID},
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil // keep whatever we had; the row may not be seeded yet
	}
	var settings record.SiteSettings
	if err = json.Unmarshal(rows[0], &settings); err != nil {
		return err
	}
	next.Settings = settings
	return nil
}

// joinSchools attaches each school's students and records the count. It works
// on a copy so previously published snapshots are never mutated.
func joinSchools(schools []record.School, students []record.Student) []record.School {
	bySchool := make(map[string][]record.Student)
	for _, st := range students {
		bySchool[st.SchoolID] = append(bySchool[st.SchoolID], st)
	}

	joined := make([]record.School, len(schools))
	copy(joined, schools)
	for i := range joined {
		attached := bySchool[joined[i].ID]
		joined[i].Students = attached
		joined[i].StudentCount = len(attached)
	}
	return joined
}

// decode unmarshals raw rows into a slice of entities in one pass.
func decode(rows []json.RawMessage, dst interface{}) error {
	parts := make([][]byte, len(rows))
	for i, r := range rows {
		parts[i] = r
	}
	b := append(append([]byte{'['}, bytes.Join(parts, []byte{','})...), ']')
	return json.Unmarshal(b, dst)
}
