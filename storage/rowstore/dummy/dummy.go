// Package dummydb is an in-memory row store for tests and DEV mode. It
// mimics the remote's identifier policy: uuid strings for profiles, schools,
// students and site_settings; numeric serials for the rest.
package dummydb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/umoja/storage/rowstore"
)

var stringIDTables = map[string]bool{
	"profiles":      true,
	"schools":       true,
	"students":      true,
	"site_settings": true,
}

type row map[string]interface{}

type DB struct {
	mu      sync.RWMutex
	tables  map[string][]row
	serials map[string]int64
	failing map[string]error
	writes  int
	reads   int
}

var _ rowstore.Client = (*DB)(nil) // interface compliance check

func New() *DB {
	return &DB{
		tables:  make(map[string][]row),
		serials: make(map[string]int64),
		failing: make(map[string]error),
	}
}

// FailTable makes every operation on the table return err; pass nil to heal.
func (db *DB) FailTable(table string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failing, table)
		return
	}
	db.failing[table] = err
}

// WriteCount reports upserts+deletes issued; tests use it to assert that a
// rejected payload never reached the store.
func (db *DB) WriteCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.writes
}

func (db *DB) ReadCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.reads
}

// Seed inserts rows directly, assigning ids where absent. Returns the ids as
// strings for convenience in tests.
func (db *DB) Seed(table string, rows ...map[string]interface{}) []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		norm, err := normalize(r)
		if err != nil {
			panic(err) // test helper; bad seed data is a programming error
		}
		if _, ok := norm["id"]; !ok {
			norm["id"] = db.nextID(table)
		}
		db.tables[table] = append(db.tables[table], norm)
		ids = append(ids, fmt.Sprint(norm["id"]))
	}
	return ids
}

func (db *DB) Select(ctx context.Context, table string, q rowstore.Query) ([]json.RawMessage, error) {
	db.mu.Lock()
	db.reads++
	db.mu.Unlock()

	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.failing[table]; err != nil {
		return nil, err
	}

	var out []row
	for _, r := range db.tables[table] {
		if q.Filter == nil || matches(r, *q.Filter) {
			out = append(out, r)
		}
	}
	if q.Order != nil {
		ord := *q.Order
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][ord.Field], out[j][ord.Field])
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		})
	}

	rows := make([]json.RawMessage, 0, len(out))
	for _, r := range out {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, b)
	}
	return rows, nil
}

func (db *DB) Upsert(ctx context.Context, table string, payload interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.writes++

	if err := db.failing[table]; err != nil {
		return err
	}

	norm, err := normalize(payload)
	if err != nil {
		return errors.Wrap(err, "encoding row")
	}

	if id, ok := norm["id"]; ok && id != nil {
		for i, r := range db.tables[table] {
			if fmt.Sprint(r["id"]) == fmt.Sprint(id) {
				db.tables[table][i] = norm
				return nil
			}
		}
		// client-supplied id on a new row (site_settings sentinel)
		db.tables[table] = append(db.tables[table], norm)
		return nil
	}

	norm["id"] = db.nextID(table)
	db.tables[table] = append(db.tables[table], norm)
	return nil
}

func (db *DB) Delete(ctx context.Context, table string, f rowstore.Filter) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.writes++

	if err := db.failing[table]; err != nil {
		return err
	}

	kept := db.tables[table][:0]
	for _, r := range db.tables[table] {
		if !matches(r, f) {
			kept = append(kept, r)
		}
	}
	db.tables[table] = kept
	return nil
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) interface{} {
	if stringIDTables[table] {
		return uuid.New().String()
	}
	db.serials[table]++
	return float64(db.serials[table]) // match json decoding of numbers
}

// normalize round-trips the payload through JSON so stored values carry the
// same types a remote response would (numbers become float64).
func normalize(payload interface{}) (row, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var r row
	if err = json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func matches(r row, f rowstore.Filter) bool {
	eq := fmt.Sprint(r[f.Column]) == fmt.Sprint(normalizeScalar(f.Value))
	if f.Not {
		return !eq
	}
	return eq
}

// normalizeScalar maps filter values onto the stored representation so that
// int64(3) matches a row holding float64(3).
func normalizeScalar(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return v
}

func compare(a, b interface{}) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
