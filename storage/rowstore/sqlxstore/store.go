// Package sqlxstore implements the row store port directly against Postgres,
// for self-hosted deployments. Table and column names are whitelisted before
// ever reaching a query string.
package sqlxstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/storage/rowstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var tableColumns = map[string][]string{
	"profiles":      {"id", "name", "designation", "mobile", "blood_group", "address", "email", "profile_pic", "password"},
	"schools":       {"id", "name", "teacherName", "teacherPhone", "teacherImage", "established"},
	"students":      {"id", "school_id", "name", "fatherName", "motherName", "mobile", "className", "roll", "image"},
	"updates":       {"id", "title", "description", "image", "media_type", "aspect_ratio", "date"},
	"gallery":       {"id", "title", "description", "url"},
	"transactions":  {"id", "userId", "amount", "month", "date"},
	"site_settings": {"id", "phone1", "phone2", "email", "address", "facebook", "website"},
	"messages":      {"id", "senderId", "senderName", "text", "timestamp"},
}

type Store struct {
	db *sqlx.DB
}

var _ rowstore.Client = (*Store)(nil)

func Open(conf *core.Config) (*Store, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(conf.Database.User, conf.Database.Password),
		Host:     conf.DatabaseAddress(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}
	db, err := sqlx.Open(conf.Database.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate() error {
	if err := goose.Up(s.db.DB, migrationsFS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// EnsureSettings creates the sentinel contact row when it is absent, keeping
// the site_settings singleton invariant after a fresh migration.
func (s *Store) EnsureSettings(ctx context.Context, sentinelID string) error {
	var id null.String
	err := s.db.GetContext(ctx, &id, `SELECT id FROM site_settings WHERE id = $1`, sentinelID)
	if err == nil && id.Valid {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "checking site_settings")
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO site_settings (id) VALUES ($1)`, sentinelID)
	return errors.Wrap(err, "seeding site_settings")
}

func (s *Store) Select(ctx context.Context, table string, q rowstore.Query) ([]json.RawMessage, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t`, pq.QuoteIdentifier(table))
	var args []interface{}
	if q.Filter != nil {
		if err := checkColumn(table, q.Filter.Column); err != nil {
			return nil, err
		}
		op := "="
		if q.Filter.Not {
			op = "<>"
		}
		query += fmt.Sprintf(` WHERE %s %s $1`, pq.QuoteIdentifier(q.Filter.Column), op)
		args = append(args, q.Filter.Value)
	}
	if q.Order != nil {
		if err := checkColumn(table, q.Order.Field); err != nil {
			return nil, err
		}
		direction := "DESC"
		if q.Order.Ascending {
			direction = "ASC"
		}
		query += fmt.Sprintf(` ORDER BY %s %s`, pq.QuoteIdentifier(q.Order.Field), direction)
	}

	dbRows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting from %s", table)
	}
	defer func() { _ = dbRows.Close() }()

	var rows []json.RawMessage
	for dbRows.Next() {
		var b []byte
		if err = dbRows.Scan(&b); err != nil {
			return nil, errors.Wrapf(err, "scanning %s row", table)
		}
		rows = append(rows, b)
	}
	if err = dbRows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s rows", table)
	}
	return rows, nil
}

func (s *Store) Upsert(ctx context.Context, table string, payload interface{}) error {
	if err := checkTable(table); err != nil {
		return err
	}
	row, err := toMap(payload)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		if err = checkColumn(table, col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	places := make([]string, len(cols))
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
		places[i] = fmt.Sprintf("$%d", i+1)
		args[i] = bindable(row[col])
		if col != "id" {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
		}
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s`,
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(places, ", "),
		strings.Join(sets, ", "),
	)
	if len(sets) == 0 {
		query = fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING`,
			pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(places, ", "),
		)
	}
	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "upserting into %s", table)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, f rowstore.Filter) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if err := checkColumn(table, f.Column); err != nil {
		return err
	}
	op := "="
	if f.Not {
		op = "<>"
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s %s $1`,
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(f.Column), op)
	if _, err := s.db.ExecContext(ctx, query, f.Value); err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return nil
}

func checkTable(table string) error {
	if _, ok := tableColumns[table]; !ok {
		return errors.Errorf("unknown table %q", table)
	}
	return nil
}

func checkColumn(table, col string) error {
	for _, c := range tableColumns[table] {
		if c == col {
			return nil
		}
	}
	return errors.Errorf("unknown column %q on table %q", col, table)
}

func toMap(payload interface{}) (map[string]interface{}, error) {
	if m, ok := payload.(map[string]interface{}); ok {
		return m, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	var m map[string]interface{}
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "encoding row")
	}
	return m, nil
}

// bindable flattens composite values; driver-level types pass through.
func bindable(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(v)
		return b
	}
	return v
}
