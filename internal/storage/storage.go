package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

// SnapshotKey names the slot holding the client's fallback copy.
const SnapshotKey = "numberStatusData"

var ErrNoSnapshot = errors.New("no snapshot saved")

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	saved_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS numbers (
	number INTEGER PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'no',
	name TEXT NOT NULL DEFAULT '',
	done_date TEXT DEFAULT NULL,
	dead_sub TEXT DEFAULT NULL,
	dead_done TEXT DEFAULT NULL,
	resettle_sub TEXT DEFAULT NULL,
	resettle_done TEXT DEFAULT NULL,
	pending_sub TEXT DEFAULT NULL,
	pending_done TEXT DEFAULT NULL
);`}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.ensureNumberColumns()
}

func (s *Store) ensureNumberColumns() error {
	required := map[string]string{
		"duplicates_sub":  "ALTER TABLE numbers ADD COLUMN duplicates_sub TEXT DEFAULT NULL;",
		"duplicates_done": "ALTER TABLE numbers ADD COLUMN duplicates_done TEXT DEFAULT NULL;",
		"updated_at":      "ALTER TABLE numbers ADD COLUMN updated_at TEXT DEFAULT NULL;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(numbers);`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveSnapshot(rs view.Records) error {
	payload := make(map[string]record.Record, record.MaxNumber)
	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		payload[strconv.Itoa(n)] = rs.Get(n)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`INSERT INTO snapshots (key, payload, saved_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at;`,
		SnapshotKey, string(data), now)
	return err
}

func (s *Store) LoadSnapshot() (view.Records, error) {
	var data string
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE key = ?;`, SnapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var payload map[string]record.Record
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	rs := view.NewRecords()
	for key, r := range payload {
		n, err := strconv.Atoi(key)
		if err != nil || !record.InRange(n) {
			continue
		}
		rs[n] = r
	}
	return rs, nil
}

const numberColumns = `number, status, name, done_date, dead_sub, dead_done, resettle_sub, resettle_done,
	pending_sub, pending_done, duplicates_sub, duplicates_done`

func (s *Store) FetchNumbers(ctx context.Context) ([]record.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+numberColumns+` FROM numbers ORDER BY number;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []record.Entry
	for rows.Next() {
		var n int
		var status, name string
		var doneDate sql.NullString
		subs := make([]sql.NullString, 8)
		if err := rows.Scan(&n, &status, &name, &doneDate,
			&subs[0], &subs[1], &subs[2], &subs[3], &subs[4], &subs[5], &subs[6], &subs[7]); err != nil {
			return nil, err
		}
		r, err := decodeRow(status, name, doneDate, subs)
		if err != nil {
			return nil, fmt.Errorf("number %d: %w", n, err)
		}
		entries = append(entries, record.Entry{Number: n, Record: r})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetNumber(ctx context.Context, n int) (record.Record, error) {
	var status, name string
	var doneDate sql.NullString
	subs := make([]sql.NullString, 8)
	var num int
	err := s.db.QueryRowContext(ctx, `SELECT `+numberColumns+` FROM numbers WHERE number = ?;`, n).Scan(&num, &status, &name, &doneDate,
		&subs[0], &subs[1], &subs[2], &subs[3], &subs[4], &subs[5], &subs[6], &subs[7])
	if errors.Is(err, sql.ErrNoRows) {
		return record.Default, nil
	}
	if err != nil {
		return record.Record{}, err
	}
	return decodeRow(status, name, doneDate, subs)
}

func (s *Store) UpsertNumber(ctx context.Context, n int, r record.Record) error {
	if err := record.CheckNumber(n); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `INSERT INTO numbers (`+numberColumns+`, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(number) DO UPDATE SET
	status = excluded.status,
	name = excluded.name,
	done_date = excluded.done_date,
	dead_sub = excluded.dead_sub,
	dead_done = excluded.dead_done,
	resettle_sub = excluded.resettle_sub,
	resettle_done = excluded.resettle_done,
	pending_sub = excluded.pending_sub,
	pending_done = excluded.pending_done,
	duplicates_sub = excluded.duplicates_sub,
	duplicates_done = excluded.duplicates_done,
	updated_at = excluded.updated_at;`,
		n, string(r.Status), r.Name, nullTime(r.DoneDate),
		nullSub(r.Dead.Status), nullTime(r.Dead.DoneDate),
		nullSub(r.Resettle.Status), nullTime(r.Resettle.DoneDate),
		nullSub(r.Pending.Status), nullTime(r.Pending.DoneDate),
		nullSub(r.Duplicates.Status), nullTime(r.Duplicates.DoneDate),
		now)
	return err
}

// BulkSetStatus overwrites only the status column, creating default rows
// for numbers not stored yet.
func (s *Store) BulkSetStatus(ctx context.Context, numbers []int, status record.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO numbers (number, status, updated_at) VALUES (?, ?, ?)
ON CONFLICT(number) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at;`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, n := range numbers {
		if err := record.CheckNumber(n); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, n, string(status), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func decodeRow(status, name string, doneDate sql.NullString, subs []sql.NullString) (record.Record, error) {
	st, err := record.ParseStatus(status)
	if err != nil {
		return record.Record{}, err
	}
	r := record.Record{Status: st, Name: name}
	if r.DoneDate, err = parseNullTime(doneDate); err != nil {
		return record.Record{}, err
	}
	targets := []*record.Sub{&r.Dead, &r.Resettle, &r.Pending, &r.Duplicates}
	for i, dst := range targets {
		if subs[2*i].Valid {
			if dst.Status, err = record.ParseSubStatus(subs[2*i].String); err != nil {
				return record.Record{}, err
			}
		}
		if dst.DoneDate, err = parseNullTime(subs[2*i+1]); err != nil {
			return record.Record{}, err
		}
	}
	return r, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	return record.ParseTime(&v.String)
}

func nullTime(t *time.Time) sql.NullString {
	if v := record.FormatTime(t); v != nil {
		return sql.NullString{String: *v, Valid: true}
	}
	return sql.NullString{}
}

func nullSub(s record.SubStatus) sql.NullString {
	if s == record.SubUnset {
		return sql.NullString{}
	}
	return sql.NullString{String: string(s), Valid: true}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
