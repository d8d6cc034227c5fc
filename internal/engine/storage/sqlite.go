package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const table = "places"

// Store keeps imported export rows in a local SQLite file. Columns are
// created on demand from workbook headers, all as TEXT.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	columns map[string]bool
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if s.columns, err = s.loadColumns(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		sheet TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_places_job ON places(job_id);
	CREATE INDEX IF NOT EXISTS idx_places_sheet ON places(sheet);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) loadColumns() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('places')`)
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

var reserved = map[string]bool{"id": true, "job_id": true, "sheet": true, "created_at": true}

// ensureColumns adds missing header columns inside tx and returns their
// names. Callers hold s.mu.
func (s *Store) ensureColumns(tx *sql.Tx, header []string) ([]string, error) {
	var added []string
	for _, h := range header {
		if h == "" || reserved[h] || s.columns[h] || contains(added, h) {
			continue
		}
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", table, quoteIdent(h))); err != nil {
			return nil, fmt.Errorf("adding column %q: %w", h, err)
		}
		added = append(added, h)
	}
	return added, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// InsertSheet stores the rows of one sheet and returns how many were
// inserted. Empty header cells are skipped.
func (s *Store) InsertSheet(jobID, sheet string, header []string, rows [][]string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	added, err := s.ensureColumns(tx, header)
	if err != nil {
		return 0, err
	}

	cols := []string{"job_id", "sheet"}
	var idx []int
	seen := map[string]bool{}
	for i, h := range header {
		if h == "" || reserved[h] || seen[h] {
			continue
		}
		seen[h] = true
		cols = append(cols, quoteIdent(h))
		idx = append(idx, i)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))

	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		args := make([]any, 0, len(cols))
		args = append(args, jobID, sheet)
		for _, i := range idx {
			if i < len(r) {
				args = append(args, r[i])
			} else {
				args = append(args, nil)
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("inserting row: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	for _, h := range added {
		s.columns[h] = true
	}
	return inserted, nil
}

// DeleteJob removes previously imported rows of jobID.
func (s *Store) DeleteJob(jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM places WHERE job_id = ?", jobID)
	if err != nil {
		return 0, fmt.Errorf("deleting job rows: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM places").Scan(&count)
	return count, err
}

// CountBySheet returns the number of rows per sheet.
func (s *Store) CountBySheet() (map[string]int, error) {
	rows, err := s.db.Query("SELECT sheet, COUNT(*) FROM places GROUP BY sheet")
	if err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var sheet string
		var n int
		if err := rows.Scan(&sheet, &n); err != nil {
			return nil, err
		}
		out[sheet] = n
	}
	return out, rows.Err()
}

// Column returns the values of one column for a sheet, in insert order.
func (s *Store) Column(sheet, column string) ([]string, error) {
	s.mu.Lock()
	known := s.columns[column]
	s.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("unknown column %q", column)
	}

	q := fmt.Sprintf("SELECT COALESCE(%s, '') FROM places WHERE sheet = ? ORDER BY id", quoteIdent(column))
	rows, err := s.db.Query(q, sheet)
	if err != nil {
		return nil, fmt.Errorf("querying column: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
