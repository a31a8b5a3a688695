package capture

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"avaneesh/qcoder-go/pkg/types"
)

// Store indexes captured records in SQLite, one row per distinct frame
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates a SQLite store at path
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		digest BLOB NOT NULL UNIQUE,
		time INTEGER NOT NULL,
		direction INTEGER NOT NULL,
		stack INTEGER NOT NULL,
		msg_id INTEGER NOT NULL,
		status INTEGER NOT NULL,
		frame BLOB NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_records_time ON records(time);
	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(stack, msg_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Put stores r unless a record with the same digest exists. It reports
// whether a row was inserted.
func (s *Store) Put(r *Record) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("%w: nil record", types.ErrInvalidArgument)
	}
	if len(r.Digest) == 0 {
		r.Digest = Digest(r.Frame)
	}
	if err := r.Verify(); err != nil {
		return false, err
	}

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO records (digest, time, direction, stack, msg_id, status, frame)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Digest, int64(r.Time), r.Direction, int(r.Stack), r.MsgID, int(r.Status), r.Frame)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns up to limit records in insertion order. limit <= 0
// returns all of them.
func (s *Store) List(limit int) ([]*Record, error) {
	query := `SELECT digest, time, direction, stack, msg_id, status, frame FROM records ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			r                               Record
			t                               int64
			direction, stack, msgID, status int
		)
		if err := rows.Scan(&r.Digest, &t, &direction, &stack, &msgID, &status, &r.Frame); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Time = types.ItsTime(t)
		r.Direction = uint8(direction)
		r.Stack = types.Stack(stack)
		r.MsgID = msgID
		r.Status = types.Status(status)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
