package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps a SQLite database connection used as a local parse log.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// CreateSchema creates the parse table, its indices and the FTS5 index on
// the raw text.
func (d *SQLiteDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS parses (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL,
		source TEXT,
		agency_id TEXT,
		ticket_number TEXT,
		record_locator TEXT,
		dialect TEXT NOT NULL,
		eligible INTEGER NOT NULL DEFAULT 0,
		max_delta INTEGER NOT NULL DEFAULT 0,
		submitted_at TEXT NOT NULL,
		parsed_at TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parses_record_locator ON parses(record_locator);
	CREATE INDEX IF NOT EXISTS idx_parses_ticket_number ON parses(ticket_number);
	CREATE INDEX IF NOT EXISTS idx_parses_dialect ON parses(dialect);
	CREATE INDEX IF NOT EXISTS idx_parses_eligible ON parses(eligible);

	-- FTS5 virtual table for full-text search on raw PNR text.
	CREATE VIRTUAL TABLE IF NOT EXISTS parses_fts USING fts5(
		raw_text,
		content='parses',
		content_rowid='seq'
	);

	-- Triggers to keep FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS parses_ai AFTER INSERT ON parses BEGIN
		INSERT INTO parses_fts(rowid, raw_text) VALUES (new.seq, new.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS parses_ad AFTER DELETE ON parses BEGIN
		INSERT INTO parses_fts(parses_fts, rowid, raw_text) VALUES('delete', old.seq, old.raw_text);
	END;
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Insert stores a parse record.
func (d *SQLiteDB) Insert(ctx context.Context, rec *Record) error {
	resultJSON, err := rec.resultJSON()
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO parses (id, case_id, source, agency_id, ticket_number, record_locator,
			dialect, eligible, max_delta, submitted_at, parsed_at, raw_text, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.CaseID, rec.Source, rec.AgencyID, rec.TicketNumber, rec.RecordLocator,
		rec.Dialect(), boolToInt(rec.Eligible()), rec.MaxDelta(),
		rec.SubmittedAt.UTC().Format(time.RFC3339Nano), rec.ParsedAt.UTC().Format(time.RFC3339Nano),
		rec.RawText, resultJSON)
	if err != nil {
		return fmt.Errorf("insert parse: %w", err)
	}
	return nil
}

const sqliteColumns = `p.id, p.case_id, p.source, p.agency_id, p.ticket_number, p.record_locator,
	p.submitted_at, p.parsed_at, p.raw_text, p.result_json`

// Get retrieves a single record by id.
func (d *SQLiteDB) Get(ctx context.Context, id string) (*Record, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM parses p WHERE p.id = ?`, id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Query retrieves records matching the given parameters, newest first.
func (d *SQLiteDB) Query(ctx context.Context, p QueryParams) ([]*Record, error) {
	var conditions []string
	var args []interface{}

	if p.RecordLocator != "" {
		conditions = append(conditions, "p.record_locator = ?")
		args = append(args, strings.ToUpper(p.RecordLocator))
	}
	if p.TicketNumber != "" {
		conditions = append(conditions, "p.ticket_number = ?")
		args = append(args, p.TicketNumber)
	}
	if p.Dialect != "" {
		conditions = append(conditions, "p.dialect = ?")
		args = append(args, p.Dialect)
	}
	if p.Eligible != nil {
		conditions = append(conditions, "p.eligible = ?")
		args = append(args, boolToInt(*p.Eligible))
	}

	// FTS5 search requires a JOIN with the FTS table.
	query := `SELECT ` + sqliteColumns + ` FROM parses p`
	if p.FullText != "" {
		query += ` JOIN parses_fts fts ON p.seq = fts.rowid`
		conditions = append([]string{"parses_fts MATCH ?"}, conditions...)
		args = append([]interface{}{p.FullText}, args...)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY p.seq DESC LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByDialect returns record counts grouped by dialect.
func (d *SQLiteDB) CountByDialect(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	rows, err := d.db.QueryContext(ctx, "SELECT dialect, COUNT(*) FROM parses GROUP BY dialect")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var dialect string
		var count int64
		if err := rows.Scan(&dialect, &count); err != nil {
			return nil, err
		}
		counts[dialect] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLite(row rowScanner) (*Record, error) {
	var rec Record
	var source, agency, ticket, locator sql.NullString
	var submitted, parsed, resultJSON string

	err := row.Scan(&rec.ID, &rec.CaseID, &source, &agency, &ticket, &locator,
		&submitted, &parsed, &rec.RawText, &resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	rec.Source = source.String
	rec.AgencyID = agency.String
	rec.TicketNumber = ticket.String
	rec.RecordLocator = locator.String
	rec.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submitted)
	rec.ParsedAt, _ = time.Parse(time.RFC3339Nano, parsed)

	if rec.Result, err = decodeResult(resultJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
