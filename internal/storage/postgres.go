package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for parse records.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Pool returns the underlying connection pool for direct queries.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pnr_parses (
		id              UUID PRIMARY KEY,
		case_id         TEXT NOT NULL,
		source          TEXT NOT NULL DEFAULT '',
		agency_id       TEXT NOT NULL DEFAULT '',
		ticket_number   TEXT NOT NULL DEFAULT '',
		record_locator  TEXT NOT NULL DEFAULT '',
		dialect         TEXT NOT NULL,
		eligible        BOOLEAN NOT NULL DEFAULT FALSE,
		max_delta       INTEGER NOT NULL DEFAULT 0,
		submitted_at    TIMESTAMPTZ NOT NULL,
		parsed_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		raw_text        TEXT NOT NULL,
		result          JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pnr_parses_record_locator ON pnr_parses(record_locator);
	CREATE INDEX IF NOT EXISTS idx_pnr_parses_ticket_number ON pnr_parses(ticket_number);
	CREATE INDEX IF NOT EXISTS idx_pnr_parses_eligible ON pnr_parses(eligible) WHERE eligible;
	CREATE INDEX IF NOT EXISTS idx_pnr_parses_parsed_at ON pnr_parses(parsed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_pnr_parses_reason_codes ON pnr_parses USING GIN ((result->'reason_codes'));
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Insert stores a parse record. Inserting an existing id replaces it.
func (d *PostgresDB) Insert(ctx context.Context, rec *Record) error {
	resultJSON, err := rec.resultJSON()
	if err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO pnr_parses (id, case_id, source, agency_id, ticket_number, record_locator,
			dialect, eligible, max_delta, submitted_at, parsed_at, raw_text, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			case_id = EXCLUDED.case_id,
			dialect = EXCLUDED.dialect,
			eligible = EXCLUDED.eligible,
			max_delta = EXCLUDED.max_delta,
			parsed_at = EXCLUDED.parsed_at,
			raw_text = EXCLUDED.raw_text,
			result = EXCLUDED.result
	`, rec.ID, rec.CaseID, rec.Source, rec.AgencyID, rec.TicketNumber, rec.RecordLocator,
		rec.Dialect(), rec.Eligible(), rec.MaxDelta(), rec.SubmittedAt, rec.ParsedAt,
		rec.RawText, resultJSON)
	if err != nil {
		return fmt.Errorf("insert parse: %w", err)
	}
	return nil
}

const postgresColumns = `id::text, case_id, source, agency_id, ticket_number, record_locator,
	submitted_at, parsed_at, raw_text, result::text`

// Get retrieves a single record by id.
func (d *PostgresDB) Get(ctx context.Context, id string) (*Record, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+postgresColumns+` FROM pnr_parses WHERE id::text = $1`, id)
	rec, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Query retrieves records matching the given parameters, newest first.
func (d *PostgresDB) Query(ctx context.Context, p QueryParams) ([]*Record, error) {
	var conditions []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if p.RecordLocator != "" {
		add("record_locator = $%d", strings.ToUpper(p.RecordLocator))
	}
	if p.TicketNumber != "" {
		add("ticket_number = $%d", p.TicketNumber)
	}
	if p.Dialect != "" {
		add("dialect = $%d", p.Dialect)
	}
	if p.Eligible != nil {
		add("eligible = $%d", *p.Eligible)
	}
	if p.FullText != "" {
		add("raw_text ILIKE '%%' || $%d || '%%'", p.FullText)
	}

	query := `SELECT ` + postgresColumns + ` FROM pnr_parses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY parsed_at DESC LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByDialect returns record counts grouped by dialect.
func (d *PostgresDB) CountByDialect(ctx context.Context) (map[string]int64, error) {
	rows, err := d.pool.Query(ctx, "SELECT dialect, COUNT(*) FROM pnr_parses GROUP BY dialect")
	if err != nil {
		return nil, fmt.Errorf("count parses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var dialect string
		var count int64
		if err := rows.Scan(&dialect, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[dialect] = count
	}
	return counts, rows.Err()
}

func scanPostgres(row pgx.Row) (*Record, error) {
	var rec Record
	var resultJSON string

	err := row.Scan(&rec.ID, &rec.CaseID, &rec.Source, &rec.AgencyID, &rec.TicketNumber, &rec.RecordLocator,
		&rec.SubmittedAt, &rec.ParsedAt, &rec.RawText, &resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	if rec.Result, err = decodeResult(resultJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}
