package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for parse analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS pnr_parses (
		id              String,
		case_id         String,
		source          LowCardinality(String),
		agency_id       LowCardinality(String),
		ticket_number   String,
		record_locator  String,
		dialect         LowCardinality(String),
		eligible        UInt8,
		max_delta       Int32,
		submitted_at    DateTime64(3),
		parsed_at       DateTime64(3),
		raw_text        String,
		result_json     String
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(parsed_at)
	ORDER BY (dialect, parsed_at, id)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Bloom filter index for full-text search (ignore error if already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE pnr_parses ADD INDEX IF NOT EXISTS idx_raw_text_bloom raw_text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

// Insert stores a single parse record.
func (d *ClickHouseDB) Insert(ctx context.Context, rec *Record) error {
	return d.InsertBatch(ctx, []*Record{rec})
}

// InsertBatch stores multiple records in one round trip.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO pnr_parses (id, case_id, source, agency_id, ticket_number, record_locator,
			dialect, eligible, max_delta, submitted_at, parsed_at, raw_text, result_json)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		resultJSON, err := rec.resultJSON()
		if err != nil {
			return err
		}

		err = batch.Append(rec.ID, rec.CaseID, rec.Source, rec.AgencyID, rec.TicketNumber, rec.RecordLocator,
			rec.Dialect(), uint8(boolToInt(rec.Eligible())), int32(rec.MaxDelta()),
			rec.SubmittedAt, rec.ParsedAt, rec.RawText, resultJSON)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

const clickhouseColumns = `id, case_id, source, agency_id, ticket_number, record_locator,
	submitted_at, parsed_at, raw_text, result_json`

// Get retrieves a single record by id.
func (d *ClickHouseDB) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := d.conn.Query(ctx, `SELECT `+clickhouseColumns+` FROM pnr_parses WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("get parse: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanClickHouse(rows)
}

// Query retrieves records matching the given parameters, newest first.
func (d *ClickHouseDB) Query(ctx context.Context, p QueryParams) ([]*Record, error) {
	var conditions []string
	var args []interface{}

	if p.RecordLocator != "" {
		conditions = append(conditions, "record_locator = ?")
		args = append(args, strings.ToUpper(p.RecordLocator))
	}
	if p.TicketNumber != "" {
		conditions = append(conditions, "ticket_number = ?")
		args = append(args, p.TicketNumber)
	}
	if p.Dialect != "" {
		conditions = append(conditions, "dialect = ?")
		args = append(args, p.Dialect)
	}
	if p.Eligible != nil {
		conditions = append(conditions, "eligible = ?")
		args = append(args, uint8(boolToInt(*p.Eligible)))
	}
	if p.FullText != "" {
		conditions = append(conditions, "positionCaseInsensitive(raw_text, ?) > 0")
		args = append(args, p.FullText)
	}

	query := `SELECT ` + clickhouseColumns + ` FROM pnr_parses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY parsed_at DESC LIMIT %d OFFSET %d", p.limit(), p.Offset)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanClickHouse(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// CountByDialect returns record counts grouped by dialect.
func (d *ClickHouseDB) CountByDialect(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	rows, err := d.conn.Query(ctx, "SELECT dialect, count() FROM pnr_parses GROUP BY dialect")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dialect string
		var count uint64
		if err := rows.Scan(&dialect, &count); err != nil {
			return nil, err
		}
		counts[dialect] = int64(count)
	}
	return counts, rows.Err()
}

func scanClickHouse(rows driver.Rows) (*Record, error) {
	var rec Record
	var resultJSON string

	err := rows.Scan(&rec.ID, &rec.CaseID, &rec.Source, &rec.AgencyID, &rec.TicketNumber, &rec.RecordLocator,
		&rec.SubmittedAt, &rec.ParsedAt, &rec.RawText, &resultJSON)
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	if rec.Result, err = decodeResult(resultJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}
