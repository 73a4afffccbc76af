// Package storage persists parse records to SQLite, PostgreSQL or ClickHouse.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pnr_parser/internal/pnr"
)

// ErrNotFound is returned by Get when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Backend names accepted by Open.
const (
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
	BackendNone       = "none"
)

// Record is one stored parse: the submitted text, its intake metadata and
// the engine result.
type Record struct {
	ID            string      `json:"id"`
	CaseID        string      `json:"service_case_id"`
	Source        string      `json:"source,omitempty"`
	AgencyID      string      `json:"agency_id,omitempty"`
	TicketNumber  string      `json:"ticket_number,omitempty"`
	RecordLocator string      `json:"record_locator,omitempty"`
	SubmittedAt   time.Time   `json:"submitted_at"`
	ParsedAt      time.Time   `json:"parsed_at"`
	RawText       string      `json:"raw_text"`
	Result        *pnr.Result `json:"result"`
}

// NewRecord builds a record from a submission and its parse result.
// Ticket number and record locator fall back to the values found in the
// text when the intake form left them empty.
func NewRecord(sub *pnr.Submission, result *pnr.Result, parsedAt time.Time) *Record {
	rec := &Record{
		ID:            strings.TrimSpace(sub.ID),
		CaseID:        strings.TrimSpace(sub.CaseID),
		Source:        sub.Source,
		AgencyID:      sub.AgencyID,
		TicketNumber:  sub.TicketNumber,
		RecordLocator: strings.ToUpper(sub.RecordLocator),
		SubmittedAt:   sub.SubmittedAt.Time,
		ParsedAt:      parsedAt.UTC(),
		RawText:       sub.Text,
		Result:        result,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = rec.ParsedAt
	}
	if result != nil {
		if rec.TicketNumber == "" {
			rec.TicketNumber = result.TicketNumber
		}
		if rec.RecordLocator == "" {
			rec.RecordLocator = result.RecordLocator
		}
	}
	if rec.CaseID == "" {
		rec.CaseID = pnr.CaseIDFor(rec.TicketNumber, rec.AgencyID, rec.SubmittedAt)
	}
	return rec
}

// Dialect returns the detected dialect, or "unknown" without a result.
func (r *Record) Dialect() string {
	if r.Result == nil {
		return string(pnr.DialectUnknown)
	}
	return string(r.Result.GDSDialect)
}

// Eligible reports the 3-hour eligibility of the stored result.
func (r *Record) Eligible() bool {
	return r.Result != nil && r.Result.Eligibility3Hour
}

// MaxDelta returns the reported max delta, or 0 when there is none.
func (r *Record) MaxDelta() int {
	if r.Result == nil || r.Result.ScheduleChange == nil || r.Result.ScheduleChange.MaxDeltaMinutes == nil {
		return 0
	}
	return *r.Result.ScheduleChange.MaxDeltaMinutes
}

func (r *Record) resultJSON() (string, error) {
	b, err := json.Marshal(r.Result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(b), nil
}

func decodeResult(raw string) (*pnr.Result, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var res pnr.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// QueryParams contains filtering options for querying records.
type QueryParams struct {
	RecordLocator string // Exact match, case-insensitive.
	TicketNumber  string // Exact match.
	Dialect       string // Exact match.
	Eligible      *bool  // Filter on 3-hour eligibility.
	FullText      string // Search in raw text.
	Limit         int    // Max results (default 100).
	Offset        int    // Pagination offset.
}

// DefaultLimit is used when QueryParams.Limit is zero or negative.
const DefaultLimit = 100

func (p QueryParams) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return DefaultLimit
}

// Store is implemented by every storage backend.
type Store interface {
	CreateSchema(ctx context.Context) error
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Query(ctx context.Context, p QueryParams) ([]*Record, error)
	CountByDialect(ctx context.Context) (map[string]int64, error)
	Close() error
}

// Config holds database connection settings for every backend.
type Config struct {
	Backend    string
	SQLitePath string
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendSQLite,
		SQLitePath: "pnr_parses.db",
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "pnr",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "pnr",
			User:     "pnr",
			Password: "pnr",
		},
	}
}

// Open opens the configured backend and creates its schema. The "none"
// backend returns a nil Store and no error.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)

	switch strings.ToLower(cfg.Backend) {
	case BackendNone, "":
		return nil, nil
	case BackendSQLite:
		s, err = OpenSQLite(cfg.SQLitePath)
	case BackendPostgres:
		s, err = OpenPostgres(ctx, cfg.Postgres)
	case BackendClickHouse:
		s, err = OpenClickHouse(ctx, cfg.ClickHouse)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Backend, err)
	}

	if err := s.CreateSchema(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%s schema: %w", cfg.Backend, err)
	}
	return s, nil
}
