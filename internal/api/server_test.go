package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnr_parser/internal/metrics"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/storage"
)

const sabreDump = "PCC: A1B2\n" +
	"RECORD LOCATOR: ABC123\n" +
	"TKT: 125-1234567890 ISSUED: 15MAR24\n" +
	" 1 BA 117Y 10JAN 3 JFKLHR HX1   0800  2000\n" +
	" 2 BA 117Y 10JAN 3 JFKLHR HK1   1400  0200+1\n"

// fakeStore is an in-memory storage.Store.
type fakeStore struct {
	mu        sync.Mutex
	records   []*storage.Record
	lastQuery storage.QueryParams
	insertErr error
	countErr  error
}

func (f *fakeStore) CreateSchema(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                           { return nil }

func (f *fakeStore) Insert(ctx context.Context, rec *storage.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Query(ctx context.Context, p storage.QueryParams) ([]*storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = p
	var out []*storage.Record
	for _, r := range f.records {
		if p.RecordLocator != "" && r.RecordLocator != strings.ToUpper(p.RecordLocator) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) CountByDialect(ctx context.Context) (map[string]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, r := range f.records {
		counts[r.Dialect()]++
	}
	return counts, nil
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := NewServer(Config{Port: 8080}).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["storage"])
}

func TestParseWithoutStore(t *testing.T) {
	router := NewServer(Config{}).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{
		"text": sabreDump,
		"now":  "2024-06-13T15:30:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ParseResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.ID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, pnr.DialectSabre, resp.Result.GDSDialect)
	assert.True(t, resp.Result.Eligibility3Hour)
	require.NotNil(t, resp.Result.DaysSinceIssue)
	assert.Equal(t, 90, *resp.Result.DaysSinceIssue)
}

func TestParseStoresRecord(t *testing.T) {
	store := &fakeStore{}
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	router := NewServer(Config{}, WithStore(store), WithMetrics(m, reg)).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{
		"text":      sabreDump,
		"agency_id": "AG7",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ParseResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)
	assert.True(t, strings.HasPrefix(resp.CaseID, "125-AG7-"))
	require.Len(t, store.records, 1)
	assert.Equal(t, "ABC123", store.records[0].RecordLocator)

	// The stored record is retrievable by id.
	get := doJSON(t, router, http.MethodGet, "/api/v1/parses/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, get.Code)
	var stored storage.Record
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stored))
	assert.Equal(t, resp.ID, stored.ID)

	// Metrics are exposed.
	mrec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), `test_parses_total{dialect="sabre"} 1`)
	assert.Contains(t, mrec.Body.String(), "test_records_stored_total 1")
}

func TestParseValidation(t *testing.T) {
	router := NewServer(Config{}).Router()

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing text", map[string]string{"text": "  "}},
		{"bad ticket", map[string]string{"text": "x", "ticket_number": "125-123"}},
		{"bad locator", map[string]string{"text": "x", "airline_record_locator": "AB"}},
		{"bad now", map[string]string{"text": "x", "now": "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/parse", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseStoreFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	router := NewServer(Config{}, WithStore(store)).Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": sabreDump})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetParseNotFound(t *testing.T) {
	router := NewServer(Config{}, WithStore(&fakeStore{})).Router()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/parses/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageNotConfigured(t *testing.T) {
	router := NewServer(Config{}).Router()

	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, router, http.MethodGet, "/api/v1/parses/x", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, router, http.MethodGet, "/api/v1/parses", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, router, http.MethodGet, "/api/v1/parses/stats", nil).Code)
}

func TestParseStats(t *testing.T) {
	store := &fakeStore{}
	router := NewServer(Config{}, WithStore(store)).Router()

	doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": sabreDump})
	doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": sabreDump})
	doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": "nothing here"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/parses/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, map[string]int64{"sabre": 2, "unknown": 1}, resp.ByDialect)

	store.countErr = errors.New("timeout")
	failed := doJSON(t, router, http.MethodGet, "/api/v1/parses/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, failed.Code)
}

func TestListParses(t *testing.T) {
	store := &fakeStore{}
	router := NewServer(Config{}, WithStore(store)).Router()

	doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": sabreDump})
	doJSON(t, router, http.MethodPost, "/api/v1/parse", map[string]string{"text": "nothing here"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/parses?record_locator=abc123&eligible=true&limit=5&q=JFK", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Records, 1)
	assert.Equal(t, 5, resp.Limit)

	require.NotNil(t, store.lastQuery.Eligible)
	assert.True(t, *store.lastQuery.Eligible)
	assert.Equal(t, "JFK", store.lastQuery.FullText)

	empty := doJSON(t, router, http.MethodGet, "/api/v1/parses?record_locator=ZZZ999", nil)
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `"records":[]`)

	for _, bad := range []string{"eligible=maybe", "limit=0", "limit=5000", "limit=x", "offset=-1"} {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/parses?"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := NewServer(Config{
		AuthEnabled: true,
		APIKeys:     []string{"test-key-123", "another-key"},
	})
	router := server.Router()

	tests := []struct {
		name       string
		header     string
		value      string
		query      string
		wantStatus int
	}{
		{name: "no key", wantStatus: http.StatusUnauthorized},
		{name: "valid X-API-Key", header: "X-API-Key", value: "test-key-123", wantStatus: http.StatusOK},
		{name: "valid bearer", header: "Authorization", value: "Bearer another-key", wantStatus: http.StatusOK},
		{name: "valid query", query: "?api_key=test-key-123", wantStatus: http.StatusOK},
		{name: "invalid key", header: "X-API-Key", value: "wrong", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/parse"+tt.query, strings.NewReader(`{"text":"hello"}`))
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	// Health stays open.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	open := NewServer(Config{}).Router()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/parse", nil)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted := NewServer(Config{CORSOrigins: []string{"https://desk.example.com"}}).Router()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Equal(t, "https://desk.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
