package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
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

// memStore is an in-memory storage.Store. Inserts fail with the context
// error once ctx is done.
type memStore struct {
	mu      sync.Mutex
	records []*storage.Record
	err     error
	delay   time.Duration
}

func (m *memStore) CreateSchema(ctx context.Context) error { return nil }
func (m *memStore) Close() error                           { return nil }

func (m *memStore) Insert(ctx context.Context, rec *storage.Record) error {
	if m.err != nil {
		return m.err
	}
	time.Sleep(m.delay)
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) Get(ctx context.Context, id string) (*storage.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) Query(ctx context.Context, p storage.QueryParams) ([]*storage.Record, error) {
	return m.records, nil
}

func (m *memStore) CountByDialect(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

// counterValue sums every series of the named counter family.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func payload(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleStoresAndReturnsResult(t *testing.T) {
	store := &memStore{}
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	w := NewWorker(Config{}, store, m, nil)
	w.now = func() time.Time { return time.Date(2024, 6, 13, 16, 0, 0, 0, time.UTC) }

	out, err := w.Handle(context.Background(), payload(t, map[string]interface{}{
		"submission": map[string]string{"text": sabreDump, "agency_id": "AG1", "source": "ocr"},
	}))
	require.NoError(t, err)

	var parsed Parsed
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, KindEnvelope, parsed.Kind)
	assert.True(t, parsed.Stored)
	assert.Equal(t, "ocr", parsed.Source)
	assert.Equal(t, "125-AG1-0613-0400PM", parsed.CaseID)
	require.NotNil(t, parsed.Result)
	assert.Equal(t, pnr.DialectSabre, parsed.Result.GDSDialect)
	assert.True(t, parsed.Result.Eligibility3Hour)

	require.Len(t, store.records, 1)
	assert.Equal(t, parsed.ID, store.records[0].ID)
	assert.Equal(t, float64(1), counterValue(t, reg, "test_records_stored_total"))
	assert.Equal(t, float64(1), counterValue(t, reg, "test_eligible_3_hour_total"))
}

func TestHandleWithoutStore(t *testing.T) {
	w := NewWorker(Config{}, nil, nil, nil)

	out, err := w.Handle(context.Background(), payload(t, map[string]string{"text": sabreDump}))
	require.NoError(t, err)

	var parsed Parsed
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, KindFlat, parsed.Kind)
	assert.False(t, parsed.Stored)
	assert.NotEmpty(t, parsed.ID)
}

func TestHandleErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	w := NewWorker(Config{}, &memStore{err: errors.New("down")}, m, nil)

	_, err := w.Handle(context.Background(), []byte(`{"ticket_number":"1"}`))
	assert.ErrorIs(t, err, ErrNoText)
	assert.Equal(t, float64(1), counterValue(t, reg, "test_errors_total"))

	_, err = w.Handle(context.Background(), payload(t, map[string]string{"text": sabreDump}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, float64(2), counterValue(t, reg, "test_errors_total"))
}

// connectTestNATS returns a connection to NATS_URL, or nil if none is reachable.
func connectTestNATS(t *testing.T) *nats.Conn {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Timeout(time.Second))
	if err != nil {
		return nil
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestServeRequestReply(t *testing.T) {
	nc := connectTestNATS(t)
	if nc == nil {
		t.Skip("No NATS server available")
	}

	cfg := Config{
		InputSubject:  "pnr.test.ocr." + nats.NewInbox()[7:],
		OutputSubject: "pnr.test.parsed." + nats.NewInbox()[7:],
		QueueGroup:    "pnr-test",
	}
	w := NewWorker(cfg, nil, nil, nil)

	published, err := nc.SubscribeSync(cfg.OutputSubject)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx, nc) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the queue subscription to be registered.
	require.NoError(t, nc.Flush())
	time.Sleep(100 * time.Millisecond)

	reply, err := nc.Request(cfg.InputSubject, payload(t, map[string]string{"text": sabreDump}), 2*time.Second)
	require.NoError(t, err)

	var parsed Parsed
	require.NoError(t, json.Unmarshal(reply.Data, &parsed))
	assert.True(t, parsed.Result.Eligibility3Hour)

	msg, err := published.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, string(reply.Data), string(msg.Data))

	bad, err := nc.Request(cfg.InputSubject, []byte(`{}`), 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(bad.Data), ErrNoText.Error())
}

func TestServeHandlesPendingMessagesAfterCancel(t *testing.T) {
	nc := connectTestNATS(t)
	if nc == nil {
		t.Skip("No NATS server available")
	}

	cfg := Config{
		InputSubject: "pnr.test.ocr." + nats.NewInbox()[7:],
		QueueGroup:   "pnr-test",
	}
	store := &memStore{delay: 20 * time.Millisecond}
	w := NewWorker(cfg, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx, nc) }()

	require.NoError(t, nc.Flush())
	time.Sleep(100 * time.Millisecond)

	const total = 10
	for i := 0; i < total; i++ {
		require.NoError(t, nc.Publish(cfg.InputSubject, payload(t, map[string]string{"text": sabreDump})))
	}
	require.NoError(t, nc.Flush())
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	assert.Equal(t, total, store.count())
}
