package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"pnr_parser/internal/extractor"
	"pnr_parser/internal/logging"
	"pnr_parser/internal/metrics"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/storage"
)

// ErrNoText is returned by Handle when a payload carries no reservation text.
var ErrNoText = errors.New("payload has no reservation text")

// Config holds the subjects the worker consumes and publishes on.
type Config struct {
	URL           string
	InputSubject  string
	OutputSubject string
	QueueGroup    string
	StoreTimeout  time.Duration
}

// Parsed is the message published for every handled submission.
type Parsed struct {
	ID       string      `json:"id"`
	CaseID   string      `json:"service_case_id"`
	Source   string      `json:"source,omitempty"`
	Kind     string      `json:"payload_kind"`
	ParsedAt time.Time   `json:"parsed_at"`
	Stored   bool        `json:"stored"`
	Result   *pnr.Result `json:"result"`
}

// errorReply is sent to requesters whose payload could not be handled.
type errorReply struct {
	Error string `json:"error"`
}

// Worker consumes OCR submissions from NATS, parses them and publishes the
// results.
type Worker struct {
	cfg     Config
	store   storage.Store // nil when storage is disabled
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

// NewWorker creates a worker. store and m may be nil.
func NewWorker(cfg Config, store storage.Store, m *metrics.Metrics, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}
	return &Worker{
		cfg:     cfg,
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle decodes one payload, parses it, stores the record when a store is
// configured and returns the JSON to publish.
func (w *Worker) Handle(ctx context.Context, data []byte) ([]byte, error) {
	sub, kind := Decode(data)
	if sub == nil {
		w.metrics.ObserveError("decode")
		return nil, ErrNoText
	}

	start := time.Now()
	result := extractor.Parse(sub.Text)
	w.metrics.ObserveParse(result, time.Since(start))

	rec := storage.NewRecord(sub, result, w.now())
	out := Parsed{
		ID:       rec.ID,
		CaseID:   rec.CaseID,
		Source:   rec.Source,
		Kind:     kind,
		ParsedAt: rec.ParsedAt,
		Result:   result,
	}

	if w.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, w.cfg.StoreTimeout)
		err := w.store.Insert(storeCtx, rec)
		cancel()
		if err != nil {
			w.metrics.ObserveError("store")
			return nil, fmt.Errorf("store parse %s: %w", rec.ID, err)
		}
		w.metrics.ObserveStored()
		out.Stored = true
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal parsed: %w", err)
	}
	return b, nil
}

// Run connects to NATS, joins the queue group and handles messages until
// ctx is cancelled. Pending messages are handled before it returns.
func (w *Worker) Run(ctx context.Context) error {
	nc, err := nats.Connect(w.cfg.URL,
		nats.Name("pnr_parser worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				w.logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			w.logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	return w.Serve(ctx, nc)
}

// Serve handles messages on an existing connection until ctx is cancelled,
// then drains the subscription and waits for messages already delivered to
// be handled. Those messages still get the full store timeout.
func (w *Worker) Serve(ctx context.Context, nc *nats.Conn) error {
	handlerCtx := context.WithoutCancel(ctx)
	sub, err := nc.QueueSubscribe(w.cfg.InputSubject, w.cfg.QueueGroup, func(msg *nats.Msg) {
		w.handleMsg(handlerCtx, nc, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.cfg.InputSubject, err)
	}

	w.logger.Info("worker listening",
		"subject", w.cfg.InputSubject,
		"queue", w.cfg.QueueGroup,
		"publish", w.cfg.OutputSubject,
		"storage", w.store != nil,
	)

	<-ctx.Done()
	w.logger.Info("worker draining")
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}

	timeout := nc.Opts.DrainTimeout
	if timeout <= 0 {
		timeout = nats.DefaultDrainTimeout
	}
	return waitDrained(sub, timeout)
}

// waitDrained blocks until a draining subscription has handled its pending
// messages and been removed.
func waitDrained(sub *nats.Subscription, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for sub.IsValid() {
		if time.Now().After(deadline) {
			return fmt.Errorf("drain subscription: %w", nats.ErrTimeout)
		}
		<-ticker.C
	}
	return nil
}

func (w *Worker) handleMsg(ctx context.Context, nc *nats.Conn, msg *nats.Msg) {
	out, err := w.Handle(ctx, msg.Data)
	if err != nil {
		w.logger.Warn("failed to handle submission", "subject", msg.Subject, "error", err)
		if msg.Reply != "" {
			b, _ := json.Marshal(errorReply{Error: err.Error()})
			_ = msg.Respond(b)
		}
		return
	}

	if w.cfg.OutputSubject != "" {
		if err := nc.Publish(w.cfg.OutputSubject, out); err != nil {
			w.metrics.ObserveError("publish")
			w.logger.Error("failed to publish result", "subject", w.cfg.OutputSubject, "error", err)
		}
	}
	if msg.Reply != "" {
		if err := msg.Respond(out); err != nil {
			w.logger.Warn("failed to reply", "error", err)
		}
	}
}
