package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"sevadarpan.org/internal/ids"
	"sevadarpan.org/internal/obs"
)

// Entry is an append-only record of a security-relevant action. Entries are
// written after the response has been sent and are never mutated.
type Entry struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorName  string    `json:"actor_name,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Category   string    `json:"category,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Method     string    `json:"method,omitempty"`
	Path       string    `json:"path,omitempty"`
	Status     int       `json:"status,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Sink appends immutable entries.
type Sink interface {
	Append(ctx context.Context, e *Entry) error
}

// Lister reads back recent entries for the review endpoint.
type Lister interface {
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder appends entries asynchronously, after the caller has already
// finished its response. Append failures are reported to the operational log
// and never surface to the request path.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRecorder builds a recorder over the given sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, timeout: 5 * time.Second}
}

// Record schedules the entry for appending and returns immediately.
func (r *Recorder) Record(e *Entry) {
	if r == nil || r.sink == nil || e == nil {
		return
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				obs.LogRequest(map[string]any{
					"ts":    time.Now().UTC().Format(time.RFC3339Nano),
					"level": "error",
					"msg":   "audit append panicked",
					"panic": rec,
				})
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.Append(ctx, e); err != nil {
			obs.LogRequest(map[string]any{
				"ts":     time.Now().UTC().Format(time.RFC3339Nano),
				"level":  "error",
				"msg":    "audit append failed",
				"action": e.Action,
				"error":  err.Error(),
			})
		}
	}()
}

// Flush waits for all scheduled appends; called on shutdown and in tests.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

// MultiSink fans an entry out to every sink; errors are joined so one failing
// destination does not hide the others.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, e *Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes entries as JSON lines to the shared operational logger.
type LogSink struct{}

func (LogSink) Append(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(struct {
		Type string `json:"type"`
		*Entry
	}{Type: "audit", Entry: e})
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
