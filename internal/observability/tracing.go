package observability

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Duration  *time.Duration    `json:"duration,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Status    SpanStatus        `json:"status"`
	Error     string            `json:"error,omitempty"`

	mu       sync.Mutex
	recorder *Recorder
}

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

type (
	spanContextKey     struct{}
	recorderContextKey struct{}
)

// StartSpan opens a span under the span already in ctx, if any. Finished
// spans are reported to the Recorder attached with WithRecorder.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newID(),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanStatusOK,
		Tags:      make(map[string]string),
		recorder:  RecorderFrom(ctx),
	}

	if parent := GetSpan(ctx); parent != nil {
		span.ParentID = parent.SpanID
		span.TraceID = parent.TraceID
	} else {
		span.TraceID = newID()
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func (s *Span) Finish() {
	s.mu.Lock()
	if s.EndTime != nil {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	s.EndTime = &now
	duration := now.Sub(s.StartTime)
	s.Duration = &duration
	failed := s.Status == SpanStatusError
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.record(s.Operation, duration, failed)
	}
}

func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

func (s *Span) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// OperationStats aggregates the finished spans of one operation.
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Errors    int           `json:"errors"`
	Total     time.Duration `json:"total_ns"`
	Max       time.Duration `json:"max_ns"`
}

// Recorder collects per-operation span statistics for the admin endpoint.
type Recorder struct {
	mu  sync.Mutex
	ops map[string]*OperationStats
}

func NewRecorder() *Recorder {
	return &Recorder{ops: make(map[string]*OperationStats)}
}

func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderContextKey{}, r)
}

func RecorderFrom(ctx context.Context) *Recorder {
	if r, ok := ctx.Value(recorderContextKey{}).(*Recorder); ok {
		return r
	}
	return nil
}

func (r *Recorder) record(operation string, d time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.ops[operation]
	if !ok {
		op = &OperationStats{Operation: operation}
		r.ops[operation] = op
	}
	op.Count++
	op.Total += d
	op.Max = max(op.Max, d)
	if failed {
		op.Errors++
	}
}

// Stats returns a copy of the collected statistics ordered by operation.
func (r *Recorder) Stats() []OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OperationStats, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, *op)
	}
	slices.SortFunc(out, func(a, b OperationStats) int {
		return strings.Compare(a.Operation, b.Operation)
	})
	return out
}
