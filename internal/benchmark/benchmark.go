// Package benchmark records named measurement points for one request.
package benchmark

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type ctxKey struct{}

// Mark is one measurement point.
type Mark struct {
	Message string
	At      time.Time
	// Since is the time elapsed since the previous mark, or since start.
	Since time.Duration
}

// Benchmark collects marks. A nil *Benchmark ignores every call.
type Benchmark struct {
	mu     sync.Mutex
	start  time.Time
	last   time.Time
	marks  []Mark
	logger *slog.Logger
	now    func() time.Time
}

// New starts a benchmark. Marks are logged at debug level when logger is set.
func New(logger *slog.Logger) *Benchmark {
	now := time.Now()
	return &Benchmark{start: now, last: now, logger: logger, now: time.Now}
}

// Measure records a mark.
func (b *Benchmark) Measure(message string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	at := b.now()
	m := Mark{Message: message, At: at, Since: at.Sub(b.last)}
	b.marks = append(b.marks, m)
	b.last = at
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("benchmark", slog.String("mark", message), slog.Duration("since_previous", m.Since))
	}
}

// Marks returns a copy of the recorded marks.
func (b *Benchmark) Marks() []Mark {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Mark, len(b.marks))
	copy(out, b.marks)
	return out
}

// Elapsed returns the time since the benchmark started.
func (b *Benchmark) Elapsed() time.Duration {
	if b == nil {
		return 0
	}
	return b.now().Sub(b.start)
}

// NewContext returns ctx carrying b.
func NewContext(ctx context.Context, b *Benchmark) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// FromContext returns the benchmark stored in ctx, or nil.
func FromContext(ctx context.Context) *Benchmark {
	b, _ := ctx.Value(ctxKey{}).(*Benchmark)
	return b
}
