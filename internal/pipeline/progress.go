package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress events from DecodeImages.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(done, total int)
	OnComplete()
	// OnError reports a failed image by its input index.
	OnError(index int, err error)
}

// NoOpProgressCallback ignores all events.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a single-line progress bar.
type ConsoleProgressCallback struct {
	mu       sync.Mutex
	w        io.Writer
	prefix   string
	width    int
	interval time.Duration
	started  time.Time
	drawn    time.Time
	failed   int
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, prefix: prefix, width: 40, interval: 100 * time.Millisecond}
}

// WithWidth sets the bar width in cells.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	if width > 0 {
		c.width = width
	}
	return c
}

// WithUpdateInterval sets the minimum delay between redraws.
func (c *ConsoleProgressCallback) WithUpdateInterval(d time.Duration) *ConsoleProgressCallback {
	c.interval = d
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.drawn = time.Time{}
	c.failed = 0
	_, _ = fmt.Fprintf(c.w, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if done < total && now.Sub(c.drawn) < c.interval {
		return
	}
	c.drawn = now
	if total <= 0 {
		return
	}
	filled := c.width * done / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, done, total, 100*float64(done)/float64(total))
	if elapsed := now.Sub(c.started); elapsed > 0 && done > 0 {
		line += fmt.Sprintf(" %.1f img/s", float64(done)/elapsed.Seconds())
	}
	if c.failed > 0 {
		line += fmt.Sprintf(" failed=%d", c.failed)
	}
	_, _ = fmt.Fprint(c.w, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sCompleted in %v\n", c.prefix, time.Since(c.started).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
}

// LogProgressCallback reports progress through slog every N images.
type LogProgressCallback struct {
	mu       sync.Mutex
	logger   *slog.Logger
	level    slog.Level
	every    int
	lastDone int
	started  time.Time
}

// NewLogProgressCallback uses slog.Default when logger is nil.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, every: 10}
}

// WithInterval logs every n images.
func (l *LogProgressCallback) WithInterval(n int) *LogProgressCallback {
	if n > 0 {
		l.every = n
	}
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = time.Now()
	l.lastDone = 0
	l.logger.Log(context.Background(), l.level, "Decoding started", "total", total)
}

func (l *LogProgressCallback) OnProgress(done, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if done-l.lastDone < l.every && done != total {
		return
	}
	l.lastDone = done
	l.logger.Log(context.Background(), l.level, "Decoding progress",
		"done", done,
		"total", total,
		"elapsed", time.Since(l.started).Round(time.Millisecond),
	)
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(context.Background(), l.level, "Decoding completed", "elapsed", time.Since(l.started).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(index int, err error) {
	l.logger.Warn("Image failed", "index", index, "error", err)
}

// MultiProgressCallback fans events out to several callbacks.
type MultiProgressCallback []ProgressCallback

func (m MultiProgressCallback) OnStart(total int) {
	for _, cb := range m {
		cb.OnStart(total)
	}
}

func (m MultiProgressCallback) OnProgress(done, total int) {
	for _, cb := range m {
		cb.OnProgress(done, total)
	}
}

func (m MultiProgressCallback) OnComplete() {
	for _, cb := range m {
		cb.OnComplete()
	}
}

func (m MultiProgressCallback) OnError(index int, err error) {
	for _, cb := range m {
		cb.OnError(index, err)
	}
}

// ThrottledProgressCallback forwards at most one progress event per
// interval, always forwarding the final one.
type ThrottledProgressCallback struct {
	mu       sync.Mutex
	next     ProgressCallback
	interval time.Duration
	last     time.Time
}

// NewThrottledProgressCallback wraps next.
func NewThrottledProgressCallback(next ProgressCallback, interval time.Duration) *ThrottledProgressCallback {
	return &ThrottledProgressCallback{next: next, interval: interval}
}

func (t *ThrottledProgressCallback) OnStart(total int) { t.next.OnStart(total) }

func (t *ThrottledProgressCallback) OnProgress(done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if done == total || t.last.IsZero() || now.Sub(t.last) >= t.interval {
		t.last = now
		t.next.OnProgress(done, total)
	}
}

func (t *ThrottledProgressCallback) OnComplete() { t.next.OnComplete() }

func (t *ThrottledProgressCallback) OnError(index int, err error) { t.next.OnError(index, err) }
