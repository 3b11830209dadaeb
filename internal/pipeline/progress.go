package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress updates during batch processing.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(done, total int)
	OnComplete()
	OnError(index int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)          {}
func (NoOpProgressCallback) OnProgress(int, int)  {}
func (NoOpProgressCallback) OnComplete()          {}
func (NoOpProgressCallback) OnError(int, error)   {}

// ConsoleProgressCallback draws a progress bar while a batch runs.
type ConsoleProgressCallback struct {
	writer     io.Writer
	width      int
	start      time.Time
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewConsoleProgressCallback creates a console progress reporter. A
// nil writer defaults to stderr.
func NewConsoleProgressCallback(writer io.Writer) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{writer: writer, width: 40}
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "processing %d invoices\n", total)
}

func (c *ConsoleProgressCallback) OnProgress(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < 100*time.Millisecond && done < total {
		return
	}
	c.lastUpdate = now

	filled := c.width * done / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	_, _ = fmt.Fprintf(c.writer, "\r[%s] %d/%d (%.1f%%)",
		bar, done, total, float64(done)/float64(total)*100)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\ncompleted in %v\n", time.Since(c.start).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\ninvoice %d failed: %v\n", index, err)
}

// LogProgressCallback reports progress through slog, every interval
// items.
type LogProgressCallback struct {
	logger   *slog.Logger
	interval int
	lastLog  int
	start    time.Time
	mu       sync.Mutex
}

// NewLogProgressCallback creates a log-based progress reporter. A nil
// logger defaults to slog.Default; interval <= 0 defaults to 10.
func NewLogProgressCallback(logger *slog.Logger, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgressCallback{logger: logger, interval: interval}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start = time.Now()
	l.lastLog = 0
	l.logger.Info("batch started", "total", total)
}

func (l *LogProgressCallback) OnProgress(done, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if done-l.lastLog < l.interval && done != total {
		return
	}
	l.lastLog = done
	elapsed := time.Since(l.start)
	l.logger.Info("batch progress",
		"done", done,
		"total", total,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

func (l *LogProgressCallback) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Info("batch completed", "elapsed", time.Since(l.start).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(index int, err error) {
	l.logger.Error("batch item failed", "index", index, "error", err)
}
