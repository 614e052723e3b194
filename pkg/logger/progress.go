package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker counts the items of a batch, such as one synthesis per
// report range, and logs each one as it is done.
type ProgressTracker struct {
	mu        sync.Mutex
	logger    Logger
	operation string
	total     int
	done      int
	last      string
	started   time.Time
}

// NewProgressTracker starts tracking total items of operation. A nil log
// uses the global logger.
func NewProgressTracker(operation string, total int, log Logger) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	p := &ProgressTracker{
		logger:    log.WithComponent("progress").WithField("operation", operation),
		operation: operation,
		total:     total,
		started:   time.Now(),
	}
	p.logger.WithField("total", total).Debug("Batch started")
	return p
}

// Advance records item as done
func (p *ProgressTracker) Advance(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.last = item
	p.logger.WithFields(Fields{
		"item":  item,
		"done":  p.done,
		"total": p.total,
	}).Debug("Batch item done")
}

// Complete logs the final count and the elapsed time
func (p *ProgressTracker) Complete() {
	stats := p.Stats()
	p.logger.WithFields(Fields{
		"done":     stats.Done,
		"total":    stats.Total,
		"duration": stats.Elapsed.String(),
	}).Info("Batch completed")
}

// Stats returns a snapshot of the progress
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Operation: p.operation,
		Total:     p.total,
		Done:      p.done,
		Last:      p.last,
		Elapsed:   time.Since(p.started),
	}
}

// ProgressStats is a point-in-time view of a ProgressTracker
type ProgressStats struct {
	Operation string        `json:"operation"`
	Total     int           `json:"total"`
	Done      int           `json:"done"`
	Last      string        `json:"last,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Percentage is zero when the total is unknown
func (ps ProgressStats) Percentage() float64 {
	if ps.Total <= 0 {
		return 0
	}
	return float64(ps.Done) / float64(ps.Total) * 100
}

func (ps ProgressStats) String() string {
	if ps.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%)", ps.Operation, ps.Done, ps.Total, ps.Percentage())
	}
	return fmt.Sprintf("%s: %d done in %v", ps.Operation, ps.Done, ps.Elapsed)
}

// OperationLogger logs the steps of one operation with its accumulated
// fields and reports its outcome with the elapsed time.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	started   time.Time
}

// NewOperationLogger starts logging operation. A nil log uses the global
// logger.
func NewOperationLogger(operation string, log Logger) *OperationLogger {
	if log == nil {
		log = GetGlobalLogger()
	}
	ol := &OperationLogger{
		logger:    log,
		operation: operation,
		fields:    Fields{"operation": operation},
		started:   time.Now(),
	}
	ol.logger.WithFields(ol.fields).Debug("Operation started")
	return ol
}

// WithField adds a field logged with every later line
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

func (ol *OperationLogger) entry(extra Fields) Logger {
	return ol.logger.WithFields(ol.fields).WithFields(extra)
}

// Step logs the start of a step
func (ol *OperationLogger) Step(step string) {
	ol.entry(Fields{"step": step}).Debug("Operation step")
}

// Success logs message with the success status
func (ol *OperationLogger) Success(message string) {
	ol.entry(Fields{"status": "success", "duration": time.Since(ol.started).String()}).Info(message)
}

// Error logs message with err and the error status
func (ol *OperationLogger) Error(err error, message string) {
	ol.entry(Fields{"status": "error", "duration": time.Since(ol.started).String()}).WithError(err).Error(message)
}

// TimedOperation runs fn as operation and logs its outcome. fn's error is
// returned unchanged.
func TimedOperation(operation string, log Logger, fn func() error) error {
	ol := NewOperationLogger(operation, log)
	if err := fn(); err != nil {
		ol.Error(err, "Operation failed")
		return err
	}
	ol.Success("Operation completed")
	return nil
}
