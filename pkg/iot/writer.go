package iot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/metrics"
)

const writeJobTimeout = 5 * time.Second

type WriteJob struct {
	Name       string
	DeviceName string
	Run        func(ctx context.Context) error
}

type WriteError struct {
	Job        string
	DeviceName string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s write for %q failed: %v", e.Job, e.DeviceName, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// AsyncWriter runs persistence jobs off the message path, one at a time in
// submission order, so snapshots of one device land in commit order. Failures
// are reported on an error channel drained by a logging goroutine.
type AsyncWriter struct {
	jobs    chan WriteJob
	errs    chan error
	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewAsyncWriter(queueSize int, m *metrics.Metrics) *AsyncWriter {
	return &AsyncWriter{
		jobs:    make(chan WriteJob, queueSize),
		errs:    make(chan error, queueSize),
		metrics: m,
		logger: common.GetLoggerWith(
			common.LoggerNameIOTCore,
			zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTSnapshot),
		),
	}
}

func (w *AsyncWriter) withLogCategory(category string) *AsyncWriter {
	w.logger = common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, category),
	)
	return w
}

func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true

	w.wg.Add(2)
	go w.work()
	go w.report()
}

// Enqueue never blocks. It reports false when the job was dropped.
func (w *AsyncWriter) Enqueue(job WriteJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.metrics.ObserveWriterDropped()
		w.logger.Warn("Write queue full, dropping job",
			zap.String("job", job.Name),
			zap.String("device", job.DeviceName),
		)
		return false
	}
}

// Close drains queued jobs and waits for them to finish.
func (w *AsyncWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	started := w.started
	close(w.jobs)
	w.mu.Unlock()

	if !started {
		close(w.errs)
		return
	}
	w.wg.Wait()
}

func (w *AsyncWriter) work() {
	defer w.wg.Done()
	defer close(w.errs)

	for job := range w.jobs {
		if err := w.run(job); err != nil {
			w.metrics.ObserveWriteFailure(job.Name)
			w.errs <- &WriteError{Job: job.Name, DeviceName: job.DeviceName, Err: err}
		}
	}
}

func (w *AsyncWriter) run(job WriteJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), writeJobTimeout)
	defer cancel()
	return job.Run(ctx)
}

func (w *AsyncWriter) report() {
	defer w.wg.Done()
	for err := range w.errs {
		w.logger.Error("Detached write failed", zap.Error(err))
	}
}
