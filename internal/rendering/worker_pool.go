package rendering

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RenderJob is a unit of CPU bound work executed by the pool.
type RenderJob struct {
	ID     uuid.UUID
	Label  string
	run    func() (*Response, error)
	result chan JobResult
	queued time.Time
}

// JobResult is what a worker reports back for a job.
type JobResult struct {
	JobID      uuid.UUID
	Response   *Response
	Error      error
	DurationMs int
	WaitMs     int
}

// WorkerMetrics tracks worker pool performance
type WorkerMetrics struct {
	TotalJobs       int64
	SuccessJobs     int64
	FailedJobs      int64
	AbandonedJobs   int64
	ProcessingNanos int64
	ActiveWorkers   int32
	BusyWorkers     int32
	QueueLength     int32
}

// WorkerPool runs render jobs on a fixed set of goroutines, separate from
// the HTTP handlers. Submit blocks until the job finishes or the caller's
// context ends.
type WorkerPool struct {
	workerCount int
	workers     []*Worker
	jobChan     chan RenderJob
	quitChan    chan struct{}
	wg          sync.WaitGroup
	metrics     *WorkerMetrics
	monitoring  *MonitoringService

	monitoringInterval time.Duration

	mu      sync.RWMutex
	running bool
}

// Worker represents a single worker goroutine
type Worker struct {
	id           int
	pool         *WorkerPool
	jobChan      <-chan RenderJob
	quitChan     <-chan struct{}
	isProcessing int32 // atomic flag
}

// NewWorkerPool creates a pool of workerCount workers with a job buffer of
// bufferSize. Zero values default to GOMAXPROCS workers and 64 slots.
func NewWorkerPool(workerCount, bufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}

	pool := &WorkerPool{
		workerCount:        workerCount,
		workers:            make([]*Worker, workerCount),
		jobChan:            make(chan RenderJob, bufferSize),
		quitChan:           make(chan struct{}),
		metrics:            &WorkerMetrics{},
		monitoringInterval: 30 * time.Second,
	}
	pool.monitoring = NewMonitoringService(pool)

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = &Worker{
			id:       i,
			pool:     pool,
			jobChan:  pool.jobChan,
			quitChan: pool.quitChan,
		}
	}
	return pool
}

// Start launches the workers and the monitoring routine.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		atomic.AddInt32(&p.metrics.ActiveWorkers, 1)
		go p.workers[i].start()
	}

	p.wg.Add(1)
	go p.monitoringRoutine(ctx)

	logging.InfoWithComponent(logging.ComponentWorkers, "Render worker pool started",
		"workers", p.workerCount,
		"buffer", cap(p.jobChan))
}

// Stop lets running jobs finish, fails queued ones with ErrPoolStopped and
// waits for every worker to exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	logging.InfoWithComponent(logging.ComponentWorkers, "Stopping render worker pool")
	p.running = false
	close(p.quitChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.InfoWithComponent(logging.ComponentWorkers, "Render worker pool stopped",
		"total_jobs", atomic.LoadInt64(&p.metrics.TotalJobs))
}

// Submit queues run and waits for its result. When ctx ends first the caller
// gets ErrRequestTimeout; the job still runs to completion and its result is
// dropped.
func (p *WorkerPool) Submit(ctx context.Context, label string, run func() (*Response, error)) (*Response, error) {
	job := RenderJob{
		ID:     uuid.New(),
		Label:  label,
		run:    run,
		result: make(chan JobResult, 1),
		queued: time.Now(),
	}

	if err := p.enqueue(ctx, job); err != nil {
		return nil, err
	}

	select {
	case res := <-job.result:
		return res.Response, res.Error
	case <-ctx.Done():
		atomic.AddInt64(&p.metrics.AbandonedJobs, 1)
		logging.WarnWithComponent(logging.ComponentWorkers, "Caller stopped waiting for render job",
			"job_id", job.ID,
			"label", label,
			"error", ctx.Err())
		return nil, ErrRequestTimeout
	}
}

func (p *WorkerPool) enqueue(ctx context.Context, job RenderJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPoolStopped
	}
	select {
	case p.jobChan <- job:
		atomic.AddInt32(&p.metrics.QueueLength, 1)
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&p.metrics.AbandonedJobs, 1)
		logging.WarnWithComponent(logging.ComponentWorkers, "Job channel full until deadline, dropping job",
			"job_id", job.ID,
			"label", job.Label)
		return ErrRequestTimeout
	}
}

// GetMetrics returns current worker pool metrics
func (p *WorkerPool) GetMetrics() WorkerMetrics {
	return WorkerMetrics{
		TotalJobs:       atomic.LoadInt64(&p.metrics.TotalJobs),
		SuccessJobs:     atomic.LoadInt64(&p.metrics.SuccessJobs),
		FailedJobs:      atomic.LoadInt64(&p.metrics.FailedJobs),
		AbandonedJobs:   atomic.LoadInt64(&p.metrics.AbandonedJobs),
		ProcessingNanos: atomic.LoadInt64(&p.metrics.ProcessingNanos),
		ActiveWorkers:   atomic.LoadInt32(&p.metrics.ActiveWorkers),
		BusyWorkers:     atomic.LoadInt32(&p.metrics.BusyWorkers),
		QueueLength:     int32(len(p.jobChan)),
	}
}

// Monitoring returns the pool's health monitor.
func (p *WorkerPool) Monitoring() *MonitoringService {
	return p.monitoring
}

// WorkerCount returns the configured number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// monitoringRoutine logs buffer alerts periodically
func (p *WorkerPool) monitoringRoutine(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.monitoringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quitChan:
			return
		case <-ticker.C:
			for _, alert := range p.monitoring.GetBufferHealthAlerts() {
				logging.WarnWithComponent(logging.ComponentWorkers, "Buffer health alert", "message", alert)
			}
		}
	}
}

// start runs a single worker
func (w *Worker) start() {
	defer w.pool.wg.Done()

	logging.DebugWithComponent(logging.ComponentWorkers, "Starting worker", "id", w.id)
	defer atomic.AddInt32(&w.pool.metrics.ActiveWorkers, -1)

	for {
		select {
		case <-w.quitChan:
			w.drain()
			logging.DebugWithComponent(logging.ComponentWorkers, "Worker stopping", "id", w.id)
			return
		case job := <-w.jobChan:
			w.processJob(job)
		}
	}
}

// drain fails every job still buffered when the pool stops.
func (w *Worker) drain() {
	for {
		select {
		case job := <-w.jobChan:
			atomic.AddInt32(&w.pool.metrics.QueueLength, -1)
			job.result <- JobResult{JobID: job.ID, Error: ErrPoolStopped}
		default:
			return
		}
	}
}

// processJob runs one job and reports its result. A panicking job fails
// with an internal error instead of taking the worker down.
func (w *Worker) processJob(job RenderJob) {
	atomic.StoreInt32(&w.isProcessing, 1)
	atomic.AddInt32(&w.pool.metrics.BusyWorkers, 1)
	defer func() {
		atomic.AddInt32(&w.pool.metrics.BusyWorkers, -1)
		atomic.StoreInt32(&w.isProcessing, 0)
	}()

	atomic.AddInt64(&w.pool.metrics.TotalJobs, 1)
	atomic.AddInt32(&w.pool.metrics.QueueLength, -1)

	wait := time.Since(job.queued)
	start := time.Now()
	resp, err := runJob(job)
	duration := time.Since(start)
	atomic.AddInt64(&w.pool.metrics.ProcessingNanos, int64(duration))

	result := JobResult{
		JobID:      job.ID,
		Response:   resp,
		Error:      err,
		DurationMs: int(duration.Milliseconds()),
		WaitMs:     int(wait.Milliseconds()),
	}
	if err == nil {
		atomic.AddInt64(&w.pool.metrics.SuccessJobs, 1)
		logging.DebugWithComponent(logging.ComponentWorkers, "Render job completed",
			"worker_id", w.id,
			"job_id", job.ID,
			"label", job.Label,
			"wait_ms", result.WaitMs,
			"duration_ms", result.DurationMs)
	} else {
		atomic.AddInt64(&w.pool.metrics.FailedJobs, 1)
		logging.DebugWithComponent(logging.ComponentWorkers, "Render job failed",
			"worker_id", w.id,
			"job_id", job.ID,
			"label", job.Label,
			"error", err)
	}
	job.result <- result
}

func runJob(job RenderJob) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithComponent(logging.ComponentWorkers, "Render job panicked",
				"job_id", job.ID,
				"label", job.Label,
				"panic", r)
			resp, err = nil, AsError(panicError{value: r})
		}
	}()
	return job.run()
}

// IsProcessing returns true if the worker is currently processing a job
func (w *Worker) IsProcessing() bool {
	return atomic.LoadInt32(&w.isProcessing) == 1
}
