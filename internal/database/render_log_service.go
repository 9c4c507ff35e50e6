package database

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rmitchellscott/chartserver/internal/logging"
	"github.com/rmitchellscott/chartserver/internal/rendering"
)

const (
	renderLogQueueSize = 1024
	renderLogBatchSize = 100
)

// RenderLogService writes and reads the render audit log. Records are
// queued and written by a single goroutine in batches, so recording never
// waits on the database.
type RenderLogService struct {
	db *gorm.DB

	mu      sync.RWMutex
	closed  bool
	queue   chan logOp
	done    chan struct{}
	dropped atomic.Int64
}

// logOp is either an entry to write or a flush marker.
type logOp struct {
	entry   *RenderLog
	flushed chan struct{}
}

// NewRenderLogService starts the writer; Close stops it.
func NewRenderLogService(db *gorm.DB) *RenderLogService {
	s := &RenderLogService{
		db:    db,
		queue: make(chan logOp, renderLogQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

type renderMetadata struct {
	ContentType string `json:"content_type,omitempty"`
	Status      int    `json:"status,omitempty"`
	DurationUs  int64  `json:"duration_us"`
}

// RecordRender queues rec. When the queue is full the record is dropped and
// counted; the audit log never slows or fails a render.
func (s *RenderLogService) RecordRender(_ context.Context, rec rendering.RenderRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- logOp{entry: NewRenderLog(rec)}:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			logging.WarnWithComponent(logging.ComponentDatabase, "Render log queue full, dropping records",
				"request_id", rec.RequestID,
				"dropped", n)
		}
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (s *RenderLogService) Dropped() int64 {
	return s.dropped.Load()
}

// Flush waits until every record queued before the call is written.
func (s *RenderLogService) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.queue <- logOp{flushed: flushed}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is queued and stops the writer. Later records are
// ignored.
func (s *RenderLogService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *RenderLogService) run() {
	defer close(s.done)

	batch := make([]*RenderLog, 0, renderLogBatchSize)
	write := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.db.CreateInBatches(batch, renderLogBatchSize).Error; err != nil {
			logging.WarnWithComponent(logging.ComponentDatabase, "Failed to record renders",
				"count", len(batch),
				"error", err)
		}
		batch = make([]*RenderLog, 0, renderLogBatchSize)
	}

	for op := range s.queue {
		if op.entry != nil {
			batch = append(batch, op.entry)
			// Keep collecting while more records are already waiting.
			if len(batch) < renderLogBatchSize && len(s.queue) > 0 {
				continue
			}
		}
		write()
		if op.flushed != nil {
			close(op.flushed)
		}
	}
	write()
}

// NewRenderLog converts a pipeline record into a row.
func NewRenderLog(rec rendering.RenderRecord) *RenderLog {
	entry := &RenderLog{
		RequestID:     rec.RequestID,
		Chart:         rec.Kind.String(),
		RequestedType: rec.Type,
		Format:        string(rec.Format),
		Quality:       rec.Quality,
		Width:         rec.Width,
		Height:        rec.Height,
		Bytes:         rec.Bytes,
		DurationMs:    rec.Duration.Milliseconds(),
		Success:       rec.Err == nil,
	}
	meta := renderMetadata{DurationUs: rec.Duration.Microseconds()}
	if rec.Err != nil {
		entry.ErrorKind = rec.Err.Kind.String()
		entry.ErrorCategory = rec.Err.Category
		entry.ErrorMessage = rec.Err.Message
		meta.Status = rec.Err.Status
	} else {
		meta.ContentType = rec.Format.ContentType()
	}
	if b, err := json.Marshal(meta); err == nil {
		entry.Metadata = datatypes.JSON(b)
	}
	return entry
}

// Recent returns the newest limit entries, failures only when failedOnly.
// Records queued before the call are included.
func (s *RenderLogService) Recent(ctx context.Context, limit int, failedOnly bool) ([]RenderLog, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if failedOnly {
		q = q.Where("success = ?", false)
	}
	var logs []RenderLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Stats aggregates entries created at or after since; a zero since covers
// the whole log. Records queued before the call are included.
func (s *RenderLogService) Stats(ctx context.Context, since time.Time) (*RenderStats, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	return GetRenderStats(s.db.WithContext(ctx), since)
}

// Cleanup deletes entries older than retention.
func (s *RenderLogService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return CleanupOldData(s.db.WithContext(ctx), retention)
}

// RunRetention deletes expired entries every interval until ctx ends.
func (s *RenderLogService) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(ctx, retention)
			if err != nil {
				logging.ErrorWithComponent(logging.ComponentDatabase, "Failed to cleanup render logs", "error", err)
				continue
			}
			if n > 0 {
				logging.InfoWithComponent(logging.ComponentDatabase, "Removed expired render logs", "count", n)
			}
		}
	}
}
