package rendering

import (
	"fmt"
	"time"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	Status          string             `json:"status"` // "healthy", "degraded", "unhealthy"
	WorkerPool      WorkerPoolHealth   `json:"worker_pool"`
	Performance     PerformanceMetrics `json:"performance"`
	LastUpdated     time.Time          `json:"last_updated"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// WorkerPoolHealth represents worker pool specific health metrics
type WorkerPoolHealth struct {
	ActiveWorkers      int32   `json:"active_workers"`
	ExpectedWorkers    int     `json:"expected_workers"`
	WorkerUtilization  float64 `json:"worker_utilization"` // % of workers currently processing
	QueueLength        int32   `json:"queue_length"`
	ChannelCapacity    int     `json:"channel_capacity"`
	ChannelUtilization float64 `json:"channel_utilization"` // % of channel buffer used
}

// PerformanceMetrics represents performance statistics
type PerformanceMetrics struct {
	TotalJobs             int64    `json:"total_jobs"`
	FailedJobs            int64    `json:"failed_jobs"`
	AbandonedJobs         int64    `json:"abandoned_jobs"`
	SuccessRate           float64  `json:"success_rate"`
	JobsPerMinute         float64  `json:"jobs_per_minute"`
	AverageProcessingTime *float64 `json:"average_processing_time_seconds,omitempty"`
	Uptime                float64  `json:"uptime_seconds"`
}

// MonitoringService derives health information from pool metrics.
type MonitoringService struct {
	workerPool *WorkerPool
	startTime  time.Time
}

// NewMonitoringService creates a new monitoring service
func NewMonitoringService(workerPool *WorkerPool) *MonitoringService {
	return &MonitoringService{
		workerPool: workerPool,
		startTime:  time.Now(),
	}
}

// GetHealthStatus returns the current health status of the render pool
func (m *MonitoringService) GetHealthStatus() *HealthStatus {
	metrics := m.workerPool.GetMetrics()
	capacity := cap(m.workerPool.jobChan)

	var workerUtilization float64
	if m.workerPool.workerCount > 0 {
		processingWorkers := 0
		for _, worker := range m.workerPool.workers {
			if worker.IsProcessing() {
				processingWorkers++
			}
		}
		workerUtilization = float64(processingWorkers) / float64(m.workerPool.workerCount) * 100
	}

	poolHealth := WorkerPoolHealth{
		ActiveWorkers:      metrics.ActiveWorkers,
		ExpectedWorkers:    m.workerPool.workerCount,
		WorkerUtilization:  workerUtilization,
		QueueLength:        metrics.QueueLength,
		ChannelCapacity:    capacity,
		ChannelUtilization: float64(metrics.QueueLength) / float64(capacity) * 100,
	}

	successRate := float64(0)
	if metrics.TotalJobs > 0 {
		successRate = float64(metrics.SuccessJobs) / float64(metrics.TotalJobs) * 100
	}

	jobsPerMinute := float64(0)
	if elapsed := time.Since(m.startTime).Minutes(); elapsed > 0 {
		jobsPerMinute = float64(metrics.TotalJobs) / elapsed
	}

	performance := PerformanceMetrics{
		TotalJobs:     metrics.TotalJobs,
		FailedJobs:    metrics.FailedJobs,
		AbandonedJobs: metrics.AbandonedJobs,
		SuccessRate:   successRate,
		JobsPerMinute: jobsPerMinute,
		Uptime:        time.Since(m.startTime).Seconds(),
	}
	if metrics.TotalJobs > 0 {
		avg := time.Duration(metrics.ProcessingNanos / metrics.TotalJobs).Seconds()
		performance.AverageProcessingTime = &avg
	}

	status, recommendations := m.determineHealthStatus(poolHealth, performance)
	return &HealthStatus{
		Status:          status,
		WorkerPool:      poolHealth,
		Performance:     performance,
		LastUpdated:     time.Now(),
		Recommendations: recommendations,
	}
}

// determineHealthStatus analyzes metrics and determines overall health
func (m *MonitoringService) determineHealthStatus(pool WorkerPoolHealth, performance PerformanceMetrics) (string, []string) {
	var recommendations []string
	unhealthyConditions := 0
	degradedConditions := 0

	if pool.ActiveWorkers < int32(pool.ExpectedWorkers) {
		unhealthyConditions++
		recommendations = append(recommendations,
			fmt.Sprintf("Worker pool degraded: %d/%d workers active",
				pool.ActiveWorkers, pool.ExpectedWorkers))
	}

	if pool.ChannelUtilization > 90 {
		degradedConditions++
		recommendations = append(recommendations,
			fmt.Sprintf("Job channel nearly full (%.1f%% utilized) - consider increasing BASIC_QUEUESIZE",
				pool.ChannelUtilization))
	}

	if pool.WorkerUtilization > 95 {
		degradedConditions++
		recommendations = append(recommendations,
			fmt.Sprintf("Workers heavily loaded (%.1f%% utilized) - consider raising BASIC_WORKERS",
				pool.WorkerUtilization))
	}

	if performance.AbandonedJobs > 0 && performance.TotalJobs > 0 &&
		float64(performance.AbandonedJobs)/float64(performance.TotalJobs) > 0.05 {
		degradedConditions++
		recommendations = append(recommendations,
			fmt.Sprintf("%d callers gave up waiting for renders", performance.AbandonedJobs))
	}

	if unhealthyConditions > 0 {
		return "unhealthy", recommendations
	} else if degradedConditions > 0 {
		return "degraded", recommendations
	}
	return "healthy", recommendations
}

// LogHealthSummary logs a summary of the current health status
func (m *MonitoringService) LogHealthSummary() {
	health := m.GetHealthStatus()
	logging.InfoWithComponent(logging.ComponentWorkers, "Health summary",
		"status", health.Status,
		"active_workers", health.WorkerPool.ActiveWorkers,
		"worker_utilization", fmt.Sprintf("%.1f%%", health.WorkerPool.WorkerUtilization),
		"channel_utilization", fmt.Sprintf("%.1f%%", health.WorkerPool.ChannelUtilization),
		"success_rate", fmt.Sprintf("%.1f%%", health.Performance.SuccessRate),
		"jobs_per_minute", fmt.Sprintf("%.1f", health.Performance.JobsPerMinute))

	for _, rec := range health.Recommendations {
		logging.WarnWithComponent(logging.ComponentWorkers, "Recommendation", "message", rec)
	}
}

// GetBufferHealthAlerts returns alerts if the job buffer is nearly full
func (m *MonitoringService) GetBufferHealthAlerts() []string {
	var alerts []string
	metrics := m.workerPool.GetMetrics()

	channelUtilization := float64(metrics.QueueLength) / float64(cap(m.workerPool.jobChan)) * 100
	if channelUtilization > 95 {
		alerts = append(alerts, fmt.Sprintf("CRITICAL: Job channel %.1f%% full", channelUtilization))
	} else if channelUtilization > 80 {
		alerts = append(alerts, fmt.Sprintf("WARNING: Job channel %.1f%% full", channelUtilization))
	}
	return alerts
}
