package monitoring

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/utils/webhook"
)

// JobExecutionStatus represents different job execution states
type JobExecutionStatus string

const (
	JobStatusPending JobExecutionStatus = "pending"
	JobStatusRunning JobExecutionStatus = "running"
	JobStatusSuccess JobExecutionStatus = "success"
	JobStatusFailed  JobExecutionStatus = "failed"
	JobStatusStalled JobExecutionStatus = "stalled"
)

// JobStatus contains complete status information for a background job
type JobStatus struct {
	JobName             string                 `json:"job_name"`
	Status              JobExecutionStatus     `json:"status"`
	LastRunTime         time.Time              `json:"last_run_time"`
	LastDuration        time.Duration          `json:"last_duration_ms"`
	SuccessCount        int64                  `json:"success_count"`
	FailureCount        int64                  `json:"failure_count"`
	ConsecutiveFailures int64                  `json:"consecutive_failures"`
	LastError           string                 `json:"last_error,omitempty"`
	AverageExecution    time.Duration          `json:"average_execution_ms"`
	MaxExecutionTime    time.Duration          `json:"max_execution_ms"`
	MinExecutionTime    time.Duration          `json:"min_execution_ms"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// JobsSummary provides an overview of all job statuses
type JobsSummary struct {
	TotalJobs      int       `json:"total_jobs"`
	RunningJobs    int       `json:"running_jobs"`
	HealthyJobs    int       `json:"healthy_jobs"`
	UnhealthyJobs  int       `json:"unhealthy_jobs"`
	StalledJobs    int       `json:"stalled_jobs"`
	LastUpdateTime time.Time `json:"last_update_time"`
}

// JobStatusManager manages job status tracking with thread-safe operations
type JobStatusManager struct {
	mu               sync.RWMutex
	statuses         map[string]*JobStatus
	logger           *logger.Logger
	metrics          *BackgroundJobMetrics
	stalledThreshold time.Duration
	checkInterval    time.Duration
	retentionPeriod  time.Duration
}

// NewJobStatusManager creates a new job status manager instance. Call Run to
// start stalled-job detection and cleanup.
func NewJobStatusManager(logger *logger.Logger, metrics *BackgroundJobMetrics) *JobStatusManager {
	return &JobStatusManager{
		statuses:         make(map[string]*JobStatus),
		logger:           logger,
		metrics:          metrics,
		stalledThreshold: 5 * time.Minute,
		checkInterval:    1 * time.Minute,
		retentionPeriod:  24 * time.Hour,
	}
}

// Run performs periodic stalled-job detection and cleanup until ctx is done.
func (jsm *JobStatusManager) Run(ctx context.Context) {
	ticker := time.NewTicker(jsm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jsm.detectStalledJobs()
			jsm.cleanupOldStatuses()
		}
	}
}

// RegisterJob registers a new job for monitoring
func (jsm *JobStatusManager) RegisterJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	if _, exists := jsm.statuses[jobName]; !exists {
		now := time.Now()
		jsm.statuses[jobName] = &JobStatus{
			JobName:          jobName,
			Status:           JobStatusPending,
			Metadata:         make(map[string]interface{}),
			CreatedAt:        now,
			UpdatedAt:        now,
			MinExecutionTime: time.Duration(math.MaxInt64),
		}

		jsm.logger.Info("Job registered for monitoring", map[string]string{
			"job_name": jobName,
		})
	}
}

// StartJob marks a job as started and updates its status
func (jsm *JobStatusManager) StartJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	now := time.Now()
	status, exists := jsm.statuses[jobName]
	if !exists {
		status = &JobStatus{
			JobName:          jobName,
			CreatedAt:        now,
			Metadata:         make(map[string]interface{}),
			MinExecutionTime: time.Duration(math.MaxInt64),
		}
		jsm.statuses[jobName] = status
	}
	status.Status = JobStatusRunning
	status.LastRunTime = now
	status.UpdatedAt = now

	jsm.metrics.activeJobs.Inc()

	jsm.logger.Debug("Job started", map[string]string{
		"job_name":   jobName,
		"start_time": status.LastRunTime.Format(time.RFC3339),
	})
}

// CompleteJob marks a job as completed and updates all relevant statistics
func (jsm *JobStatusManager) CompleteJob(jobName string, err error, metadata map[string]interface{}) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		jsm.logger.Error("Attempted to complete unregistered job", map[string]string{
			"job_name": jobName,
		})
		return
	}

	duration := time.Since(status.LastRunTime)
	status.LastDuration = duration
	status.UpdatedAt = time.Now()

	if duration < status.MinExecutionTime {
		status.MinExecutionTime = duration
	}
	if duration > status.MaxExecutionTime {
		status.MaxExecutionTime = duration
	}

	totalRuns := status.SuccessCount + status.FailureCount
	if totalRuns > 0 {
		totalTime := status.AverageExecution * time.Duration(totalRuns)
		totalTime += duration
		status.AverageExecution = totalTime / time.Duration(totalRuns+1)
	} else {
		status.AverageExecution = duration
	}

	for key, value := range metadata {
		status.Metadata[key] = value
	}

	if err != nil {
		status.Status = JobStatusFailed
		status.FailureCount++
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		status.Metadata["error_type"] = classifyJobError(err)

		jsm.metrics.jobRuns.WithLabelValues(jobName, "error").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "failed").Observe(duration.Seconds())

		jsm.logger.Error("Job failed", map[string]string{
			"job_name":             jobName,
			"duration":             duration.String(),
			"error":                err.Error(),
			"consecutive_failures": fmt.Sprintf("%d", status.ConsecutiveFailures),
		})
	} else {
		status.Status = JobStatusSuccess
		status.SuccessCount++
		status.ConsecutiveFailures = 0
		status.LastError = ""

		jsm.metrics.jobRuns.WithLabelValues(jobName, "success").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "success").Observe(duration.Seconds())

		jsm.logger.Info("Job completed successfully", map[string]string{
			"job_name": jobName,
			"duration": duration.String(),
		})
	}

	jsm.metrics.activeJobs.Dec()
}

// GetJobStatus returns a copy of the current status of a specific job
func (jsm *JobStatusManager) GetJobStatus(jobName string) (*JobStatus, bool) {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		return nil, false
	}
	statusCopy := copyJobStatus(status)
	return &statusCopy, true
}

// GetAllJobStatuses returns the current status of all jobs
func (jsm *JobStatusManager) GetAllJobStatuses() map[string]JobStatus {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	result := make(map[string]JobStatus, len(jsm.statuses))
	currentTime := time.Now()

	for name, status := range jsm.statuses {
		statusCopy := copyJobStatus(status)
		if status.Status == JobStatusRunning &&
			currentTime.Sub(status.LastRunTime) > jsm.stalledThreshold {
			statusCopy.Status = JobStatusStalled
		}
		result[name] = statusCopy
	}

	return result
}

// GetJobsSummary returns a summary of all job statuses
func (jsm *JobStatusManager) GetJobsSummary() JobsSummary {
	statuses := jsm.GetAllJobStatuses()

	summary := JobsSummary{
		TotalJobs:      len(statuses),
		LastUpdateTime: time.Now(),
	}

	for _, status := range statuses {
		switch status.Status {
		case JobStatusRunning:
			summary.RunningJobs++
		case JobStatusSuccess, JobStatusPending:
			summary.HealthyJobs++
		case JobStatusFailed:
			summary.UnhealthyJobs++
		case JobStatusStalled:
			summary.StalledJobs++
		}
	}

	return summary
}

func copyJobStatus(status *JobStatus) JobStatus {
	statusCopy := *status
	statusCopy.Metadata = make(map[string]interface{}, len(status.Metadata))
	for k, v := range status.Metadata {
		statusCopy.Metadata[k] = v
	}
	return statusCopy
}

// detectStalledJobs checks for jobs that have been running longer than the threshold
func (jsm *JobStatusManager) detectStalledJobs() {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	currentTime := time.Now()
	stalledCount := 0

	for jobName, status := range jsm.statuses {
		if status.Status == JobStatusRunning &&
			currentTime.Sub(status.LastRunTime) > jsm.stalledThreshold {

			status.Status = JobStatusStalled
			status.UpdatedAt = currentTime
			stalledCount++

			jsm.logger.Error("Job detected as stalled", map[string]string{
				"job_name":      jobName,
				"last_run_time": status.LastRunTime.Format(time.RFC3339),
				"duration":      currentTime.Sub(status.LastRunTime).String(),
			})
		}
	}

	jsm.metrics.stalledJobs.Set(float64(stalledCount))
}

// cleanupOldStatuses drops jobs that have not reported for the retention period
func (jsm *JobStatusManager) cleanupOldStatuses() {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	cutoff := time.Now().Add(-jsm.retentionPeriod)
	cleaned := 0

	for jobName, status := range jsm.statuses {
		if status.UpdatedAt.Before(cutoff) && status.Status != JobStatusRunning {
			delete(jsm.statuses, jobName)
			cleaned++
		}
	}

	if cleaned > 0 {
		jsm.logger.Info("Cleaned up old job statuses", map[string]string{
			"cleaned_count": fmt.Sprintf("%d", cleaned),
		})
	}
}

// InstrumentedJob wraps a job function with monitoring and error handling
type InstrumentedJob struct {
	jobName       string
	jobFunc       func(ctx context.Context) (map[string]interface{}, error)
	statusManager *JobStatusManager
	logger        *logger.Logger
	timeout       time.Duration
	webhookClient *webhook.Client
	heartbeatURL  string
}

// NewInstrumentedJob creates a new instrumented job wrapper. jobFunc may
// return metadata that is merged into the job status.
func NewInstrumentedJob(
	jobName string,
	jobFunc func(ctx context.Context) (map[string]interface{}, error),
	statusManager *JobStatusManager,
	logger *logger.Logger,
	timeout time.Duration,
) *InstrumentedJob {
	statusManager.RegisterJob(jobName)

	return &InstrumentedJob{
		jobName:       jobName,
		jobFunc:       jobFunc,
		statusManager: statusManager,
		logger:        logger,
		timeout:       timeout,
	}
}

// WithHeartbeat pings url after every successful run.
func (ij *InstrumentedJob) WithHeartbeat(client *webhook.Client, url string) *InstrumentedJob {
	ij.webhookClient = client
	ij.heartbeatURL = url
	return ij
}

// Execute runs the job with monitoring, timeout, and panic recovery
func (ij *InstrumentedJob) Execute() {
	ij.statusManager.StartJob(ij.jobName)

	ctx, cancel := context.WithTimeout(context.Background(), ij.timeout)
	defer cancel()

	type outcome struct {
		metadata map[string]interface{}
		err      error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ij.logger.Error("Job panicked", map[string]string{
					"job_name": ij.jobName,
					"panic":    fmt.Sprintf("%v", r),
				})
				done <- outcome{
					metadata: map[string]interface{}{
						"panic":       fmt.Sprintf("%v", r),
						"stack_trace": string(debug.Stack()),
						"error_type":  "panic",
					},
					err: fmt.Errorf("job panicked: %v", r),
				}
			}
		}()
		metadata, err := ij.jobFunc(ctx)
		done <- outcome{metadata: metadata, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		ij.statusManager.metrics.jobTimeouts.WithLabelValues(ij.jobName).Inc()
		res = outcome{
			metadata: map[string]interface{}{
				"error_type": "timeout",
				"timeout":    ij.timeout.String(),
			},
			err: fmt.Errorf("job timeout after %v", ij.timeout),
		}
	}

	ij.statusManager.CompleteJob(ij.jobName, res.err, res.metadata)

	if res.err == nil && ij.webhookClient != nil {
		ij.webhookClient.CallUptimeWebhook(context.Background(), ij.heartbeatURL)
	}
}

// BackgroundJobMetrics contains all Prometheus metrics for background job monitoring
type BackgroundJobMetrics struct {
	jobDuration     *prometheus.HistogramVec
	jobRuns         *prometheus.CounterVec
	activeJobs      prometheus.Gauge
	stalledJobs     prometheus.Gauge
	trackedPayments *prometheus.GaugeVec
	jobTimeouts     *prometheus.CounterVec
}

// NewBackgroundJobMetrics creates a new instance of background job metrics
func NewBackgroundJobMetrics() *BackgroundJobMetrics {
	return &BackgroundJobMetrics{
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paywatch_background_job_duration_seconds",
				Help:    "Background job execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job_name", "status"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_background_job_runs_total",
				Help: "Total number of background job runs",
			},
			[]string{"job_name", "status"},
		),
		activeJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "paywatch_background_jobs_active",
				Help: "Number of currently running background jobs",
			},
		),
		stalledJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "paywatch_background_jobs_stalled",
				Help: "Number of stalled background jobs",
			},
		),
		trackedPayments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paywatch_tracked_payments",
				Help: "Monitored addresses by payment status, refreshed by the eviction job",
			},
			[]string{"status"},
		),
		jobTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paywatch_job_timeouts_total",
				Help: "Total job timeouts",
			},
			[]string{"job_name"},
		),
	}
}

// MustRegister registers all background job metrics with the provided registry
func (m *BackgroundJobMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.jobDuration,
		m.jobRuns,
		m.activeJobs,
		m.stalledJobs,
		m.trackedPayments,
		m.jobTimeouts,
	)
}

// SetTrackedPayments replaces the per-status gauge values.
func (m *BackgroundJobMetrics) SetTrackedPayments(counts map[string]int64) {
	m.trackedPayments.Reset()
	for status, n := range counts {
		m.trackedPayments.WithLabelValues(status).Set(float64(n))
	}
}

// classifyJobError classifies errors into different types for better monitoring
func classifyJobError(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline"):
		return "timeout"
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "sql"),
		strings.Contains(errStr, "evict"), strings.Contains(errStr, "payment status"):
		return "database"
	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "network"):
		return "network"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
