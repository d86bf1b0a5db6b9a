package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
)

const syncMeterName = "github.com/erp/storesync/sync"

// PoolStatsSource reports worker pool occupancy. scheduler.WorkerPool implements it.
type PoolStatsSource interface {
	QueuedJobs() int
	RunningJobs() int64
}

// SyncMetrics records sync engine metrics:
//   - storesync_sync_records_total{entity_type, operation, outcome}
//   - storesync_sync_record_failures_total{entity_type, operation, retryable}
//   - storesync_sync_jobs_total{direction, job_status}
//   - storesync_sync_job_duration_seconds{direction, job_status}
//   - storesync_sync_lease_contention_total{entity_type}
//   - storesync_report_degraded_conversions_total{currency, target_currency}
//   - storesync_sync_pool_queued / storesync_sync_pool_running (observable)
type SyncMetrics struct {
	records     *Counter
	failures    *Counter
	jobs        *Counter
	jobDuration *Histogram
	contention  *Counter
	degraded    *Counter

	registration metric.Registration
}

// NewSyncMetrics creates the instruments on the provider's meter. pool may be nil.
func NewSyncMetrics(mp *MeterProvider, pool PoolStatsSource) (*SyncMetrics, error) {
	meter := mp.Meter(syncMeterName)
	m := &SyncMetrics{}

	var err error
	if m.records, err = NewCounter(meter, "storesync_sync_records_total",
		"Records processed by sync, by outcome", "{record}"); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounter(meter, "storesync_sync_record_failures_total",
		"Records whose remote call or local apply failed", "{record}"); err != nil {
		return nil, err
	}
	if m.jobs, err = NewCounter(meter, "storesync_sync_jobs_total",
		"Finished sync jobs", "{job}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storesync_sync_job_duration_seconds",
		Description: "Wall time of sync jobs",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.contention, err = NewCounter(meter, "storesync_sync_lease_contention_total",
		"Sync requests rejected because the store lease was held", "{request}"); err != nil {
		return nil, err
	}
	if m.degraded, err = NewCounter(meter, "storesync_report_degraded_conversions_total",
		"Revenue conversions that fell back to the native amount", "{conversion}"); err != nil {
		return nil, err
	}

	if pool != nil {
		queued, err := meter.Int64ObservableGauge("storesync_sync_pool_queued",
			metric.WithDescription("Sync jobs waiting for a worker"), metric.WithUnit("{job}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create gauge storesync_sync_pool_queued: %w", err)
		}
		running, err := meter.Int64ObservableGauge("storesync_sync_pool_running",
			metric.WithDescription("Sync jobs running on a worker"), metric.WithUnit("{job}"))
		if err != nil {
			return nil, fmt.Errorf("failed to create gauge storesync_sync_pool_running: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(queued, int64(pool.QueuedJobs()))
			o.ObserveInt64(running, pool.RunningJobs())
			return nil
		}, queued, running)
		if err != nil {
			return nil, fmt.Errorf("failed to register pool callback: %w", err)
		}
	}
	return m, nil
}

// RecordOutcome counts one record outcome
func (m *SyncMetrics) RecordOutcome(ctx context.Context, out integration.RecordOutcome) {
	attrs := []attribute.KeyValue{
		AttrEntityType.String(string(out.EntityType)),
		AttrOperation.String(string(out.Operation)),
	}
	m.records.Inc(ctx, append(attrs, AttrOutcome.String(outcomeLabel(out)))...)
	if out.Error != "" && !out.Deferred {
		m.failures.Inc(ctx, append(attrs, AttrRetryable.String(strconv.FormatBool(out.Retryable)))...)
	}
}

// RecordJob counts a finished job and its duration
func (m *SyncMetrics) RecordJob(ctx context.Context, summary integration.SyncSummary) {
	attrs := []attribute.KeyValue{
		AttrDirection.String(string(summary.Direction)),
		AttrJobStatus.String(string(summary.Status)),
	}
	m.jobs.Inc(ctx, attrs...)
	if summary.FinishedAt != nil {
		m.jobDuration.RecordDuration(ctx, summary.FinishedAt.Sub(summary.StartedAt), attrs...)
	}
}

// RecordLeaseContention counts a request rejected by a held lease
func (m *SyncMetrics) RecordLeaseContention(ctx context.Context, key integration.LeaseKey) {
	m.contention.Inc(ctx, AttrEntityType.String(string(key.EntityType)))
}

// RecordDegradedConversion counts a revenue conversion without a rate
func (m *SyncMetrics) RecordDegradedConversion(ctx context.Context, from, to valueobject.Currency) {
	m.degraded.Inc(ctx, AttrCurrency.String(string(from)), AttrTarget.String(string(to)))
}

// Close unregisters the pool callback
func (m *SyncMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func outcomeLabel(out integration.RecordOutcome) string {
	switch {
	case out.Deferred:
		return "deferred"
	case out.Error != "":
		return "failed"
	default:
		return "succeeded"
	}
}
