package integration

import (
	"context"

	"github.com/erp/storesync/internal/domain/integration"
)

// Metrics receives sync telemetry. telemetry.SyncMetrics implements it.
type Metrics interface {
	RecordOutcome(ctx context.Context, outcome integration.RecordOutcome)
	RecordJob(ctx context.Context, summary integration.SyncSummary)
	RecordLeaseContention(ctx context.Context, key integration.LeaseKey)
}

type noopMetrics struct{}

func (noopMetrics) RecordOutcome(context.Context, integration.RecordOutcome)    {}
func (noopMetrics) RecordJob(context.Context, integration.SyncSummary)          {}
func (noopMetrics) RecordLeaseContention(context.Context, integration.LeaseKey) {}
