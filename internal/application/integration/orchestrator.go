package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/erp/storesync/internal/domain/tenant"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueUnavailable is returned when the worker pool refuses a job
var ErrQueueUnavailable = shared.NewDomainError("SYNC_QUEUE_UNAVAILABLE", "Sync workers are busy, try again later")

// JobQueue runs submitted work on a background worker
type JobQueue interface {
	Submit(name string, run func(ctx context.Context)) error
}

// OrchestratorConfig holds the job limits
type OrchestratorConfig struct {
	// JobTimeout bounds a whole job
	JobTimeout time.Duration
	// LeaseTTL bounds how long a crashed job can keep a store locked
	LeaseTTL time.Duration
	// RecordLeaseTTL is the lease held while pushing a single record
	RecordLeaseTTL time.Duration
	// HistorySize is the number of jobs kept for status queries
	HistorySize int
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		JobTimeout:     30 * time.Minute,
		LeaseTTL:       31 * time.Minute,
		RecordLeaseTTL: 2 * time.Minute,
		HistorySize:    100,
	}
}

// StartSyncRequest asks for a sync job on one store
type StartSyncRequest struct {
	StoreID        uuid.UUID
	OrganizationID uuid.UUID
	RequestedBy    string
	Direction      integration.SyncDirection
	// EntityTypes limits the job; empty means every entity type
	EntityTypes []integration.EntityType
}

// BulkDeleteRequest asks to delete every record of one type from a store
type BulkDeleteRequest struct {
	EntityType integration.EntityType
	StoreID    uuid.UUID
	// OrganizationID, when set, must own the store
	OrganizationID  uuid.UUID
	PropagateRemote bool
}

// SyncOrchestrator validates sync requests synchronously and runs the
// reconciliation on the worker pool. Every job holds the (store, entity type)
// leases it touches for its whole run.
type SyncOrchestrator struct {
	orgs        tenant.OrganizationRepository
	stores      tenant.StoreRepository
	states      integration.SyncStateRepository
	clients     integration.RemoteClientFactory
	leases      integration.LeaseManager
	queue       JobQueue
	events      shared.EventPublisher
	metrics     Metrics
	registry    *JobRegistry
	reconcilers map[integration.EntityType]*EntityReconciler
	bindings    map[integration.EntityType]EntityBinding
	config      OrchestratorConfig
	logger      *zap.Logger
}

// OrchestratorDeps groups the collaborators of the orchestrator
type OrchestratorDeps struct {
	Organizations tenant.OrganizationRepository
	Stores        tenant.StoreRepository
	SyncStates    integration.SyncStateRepository
	Clients       integration.RemoteClientFactory
	Leases        integration.LeaseManager
	Queue         JobQueue
	Events        shared.EventPublisher
	Metrics       Metrics
	Bindings      []EntityBinding
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(deps OrchestratorDeps, config OrchestratorConfig, logger *zap.Logger) *SyncOrchestrator {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultOrchestratorConfig().JobTimeout
	}
	if config.LeaseTTL <= config.JobTimeout {
		config.LeaseTTL = config.JobTimeout + time.Minute
	}
	if config.RecordLeaseTTL <= 0 {
		config.RecordLeaseTTL = DefaultOrchestratorConfig().RecordLeaseTTL
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	o := &SyncOrchestrator{
		orgs:        deps.Organizations,
		stores:      deps.Stores,
		states:      deps.SyncStates,
		clients:     deps.Clients,
		leases:      deps.Leases,
		queue:       deps.Queue,
		events:      deps.Events,
		metrics:     deps.Metrics,
		registry:    NewJobRegistry(config.HistorySize),
		reconcilers: make(map[integration.EntityType]*EntityReconciler, len(deps.Bindings)),
		bindings:    make(map[integration.EntityType]EntityBinding, len(deps.Bindings)),
		config:      config,
		logger:      logger,
	}
	for _, b := range deps.Bindings {
		o.bindings[b.EntityType()] = b
		o.reconcilers[b.EntityType()] = NewEntityReconciler(b, deps.SyncStates, logger)
	}
	return o
}

// ---------------------------------------------------------------------------
// Sync jobs
// ---------------------------------------------------------------------------

// StartSync validates the request, acquires the store leases and hands the
// job to the worker pool. It returns as soon as the job is queued; setup
// failures are returned before any record is touched.
func (o *SyncOrchestrator) StartSync(ctx context.Context, req StartSyncRequest) (*JobHandle, error) {
	if err := o.normalizeRequest(&req); err != nil {
		return nil, err
	}

	org, store, err := o.resolveStore(ctx, req.StoreID, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	client, err := o.clientFor(store)
	if err != nil {
		return nil, err
	}

	leases, err := o.acquireLeases(ctx, store.ID, req.EntityTypes, o.config.LeaseTTL)
	if err != nil {
		return nil, err
	}

	handle := newJobHandle(integration.SyncSummary{
		JobID:          uuid.New(),
		StoreID:        store.ID,
		OrganizationID: org.ID,
		Direction:      req.Direction,
		RequestedBy:    req.RequestedBy,
		Status:         integration.JobStatusQueued,
		StartedAt:      time.Now(),
	})
	o.registry.Add(handle)

	scope := StoreScope{StoreID: store.ID, TenantID: org.ID, DefaultCurrency: store.DefaultCurrency}
	run := func(workerCtx context.Context) {
		o.runJob(workerCtx, handle, client, scope, req, leases)
	}
	if err := o.queue.Submit(handle.ID.String(), run); err != nil {
		o.registry.Remove(handle.ID)
		o.releaseLeases(leases)
		o.logger.Warn("Sync job rejected by worker pool", zap.String("store_id", store.ID.String()), zap.Error(err))
		return nil, shared.WrapDomainError(ErrQueueUnavailable.Code, ErrQueueUnavailable.Message, err)
	}

	o.logger.Info("Sync job queued",
		zap.String("job_id", handle.ID.String()),
		zap.String("store_id", store.ID.String()),
		zap.String("organization_id", org.ID.String()),
		zap.String("direction", string(req.Direction)),
		zap.String("requested_by", req.RequestedBy),
	)
	return handle, nil
}

func (o *SyncOrchestrator) normalizeRequest(req *StartSyncRequest) error {
	if req.StoreID == uuid.Nil || req.OrganizationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "storeId and organizationId are required")
	}
	req.RequestedBy = strings.TrimSpace(req.RequestedBy)
	if req.RequestedBy == "" {
		return shared.NewDomainError(shared.CodeValidation, "requestedBy is required")
	}
	if req.Direction == "" {
		req.Direction = integration.SyncDirectionBoth
	}
	if !req.Direction.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Invalid sync direction %q", req.Direction))
	}
	if len(req.EntityTypes) == 0 {
		req.EntityTypes = integration.AllEntityTypes()
	}
	// Keep the canonical processing order and drop duplicates
	wanted := make(map[integration.EntityType]bool, len(req.EntityTypes))
	for _, et := range req.EntityTypes {
		if _, ok := o.reconcilers[et]; !ok {
			return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Unsupported entity type %q", et))
		}
		wanted[et] = true
	}
	ordered := make([]integration.EntityType, 0, len(wanted))
	for _, et := range integration.AllEntityTypes() {
		if wanted[et] {
			ordered = append(ordered, et)
		}
	}
	req.EntityTypes = ordered
	return nil
}

// runJob executes a job on a worker. Outcomes flow over a channel to the
// supervisor goroutine, which owns the summary.
func (o *SyncOrchestrator) runJob(
	ctx context.Context,
	handle *JobHandle,
	client integration.RemoteClient,
	scope StoreScope,
	req StartSyncRequest,
	leases []*integration.Lease,
) {
	ctx, cancel := context.WithTimeout(ctx, o.config.JobTimeout)
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "sync.job",
		telemetry.WithAttribute(telemetry.SpanAttrJobID, handle.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, scope.StoreID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOrgID, scope.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrDirection, string(req.Direction)),
	)
	defer span.End()

	handle.update(func(s *integration.SyncSummary) {
		s.Status = integration.JobStatusRunning
		s.StartedAt = time.Now()
	})
	o.publish(ctx, integration.NewSyncJobStartedEvent(handle.ID, scope.TenantID, scope.StoreID, req.Direction, req.RequestedBy))

	outcomes := make(chan integration.RecordOutcome, 64)
	supervised := make(chan struct{})
	go o.supervise(ctx, handle, scope, outcomes, supervised)

	emit := func(out integration.RecordOutcome) { outcomes <- out }
	labels := map[string]string{
		telemetry.ProfilingLabelOperation: "sync_job",
		telemetry.ProfilingLabelDirection: string(req.Direction),
	}
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("Sync job panicked", zap.String("job_id", handle.ID.String()), zap.Any("panic", r))
				emit(integration.RecordOutcome{Operation: integration.OperationList, Error: fmt.Sprintf("job panic: %v", r)})
			}
		}()
		if req.Direction.Pulls() {
			for _, et := range req.EntityTypes {
				o.reconcilers[et].Pull(ctx, client, scope, emit)
			}
		}
		if req.Direction.Pushes() {
			for _, et := range req.EntityTypes {
				o.reconcilers[et].PushPending(ctx, client, scope.StoreID, emit)
			}
		}
	})
	close(outcomes)
	<-supervised

	summary := handle.finish(time.Now())
	telemetry.SetAttributes(span, "sync.total", summary.Total, "sync.failed", summary.Failed, "sync.status", string(summary.Status))
	if summary.Status == integration.JobStatusFailed {
		telemetry.RecordError(span, fmt.Errorf("sync job failed: %d of %d records", summary.Failed, summary.Total))
	}
	o.releaseLeases(leases)
	doneCtx := context.WithoutCancel(ctx)
	o.metrics.RecordJob(doneCtx, summary)
	o.publish(doneCtx, integration.NewSyncJobCompletedEvent(summary))
	handle.markDone()
	o.logger.Info("Sync job finished",
		zap.String("job_id", summary.JobID.String()),
		zap.String("store_id", summary.StoreID.String()),
		zap.String("status", string(summary.Status)),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration()),
	)
}

func (o *SyncOrchestrator) supervise(
	ctx context.Context,
	handle *JobHandle,
	scope StoreScope,
	outcomes <-chan integration.RecordOutcome,
	done chan<- struct{},
) {
	defer close(done)
	for out := range outcomes {
		handle.update(func(s *integration.SyncSummary) { s.Add(out) })
		o.metrics.RecordOutcome(ctx, out)
		if !out.Succeeded() {
			o.publish(context.WithoutCancel(ctx), integration.NewSyncRecordOutcomeEvent(handle.ID, scope.TenantID, scope.StoreID, out))
		}
	}
}

// GetJob returns the summary of a known job
func (o *SyncOrchestrator) GetJob(id uuid.UUID) (integration.SyncSummary, error) {
	h, ok := o.registry.Get(id)
	if !ok {
		return integration.SyncSummary{}, shared.NewDomainError(shared.CodeNotFound, "Sync job not found")
	}
	return h.Summary(), nil
}

// ListJobs returns recent job summaries, optionally for one store
func (o *SyncOrchestrator) ListJobs(storeID uuid.UUID) []integration.SyncSummary {
	return o.registry.ListByStore(storeID)
}

// ---------------------------------------------------------------------------
// Single record operations
// ---------------------------------------------------------------------------

// PushRecord pushes one record right after a local write. When a job holds
// the store lease, the record is left pending and the outcome is deferred;
// the job's push phase picks it up. Only lookup failures return an error.
func (o *SyncOrchestrator) PushRecord(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error) {
	rec, err := o.reconciler(entityType)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	local, err := o.bindings[entityType].Load(ctx, localID)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	store, err := o.stores.FindByID(ctx, local.StoreID)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	client, err := o.clientFor(store)
	if err != nil {
		return integration.RecordOutcome{}, err
	}

	lease, err := o.leases.Acquire(ctx, integration.LeaseKey{StoreID: store.ID, EntityType: entityType}, o.config.RecordLeaseTTL)
	if err != nil {
		if errors.Is(err, integration.ErrLeaseHeld) {
			o.metrics.RecordLeaseContention(ctx, integration.LeaseKey{StoreID: store.ID, EntityType: entityType})
			return o.deferPush(ctx, local, entityType), nil
		}
		return integration.RecordOutcome{}, err
	}
	defer o.releaseLeases([]*integration.Lease{lease})

	out := rec.Push(ctx, client, localID)
	o.metrics.RecordOutcome(ctx, out)
	if !out.Succeeded() {
		o.publish(ctx, integration.NewSyncRecordOutcomeEvent(uuid.Nil, local.TenantID, store.ID, out))
	}
	return out, nil
}

func (o *SyncOrchestrator) deferPush(ctx context.Context, local *LocalRecord, entityType integration.EntityType) integration.RecordOutcome {
	out := integration.RecordOutcome{
		EntityType: entityType,
		LocalID:    local.LocalID,
		Operation:  integration.OperationSkip,
		Status:     integration.SyncStatusPending,
		Deferred:   true,
	}
	state, err := o.reconcilers[entityType].loadOrNewState(ctx, local)
	if err == nil {
		err = state.MarkPending()
	}
	if err == nil {
		err = o.states.UpsertStatus(ctx, state)
	}
	if err != nil {
		o.logger.Warn("Cannot mark deferred record pending", zap.String("local_id", local.LocalID.String()), zap.Error(err))
		out.Error = err.Error()
		out.Status = integration.SyncStatusFailed
		return out
	}
	out.RemoteID = state.RemoteIDValue()
	return out
}

// RetrySync re-pushes a record in failed status. Any other status is a
// precondition failure and no remote call is made.
func (o *SyncOrchestrator) RetrySync(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error) {
	rec, err := o.reconciler(entityType)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	state, err := rec.CheckRetryable(ctx, localID)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	store, err := o.stores.FindByID(ctx, state.StoreID)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	client, err := o.clientFor(store)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	leases, err := o.acquireLeases(ctx, store.ID, []integration.EntityType{entityType}, o.config.RecordLeaseTTL)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	defer o.releaseLeases(leases)

	out, err := rec.Retry(ctx, client, localID)
	if err != nil {
		return integration.RecordOutcome{}, err
	}
	o.metrics.RecordOutcome(ctx, out)
	return out, nil
}

// GetSyncState returns the sync state of a record. Records that were never
// synced report not_synced.
func (o *SyncOrchestrator) GetSyncState(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, error) {
	rec, err := o.reconciler(entityType)
	if err != nil {
		return nil, err
	}
	local, err := o.bindings[entityType].Load(ctx, localID)
	if err != nil {
		return nil, err
	}
	return rec.loadOrNewState(ctx, local)
}

// MarkChanged flags a locally edited record for the next push. A synced or
// failed record goes back to pending so a pull keeps the local edit; records
// without a state are already in the push set.
func (o *SyncOrchestrator) MarkChanged(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) error {
	rec, err := o.reconciler(entityType)
	if err != nil {
		return err
	}
	state, err := rec.getState(ctx, localID)
	if err != nil || state == nil {
		return err
	}
	if state.Status != integration.SyncStatusSynced && state.Status != integration.SyncStatusFailed {
		return nil
	}
	if err := state.MarkPending(); err != nil {
		return err
	}
	if err := o.states.UpsertStatus(ctx, state); err != nil {
		return err
	}
	o.logger.Debug("Record marked pending after local edit",
		zap.String("entity_type", entityType.String()),
		zap.String("local_id", localID.String()))
	return nil
}

// StoreSyncStatus counts the sync states of one entity type in a store. A
// non-nil organization must own the store.
func (o *SyncOrchestrator) StoreSyncStatus(ctx context.Context, entityType integration.EntityType, storeID, orgID uuid.UUID) (*integration.StoreSyncStatus, error) {
	if _, err := o.reconciler(entityType); err != nil {
		return nil, err
	}
	store, err := o.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if orgID != uuid.Nil && !store.BelongsTo(orgID) {
		return nil, tenant.ErrStoreNotFound
	}
	ids, err := o.bindings[entityType].ListLocalIDs(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list %s of store: %w", entityType.Plural(), err)
	}
	counts, err := o.states.CountByStatus(ctx, entityType, store.ID)
	if err != nil {
		return nil, fmt.Errorf("count %s sync states: %w", entityType, err)
	}
	return &integration.StoreSyncStatus{
		EntityType: entityType,
		StoreID:    store.ID,
		Records:    len(ids),
		Counts:     counts,
	}, nil
}

// ---------------------------------------------------------------------------
// Deletes
// ---------------------------------------------------------------------------

// DeleteAllByStore deletes every record of one type from a store. The affected
// records are listed first, remote deletes are attempted one by one with
// failure isolation, then local records are removed in bulk. Local deletion
// does not depend on remote outcomes. A record whose remote delete failed
// with a retryable error keeps its sync state, marked failed.
func (o *SyncOrchestrator) DeleteAllByStore(ctx context.Context, req BulkDeleteRequest) (*integration.BulkDeleteResult, error) {
	rec, err := o.reconciler(req.EntityType)
	if err != nil {
		return nil, err
	}
	if req.StoreID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "storeId is required")
	}
	store, err := o.stores.FindByID(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != uuid.Nil && !store.BelongsTo(req.OrganizationID) {
		return nil, tenant.ErrStoreNotFound
	}

	var client integration.RemoteClient
	if req.PropagateRemote {
		if client, err = o.clientFor(store); err != nil {
			return nil, err
		}
	}

	leases, err := o.acquireLeases(ctx, store.ID, []integration.EntityType{req.EntityType}, o.config.LeaseTTL)
	if err != nil {
		return nil, err
	}
	defer o.releaseLeases(leases)

	binding := o.bindings[req.EntityType]
	ids, err := binding.ListLocalIDs(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list %s of store: %w", req.EntityType.Plural(), err)
	}

	result := &integration.BulkDeleteResult{
		EntityType: req.EntityType,
		StoreID:    store.ID,
		Total:      len(ids),
		RemoteSync: integration.RemoteSyncReport{Errors: make([]integration.RecordError, 0)},
	}

	// Records whose remote delete may still succeed keep their state
	orphans := make(map[uuid.UUID]integration.RecordOutcome)
	if req.PropagateRemote {
		for _, id := range ids {
			out := rec.DeleteRemote(ctx, client, id)
			o.metrics.RecordOutcome(ctx, out)
			switch {
			case out.Error != "":
				result.RemoteSync.Failed++
				result.RemoteSync.Errors = append(result.RemoteSync.Errors, integration.NewRecordError(out))
				if out.Retryable && out.RemoteID != "" {
					orphans[id] = out
				}
			case out.Operation == integration.OperationSkip:
				result.RemoteSync.Skipped++
			default:
				result.RemoteSync.Synced++
			}
		}
	} else {
		result.RemoteSync.Skipped = len(ids)
	}

	deleted, err := binding.DeleteByStore(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("delete %s of store: %w", req.EntityType.Plural(), err)
	}
	result.DeletedCount = deleted

	o.keepOrphans(ctx, req.EntityType, orphans)
	gone := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := orphans[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if _, err := o.states.DeleteByLocalIDs(ctx, req.EntityType, gone); err != nil {
			o.logger.Error("Cannot remove sync states after bulk delete",
				zap.String("store_id", store.ID.String()),
				zap.String("entity_type", req.EntityType.String()),
				zap.Error(err),
			)
		}
	}

	o.publish(ctx, integration.NewBulkDeleteCompletedEvent(store.OrganizationID, *result))
	o.logger.Info("Bulk delete finished",
		zap.String("store_id", store.ID.String()),
		zap.String("entity_type", req.EntityType.String()),
		zap.Int64("deleted", result.DeletedCount),
		zap.Int("remote_synced", result.RemoteSync.Synced),
		zap.Int("remote_failed", result.RemoteSync.Failed),
	)
	return result, nil
}

// keepOrphans marks the states of deleted records whose remote copy is still
// there as failed. The remote id stays mapped, and a failed state with a
// remote id is skipped by pull, so the deleted record is not re-imported.
func (o *SyncOrchestrator) keepOrphans(ctx context.Context, entityType integration.EntityType, orphans map[uuid.UUID]integration.RecordOutcome) {
	for id, out := range orphans {
		state, err := o.states.Get(ctx, entityType, id)
		if err == nil {
			err = state.MarkPending()
		}
		if err == nil {
			err = state.MarkFailed("remote delete failed: "+out.Error, time.Now())
		}
		if err == nil {
			err = o.states.UpsertStatus(ctx, state)
		}
		if err != nil {
			o.logger.Warn("Cannot keep sync state of remote orphan",
				zap.String("local_id", id.String()),
				zap.String("remote_id", out.RemoteID),
				zap.Error(err),
			)
		}
	}
}

// DeleteRecord deletes one local record, optionally deleting its remote copy
// first. The local delete happens whatever the remote outcome.
func (o *SyncOrchestrator) DeleteRecord(ctx context.Context, entityType integration.EntityType, localID uuid.UUID, propagateRemote bool) (*integration.RecordOutcome, error) {
	rec, err := o.reconciler(entityType)
	if err != nil {
		return nil, err
	}
	binding := o.bindings[entityType]
	local, err := binding.Load(ctx, localID)
	if err != nil {
		return nil, err
	}

	var out *integration.RecordOutcome
	if propagateRemote {
		store, err := o.stores.FindByID(ctx, local.StoreID)
		if err != nil {
			return nil, err
		}
		client, err := o.clientFor(store)
		if err != nil {
			return nil, err
		}
		leases, err := o.acquireLeases(ctx, store.ID, []integration.EntityType{entityType}, o.config.RecordLeaseTTL)
		if err != nil {
			return nil, err
		}
		defer o.releaseLeases(leases)

		res := rec.DeleteRemote(ctx, client, localID)
		o.metrics.RecordOutcome(ctx, res)
		out = &res
	}

	if err := binding.DeleteLocal(ctx, localID); err != nil {
		return out, err
	}
	if _, err := o.states.DeleteByLocalIDs(ctx, entityType, []uuid.UUID{localID}); err != nil {
		o.logger.Warn("Cannot remove sync state", zap.String("local_id", localID.String()), zap.Error(err))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (o *SyncOrchestrator) reconciler(entityType integration.EntityType) (*EntityReconciler, error) {
	rec, ok := o.reconcilers[entityType]
	if !ok {
		return nil, shared.WrapDomainError(shared.CodeValidation, fmt.Sprintf("Unsupported entity type %q", entityType), integration.ErrInvalidEntityType)
	}
	return rec, nil
}

// resolveStore loads the organization and a store that belongs to it
func (o *SyncOrchestrator) resolveStore(ctx context.Context, storeID, orgID uuid.UUID) (*tenant.Organization, *tenant.Store, error) {
	org, err := o.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	store, err := o.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, nil, err
	}
	if !store.BelongsTo(org.ID) {
		return nil, nil, tenant.ErrStoreNotFound
	}
	if !store.Active || !org.Active {
		return nil, nil, tenant.ErrStoreInactive
	}
	return org, store, nil
}

// clientFor builds a fresh remote client from the store's credentials
func (o *SyncOrchestrator) clientFor(store *tenant.Store) (integration.RemoteClient, error) {
	creds, err := store.Credentials()
	if err != nil {
		return nil, err
	}
	client, err := o.clients.NewClient(creds)
	if err != nil {
		return nil, shared.WrapDomainError(tenant.ErrStoreNoCredentials.Code, tenant.ErrStoreNoCredentials.Message, err)
	}
	return client, nil
}

// acquireLeases takes every lease or none
func (o *SyncOrchestrator) acquireLeases(ctx context.Context, storeID uuid.UUID, types []integration.EntityType, ttl time.Duration) ([]*integration.Lease, error) {
	acquired := make([]*integration.Lease, 0, len(types))
	for _, et := range types {
		key := integration.LeaseKey{StoreID: storeID, EntityType: et}
		lease, err := o.leases.Acquire(ctx, key, ttl)
		if err != nil {
			o.releaseLeases(acquired)
			if errors.Is(err, integration.ErrLeaseHeld) {
				o.metrics.RecordLeaseContention(ctx, key)
				return nil, shared.WrapDomainError(shared.CodeSyncInProgress,
					fmt.Sprintf("A synchronization of %s is already running for this store", et.Plural()), err)
			}
			return nil, fmt.Errorf("acquire sync lease %s: %w", key, err)
		}
		acquired = append(acquired, lease)
	}
	return acquired, nil
}

func (o *SyncOrchestrator) releaseLeases(leases []*integration.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, l := range leases {
		if err := o.leases.Release(ctx, l); err != nil {
			o.logger.Warn("Cannot release sync lease", zap.String("key", l.Key.String()), zap.Error(err))
		}
	}
}

func (o *SyncOrchestrator) publish(ctx context.Context, events ...shared.DomainEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.logger.Warn("Cannot publish sync event", zap.Error(err))
	}
}
