package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCursorLoop is reported when a remote listing hands back a cursor it already returned
var ErrCursorLoop = errors.New("integration: remote listing repeated a page cursor")

// EntityReconciler pushes and pulls the records of one entity type.
// Per-record failures are returned as outcomes, never as errors.
type EntityReconciler struct {
	binding EntityBinding
	states  integration.SyncStateRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewEntityReconciler creates a reconciler for the binding's entity type
func NewEntityReconciler(binding EntityBinding, states integration.SyncStateRepository, logger *zap.Logger) *EntityReconciler {
	return &EntityReconciler{
		binding: binding,
		states:  states,
		logger:  logger.With(zap.String("entity_type", binding.EntityType().String())),
		now:     time.Now,
	}
}

// EntityType returns the entity type handled by the reconciler
func (r *EntityReconciler) EntityType() integration.EntityType {
	return r.binding.EntityType()
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// Push propagates one local record to the remote platform: create when it has
// no remote id yet, update otherwise. The local record is never modified.
func (r *EntityReconciler) Push(ctx context.Context, client integration.RemoteClient, localID uuid.UUID) integration.RecordOutcome {
	et := r.EntityType()
	out := integration.RecordOutcome{EntityType: et, LocalID: localID}

	rec, err := r.binding.Load(ctx, localID)
	if err != nil {
		return r.failed(out, err)
	}
	state, err := r.loadOrNewState(ctx, rec)
	if err != nil {
		return r.failed(out, err)
	}
	retriedCreate := state.PreviousCreateFailed()

	if err := state.MarkPending(); err != nil {
		return r.failed(out, err)
	}
	if err := r.states.UpsertStatus(ctx, state); err != nil {
		return r.failed(out, fmt.Errorf("persist pending state: %w", err))
	}

	var result *integration.RemoteResult
	if state.HasRemoteID() {
		out.Operation = integration.OperationUpdate
		out.RemoteID = state.RemoteIDValue()
		result, err = client.Update(ctx, et, out.RemoteID, rec.Payload)
	} else {
		out.Operation = integration.OperationCreate
		result, err = r.create(ctx, client, rec.Payload, retriedCreate)
	}

	now := r.now()
	if err != nil {
		return r.recordFailure(ctx, out, state, err, now)
	}

	pending := *state
	if err := state.MarkSynced(result.RemoteID, now); err != nil {
		return r.recordFailure(ctx, out, &pending, err, now)
	}
	if err := r.states.UpsertStatus(ctx, state); err != nil {
		if errors.Is(err, integration.ErrDuplicateRemoteID) {
			return r.recordFailure(ctx, out, &pending, err, now)
		}
		return r.failed(out, fmt.Errorf("persist synced state: %w", err))
	}

	out.RemoteID = state.RemoteIDValue()
	out.Status = integration.SyncStatusSynced
	r.logger.Debug("Record pushed",
		zap.String("local_id", localID.String()),
		zap.String("remote_id", out.RemoteID),
		zap.String("operation", string(out.Operation)),
	)
	return out
}

// create sends a create call. When an earlier create of the same record
// failed, the remote platform is first probed by external reference so a
// record that was accepted before the error is adopted instead of duplicated.
func (r *EntityReconciler) create(ctx context.Context, client integration.RemoteClient, payload integration.Payload, retried bool) (*integration.RemoteResult, error) {
	et := r.EntityType()
	if retried {
		existing, err := client.FindByExternalRef(ctx, et, payload.ExternalReference())
		switch {
		case err == nil && existing.RemoteID != "":
			r.logger.Info("Adopting remote record created by an earlier attempt",
				zap.String("external_ref", payload.ExternalReference()),
				zap.String("remote_id", existing.RemoteID),
			)
			return client.Update(ctx, et, existing.RemoteID, payload)
		case err != nil && !errors.Is(err, integration.ErrRemoteNotFound):
			return nil, err
		}
	}
	return client.Create(ctx, et, payload)
}

// PushMany pushes the given records one by one. A failure never stops the loop.
func (r *EntityReconciler) PushMany(ctx context.Context, client integration.RemoteClient, localIDs []uuid.UUID, emit func(integration.RecordOutcome)) {
	for _, id := range localIDs {
		if err := ctx.Err(); err != nil {
			emit(r.failed(integration.RecordOutcome{EntityType: r.EntityType(), LocalID: id, Operation: integration.OperationSkip}, err))
			continue
		}
		emit(r.Push(ctx, client, id))
	}
}

// PushPending pushes every record of the store that is not_synced or pending,
// including records that never had a sync state.
func (r *EntityReconciler) PushPending(ctx context.Context, client integration.RemoteClient, storeID uuid.UUID, emit func(integration.RecordOutcome)) {
	ids, err := r.PendingIDs(ctx, storeID)
	if err != nil {
		emit(r.phaseFailure(fmt.Errorf("list pending %s records: %w", r.EntityType().Plural(), err)))
		return
	}
	r.PushMany(ctx, client, ids, emit)
}

// PendingIDs lists the local ids that still need a push
func (r *EntityReconciler) PendingIDs(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := r.binding.ListLocalIDs(ctx, storeID)
	if err != nil {
		return nil, err
	}
	states, err := r.states.ListByStore(ctx, r.EntityType(), storeID, integration.SyncStateFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*integration.SyncState, len(states))
	for _, st := range states {
		byID[st.LocalID] = st
	}

	pending := make([]uuid.UUID, 0)
	for _, id := range ids {
		st, ok := byID[id]
		if !ok || st.Status.NeedsPush() {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

// ---------------------------------------------------------------------------
// Retry
// ---------------------------------------------------------------------------

// CheckRetryable verifies a record exists and is in failed status
func (r *EntityReconciler) CheckRetryable(ctx context.Context, localID uuid.UUID) (*integration.SyncState, error) {
	if _, err := r.binding.Load(ctx, localID); err != nil {
		return nil, err
	}
	state, err := r.states.Get(ctx, r.EntityType(), localID)
	if err != nil {
		if errors.Is(err, integration.ErrSyncStateNotFound) {
			return nil, shared.NewDomainError(shared.CodePreconditionFailed,
				fmt.Sprintf("Only failed records can be retried; %s has never been synced", r.EntityType()))
		}
		return nil, err
	}
	if state.Status != integration.SyncStatusFailed {
		return nil, shared.NewDomainError(shared.CodePreconditionFailed,
			fmt.Sprintf("Only failed records can be retried; current status is %s", state.Status))
	}
	return state, nil
}

// Retry re-pushes a failed record. Any other status is rejected without a remote call.
func (r *EntityReconciler) Retry(ctx context.Context, client integration.RemoteClient, localID uuid.UUID) (integration.RecordOutcome, error) {
	if _, err := r.CheckRetryable(ctx, localID); err != nil {
		return integration.RecordOutcome{}, err
	}
	return r.Push(ctx, client, localID), nil
}

// ---------------------------------------------------------------------------
// Pull
// ---------------------------------------------------------------------------

// Pull walks the remote listing page by page and upserts every item locally.
// Local records missing from the listing are left untouched.
func (r *EntityReconciler) Pull(ctx context.Context, client integration.RemoteClient, scope StoreScope, emit func(integration.RecordOutcome)) {
	et := r.EntityType()
	cursor := ""
	seen := make(map[string]struct{})
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			emit(r.phaseFailure(err))
			return
		}
		page, err := client.List(ctx, et, cursor)
		if err != nil {
			emit(r.phaseFailure(fmt.Errorf("list remote %s: %w", et.Plural(), err)))
			return
		}
		pages++
		for _, item := range page.Items {
			emit(r.pullItem(ctx, scope, item))
		}
		if !page.HasMore() {
			r.logger.Debug("Pull finished", zap.Int("pages", pages))
			return
		}
		if _, dup := seen[page.NextCursor]; dup {
			emit(r.phaseFailure(fmt.Errorf("%w: %s", ErrCursorLoop, page.NextCursor)))
			return
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
}

func (r *EntityReconciler) pullItem(ctx context.Context, scope StoreScope, item integration.RemoteItem) integration.RecordOutcome {
	et := r.EntityType()
	out := integration.RecordOutcome{EntityType: et, RemoteID: item.RemoteID, Operation: integration.OperationPull}

	if item.DecodeErr != nil {
		return r.failed(out, item.DecodeErr)
	}
	if item.RemoteID == "" {
		return r.failed(out, fmt.Errorf("%w: remote item without id", integration.ErrRemoteInvalidResponse))
	}
	if item.Payload == nil || item.Payload.EntityType() != et {
		return r.failed(out, ErrPayloadMismatch)
	}

	state, err := r.states.FindByRemoteID(ctx, et, scope.StoreID, item.RemoteID)
	if err != nil && !errors.Is(err, integration.ErrSyncStateNotFound) {
		return r.failed(out, err)
	}
	if err != nil {
		state = nil
		id, ok, err := r.binding.FindByNaturalKey(ctx, scope.StoreID, item.Payload.NaturalKey())
		if err != nil {
			return r.failed(out, err)
		}
		if ok {
			out.LocalID = id
			if state, err = r.getState(ctx, id); err != nil {
				return r.failed(out, err)
			}
			if state == nil {
				if state, err = integration.NewSyncState(et, id, scope.StoreID, scope.TenantID); err != nil {
					return r.failed(out, err)
				}
			}
		}
	} else {
		out.LocalID = state.LocalID
	}

	if state != nil {
		if state.HasRemoteID() && state.RemoteIDValue() != item.RemoteID {
			return r.failed(out, fmt.Errorf("%w: have %s", integration.ErrRemoteIDConflict, state.RemoteIDValue()))
		}
		// Local edits not yet pushed win over the remote copy
		if state.HasRemoteID() && (state.Status == integration.SyncStatusPending || state.Status == integration.SyncStatusFailed) {
			out.Operation = integration.OperationSkip
			out.Status = state.Status
			return out
		}
	}

	var localID *uuid.UUID
	if state != nil {
		id := state.LocalID
		localID = &id
	}
	newID, _, err := r.binding.ApplyRemote(ctx, scope, localID, item.Payload)
	if err != nil && localID != nil && IsRecordNotFound(err) {
		// The sync state outlived its record; drop it and import the item again
		if _, derr := r.states.DeleteByLocalIDs(ctx, et, []uuid.UUID{*localID}); derr != nil {
			return r.failed(out, derr)
		}
		state = nil
		newID, _, err = r.binding.ApplyRemote(ctx, scope, nil, item.Payload)
	}
	if err != nil {
		return r.failed(out, err)
	}
	out.LocalID = newID

	if state == nil {
		if state, err = integration.NewSyncState(et, newID, scope.StoreID, scope.TenantID); err != nil {
			return r.failed(out, err)
		}
	}
	if err := state.ApplyPulled(item.RemoteID, r.now()); err != nil {
		return r.failed(out, err)
	}
	if err := r.states.UpsertStatus(ctx, state); err != nil {
		return r.failed(out, err)
	}
	out.Status = integration.SyncStatusSynced
	return out
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

// DeleteRemote deletes the remote copy of a record. Records without a remote
// id are skipped. A remote "not found" counts as deleted.
func (r *EntityReconciler) DeleteRemote(ctx context.Context, client integration.RemoteClient, localID uuid.UUID) integration.RecordOutcome {
	out := integration.RecordOutcome{EntityType: r.EntityType(), LocalID: localID, Operation: integration.OperationSkip}

	state, err := r.getState(ctx, localID)
	if err != nil {
		return r.failed(out, err)
	}
	if state == nil || !state.HasRemoteID() {
		return out
	}
	out.Operation = integration.OperationDelete
	out.RemoteID = state.RemoteIDValue()
	out.Status = state.Status

	if _, err := client.Delete(ctx, r.EntityType(), out.RemoteID); err != nil && !errors.Is(err, integration.ErrRemoteNotFound) {
		return r.failed(out, err)
	}
	return out
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func (r *EntityReconciler) getState(ctx context.Context, localID uuid.UUID) (*integration.SyncState, error) {
	state, err := r.states.Get(ctx, r.EntityType(), localID)
	if errors.Is(err, integration.ErrSyncStateNotFound) {
		return nil, nil
	}
	return state, err
}

func (r *EntityReconciler) loadOrNewState(ctx context.Context, rec *LocalRecord) (*integration.SyncState, error) {
	state, err := r.getState(ctx, rec.LocalID)
	if err != nil || state != nil {
		return state, err
	}
	return integration.NewSyncState(r.EntityType(), rec.LocalID, rec.StoreID, rec.TenantID)
}

// recordFailure stores a remote failure on the record and returns the outcome
func (r *EntityReconciler) recordFailure(ctx context.Context, out integration.RecordOutcome, state *integration.SyncState, cause error, at time.Time) integration.RecordOutcome {
	out = r.failed(out, cause)
	if err := state.MarkFailed(cause.Error(), at); err != nil {
		r.logger.Error("Cannot mark record failed", zap.String("local_id", out.LocalID.String()), zap.Error(err))
		return out
	}
	if err := r.states.UpsertStatus(ctx, state); err != nil {
		r.logger.Error("Cannot persist failed sync state", zap.String("local_id", out.LocalID.String()), zap.Error(err))
		return out
	}
	out.Status = integration.SyncStatusFailed
	return out
}

func (r *EntityReconciler) failed(out integration.RecordOutcome, err error) integration.RecordOutcome {
	out.Error = err.Error()
	out.Retryable = integration.IsRetryable(err)
	if out.Status == "" {
		out.Status = integration.SyncStatusFailed
	}
	r.logger.Warn("Record sync failed",
		zap.String("local_id", out.LocalID.String()),
		zap.String("remote_id", out.RemoteID),
		zap.String("operation", string(out.Operation)),
		zap.Bool("retryable", out.Retryable),
		zap.Error(err),
	)
	return out
}

func (r *EntityReconciler) phaseFailure(err error) integration.RecordOutcome {
	r.logger.Warn("Sync phase aborted", zap.Error(err))
	return integration.RecordOutcome{
		EntityType: r.EntityType(),
		Operation:  integration.OperationList,
		Status:     integration.SyncStatusFailed,
		Error:      err.Error(),
		Retryable:  integration.IsRetryable(err),
	}
}
