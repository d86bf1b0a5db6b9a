package handler

import (
	"context"

	appintegration "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// entityTypeKey is set by EntityScope on routes that serve a single entity type
const entityTypeKey = "sync_entity_type"

// SyncService is the part of the sync orchestrator used over HTTP
type SyncService interface {
	StartSync(ctx context.Context, req appintegration.StartSyncRequest) (*appintegration.JobHandle, error)
	GetJob(id uuid.UUID) (integration.SyncSummary, error)
	ListJobs(storeID uuid.UUID) []integration.SyncSummary
	RetrySync(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (integration.RecordOutcome, error)
	GetSyncState(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, error)
	DeleteAllByStore(ctx context.Context, req appintegration.BulkDeleteRequest) (*integration.BulkDeleteResult, error)
	StoreSyncStatus(ctx context.Context, entityType integration.EntityType, storeID, orgID uuid.UUID) (*integration.StoreSyncStatus, error)
}

// SyncHandler handles sync jobs and per-record sync operations
type SyncHandler struct {
	BaseHandler
	sync SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// EntityScope binds the routes of a group to one entity type
func EntityScope(entityType integration.EntityType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(entityTypeKey, entityType)
		c.Next()
	}
}

func (h *SyncHandler) entityType(c *gin.Context) (integration.EntityType, bool) {
	if v, ok := c.Get(entityTypeKey); ok {
		if et, ok := v.(integration.EntityType); ok {
			return et, true
		}
	}
	et, err := integration.ParseEntityType(c.Param("entityType"))
	if err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return et, true
}

// StartSyncRequest is the body of a sync trigger
// @Description Request body for starting a store sync
type StartSyncRequest struct {
	RequestedBy string   `json:"requestedBy" binding:"required,min=1,max=200" example:"ops@acme.test"`
	Direction   string   `json:"direction" binding:"omitempty,oneof=pull push both" example:"both"`
	EntityTypes []string `json:"entityTypes" binding:"omitempty,dive,oneof=customer customers order orders" example:"customers"`
}

// StartSyncResponse acknowledges a queued sync job
// @Description Sync job accepted
type StartSyncResponse struct {
	Message string    `json:"message" example:"started"`
	JobID   uuid.UUID `json:"jobId"`
}

// BulkDeleteRequest is the body of a store-wide delete
// @Description Request body for deleting every record of a type from a store
type BulkDeleteRequest struct {
	PropagateRemote bool `json:"propagateRemote" example:"true"`
}

// StartSync godoc
// @ID           startStoreSync
// @Summary      Start a store sync
// @Description  Validates the store and organization, then queues a reconciliation job. The job runs in the background; poll /sync/jobs/{jobId} for the result.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        storeId path string true "Store ID" format(uuid)
// @Param        organizationId path string true "Organization ID" format(uuid)
// @Param        request body StartSyncRequest true "Sync request"
// @Success      202 {object} APIResponse[StartSyncResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /sync/{storeId}/{organizationId} [post]
func (h *SyncHandler) StartSync(c *gin.Context) {
	storeID, ok := parseUUIDParam(c, "storeId")
	if !ok {
		h.BadRequest(c, "Invalid store ID format")
		return
	}
	orgID, ok := parseUUIDParam(c, "organizationId")
	if !ok {
		h.BadRequest(c, "Invalid organization ID format")
		return
	}

	var req StartSyncRequest
	if !h.BindJSON(c, &req) {
		return
	}

	appReq := appintegration.StartSyncRequest{
		StoreID:        storeID,
		OrganizationID: orgID,
		RequestedBy:    req.RequestedBy,
		Direction:      integration.SyncDirection(req.Direction),
	}
	for _, raw := range req.EntityTypes {
		et, err := integration.ParseEntityType(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		appReq.EntityTypes = append(appReq.EntityTypes, et)
	}

	job, err := h.sync.StartSync(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, StartSyncResponse{Message: "started", JobID: job.ID})
}

// GetJob godoc
// @ID           getSyncJob
// @Summary      Get a sync job
// @Description  Returns the live or final summary of a sync job
// @Tags         sync
// @Produce      json
// @Param        jobId path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[integration.SyncSummary]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /sync/jobs/{jobId} [get]
func (h *SyncHandler) GetJob(c *gin.Context) {
	jobID, ok := parseUUIDParam(c, "jobId")
	if !ok {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	summary, err := h.sync.GetJob(jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// ListJobs godoc
// @ID           listSyncJobs
// @Summary      List recent sync jobs
// @Description  Lists the jobs kept in the in-memory history, newest first
// @Tags         sync
// @Produce      json
// @Param        storeId query string false "Only jobs of this store" format(uuid)
// @Success      200 {object} APIResponse[[]integration.SyncSummary]
// @Failure      400 {object} ErrorResponse
// @Router       /sync/jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	var storeID uuid.UUID
	if raw := c.Query("storeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid store ID format")
			return
		}
		storeID = id
	}

	jobs := h.sync.ListJobs(storeID)
	h.SuccessWithMeta(c, jobs, int64(len(jobs)), 1, len(jobs))
}

// RetrySync godoc
// @ID           retryRecordSync
// @Summary      Retry a failed record
// @Description  Pushes a record whose last sync failed. Records in any other status answer 412 and nothing is sent.
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        entityType path string true "Entity type" Enums(customers, orders)
// @Param        id path string true "Local record ID" format(uuid)
// @Success      200 {object} APIResponse[appintegration.SyncResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      412 {object} ErrorResponse
// @Router       /{entityType}/{id}/retry-sync [post]
func (h *SyncHandler) RetrySync(c *gin.Context) {
	entityType, ok := h.entityType(c)
	if !ok {
		return
	}
	localID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid record ID format")
		return
	}
	if _, ok := h.ownedState(c, entityType, localID); !ok {
		return
	}

	out, err := h.sync.RetrySync(c.Request.Context(), entityType, localID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.SyncResultFromOutcome(out))
}

// GetSyncState godoc
// @ID           getRecordSyncState
// @Summary      Get the sync state of a record
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        entityType path string true "Entity type" Enums(customers, orders)
// @Param        id path string true "Local record ID" format(uuid)
// @Success      200 {object} APIResponse[appintegration.SyncStateResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /{entityType}/{id}/sync-state [get]
func (h *SyncHandler) GetSyncState(c *gin.Context) {
	entityType, ok := h.entityType(c)
	if !ok {
		return
	}
	localID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid record ID format")
		return
	}

	state, ok := h.ownedState(c, entityType, localID)
	if !ok {
		return
	}
	h.Success(c, appintegration.ToSyncStateResponse(state))
}

// ownedState loads the sync state of a record and checks that it belongs to
// the calling organization. Records of other organizations read as missing.
func (h *SyncHandler) ownedState(c *gin.Context, entityType integration.EntityType, localID uuid.UUID) (*integration.SyncState, bool) {
	state, err := h.sync.GetSyncState(c.Request.Context(), entityType, localID)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	if orgID, err := getOrganizationID(c); err == nil && state.TenantID != orgID {
		h.NotFound(c, "Record not found")
		return nil, false
	}
	return state, true
}

// DeleteAllByStore godoc
// @ID           deleteRecordsByStore
// @Summary      Delete every record of a type from a store
// @Description  Lists the store's records, deletes them on the remote platform when propagateRemote is set, then deletes them locally. Remote failures are reported per record and never block the local delete.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        entityType path string true "Entity type" Enums(customers, orders)
// @Param        storeId path string true "Store ID" format(uuid)
// @Param        request body BulkDeleteRequest false "Delete options"
// @Success      200 {object} APIResponse[integration.BulkDeleteResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /{entityType}/store/{storeId} [delete]
func (h *SyncHandler) DeleteAllByStore(c *gin.Context) {
	entityType, ok := h.entityType(c)
	if !ok {
		return
	}
	storeID, ok := parseUUIDParam(c, "storeId")
	if !ok {
		h.BadRequest(c, "Invalid store ID format")
		return
	}

	var req BulkDeleteRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	orgID, _ := getOrganizationID(c)

	result, err := h.sync.DeleteAllByStore(c.Request.Context(), appintegration.BulkDeleteRequest{
		EntityType:      entityType,
		StoreID:         storeID,
		OrganizationID:  orgID,
		PropagateRemote: req.PropagateRemote,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// StoreSyncStatus godoc
// @ID           getStoreSyncStatus
// @Summary      Count the sync states of a store
// @Description  Returns the number of local records of the type and the number of sync states per status.
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string true "Organization ID"
// @Param        entityType path string true "Entity type" Enums(customers, orders)
// @Param        storeId path string true "Store ID" format(uuid)
// @Success      200 {object} APIResponse[integration.StoreSyncStatus]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /{entityType}/store/{storeId}/sync-status [get]
func (h *SyncHandler) StoreSyncStatus(c *gin.Context) {
	entityType, ok := h.entityType(c)
	if !ok {
		return
	}
	storeID, ok := parseUUIDParam(c, "storeId")
	if !ok {
		h.BadRequest(c, "Invalid store ID format")
		return
	}
	orgID, _ := getOrganizationID(c)

	status, err := h.sync.StoreSyncStatus(c.Request.Context(), entityType, storeID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
