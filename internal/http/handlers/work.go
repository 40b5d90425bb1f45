package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/http/response"
	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// WorkService is the slice of the validation engine the work routes drive.
type WorkService interface {
	Acquire(ctx context.Context, caller validation.Caller, filter validation.AcquireFilter) (*validation.ClaimResult, error)
	CurrentWork(ctx context.Context, caller validation.Caller) (*types.WorkLog, error)
	GetWorkLog(ctx context.Context, caller validation.Caller, workLogID uuid.UUID) (*types.WorkLog, error)
	ListSnapshots(ctx context.Context, caller validation.Caller, workLogID uuid.UUID) ([]*types.StepSnapshot, error)
	Advance(ctx context.Context, caller validation.Caller, workLogID uuid.UUID) (*validation.AdvanceResult, error)
	JumpTo(ctx context.Context, caller validation.Caller, workLogID uuid.UUID, target int) (*validation.JumpResult, error)
	Abandon(ctx context.Context, caller validation.Caller, workLogID uuid.UUID, reason string, requeue bool) (*validation.AbandonResult, error)
}

type WorkHandler struct {
	log  *logger.Logger
	work WorkService
}

func NewWorkHandler(log *logger.Logger, work WorkService) *WorkHandler {
	return &WorkHandler{log: log.With("handler", "WorkHandler"), work: work}
}

// POST /api/work/acquire
func (h *WorkHandler) Acquire(c *gin.Context) {
	var filter validation.AcquireFilter
	if err := bindJSON(c, &filter); err != nil {
		response.RespondError(c, err)
		return
	}
	res, err := h.work.Acquire(c.Request.Context(), callerFrom(c), filter)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if res == nil {
		response.RespondOK(c, gin.H{"work": nil, "resumed": false})
		return
	}
	response.RespondOK(c, res)
}

// GET /api/work/current
func (h *WorkHandler) Current(c *gin.Context) {
	wl, err := h.work.CurrentWork(c.Request.Context(), callerFrom(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"work": wl})
}

// GET /api/work/:id
func (h *WorkHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	wl, err := h.work.GetWorkLog(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"work": wl})
}

// GET /api/work/:id/snapshots
func (h *WorkHandler) Snapshots(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	snaps, err := h.work.ListSnapshots(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshots": snaps})
}

// POST /api/work/:id/advance
func (h *WorkHandler) Advance(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	res, err := h.work.Advance(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type jumpRequest struct {
	TargetIndex *int `json:"target_index"`
}

// POST /api/work/:id/jump
func (h *WorkHandler) Jump(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req jumpRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	if req.TargetIndex == nil {
		response.RespondError(c, errMissing("target_index"))
		return
	}
	res, err := h.work.JumpTo(c.Request.Context(), callerFrom(c), id, *req.TargetIndex)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type abandonRequest struct {
	Reason  string `json:"reason"`
	Requeue bool   `json:"requeue"`
}

// POST /api/work/:id/abandon
func (h *WorkHandler) Abandon(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req abandonRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	res, err := h.work.Abandon(c.Request.Context(), callerFrom(c), id, req.Reason, req.Requeue)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, res)
}
