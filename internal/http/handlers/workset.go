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

type WorkingSetService interface {
	WorkingSet(ctx context.Context, caller validation.Caller, workLogID uuid.UUID) (*validation.WorkingSet, error)
	CreateItem(ctx context.Context, caller validation.Caller, workLogID uuid.UUID, in validation.ItemInput) (*types.WorkItem, error)
	UpdateItem(ctx context.Context, caller validation.Caller, workLogID, itemID uuid.UUID, patch validation.ItemPatch) (*types.WorkItem, error)
	DeleteItem(ctx context.Context, caller validation.Caller, workLogID, itemID uuid.UUID) error
	CreateAnnotation(ctx context.Context, caller validation.Caller, workLogID uuid.UUID, in validation.AnnotationInput) (*types.WorkAnnotation, error)
	UpdateAnnotation(ctx context.Context, caller validation.Caller, workLogID, annID uuid.UUID, patch validation.AnnotationPatch) (*types.WorkAnnotation, error)
	DeleteAnnotation(ctx context.Context, caller validation.Caller, workLogID, annID uuid.UUID) error
	ResetToInitial(ctx context.Context, caller validation.Caller, workLogID uuid.UUID) (*validation.WorkingSet, error)
}

type WorkingSetHandler struct {
	log *logger.Logger
	ws  WorkingSetService
}

func NewWorkingSetHandler(log *logger.Logger, ws WorkingSetService) *WorkingSetHandler {
	return &WorkingSetHandler{log: log.With("handler", "WorkingSetHandler"), ws: ws}
}

// GET /api/work/:id/items
func (h *WorkingSetHandler) List(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	set, err := h.ws.WorkingSet(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, set)
}

// POST /api/work/:id/items
func (h *WorkingSetHandler) CreateItem(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var in validation.ItemInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondError(c, err)
		return
	}
	item, err := h.ws.CreateItem(c.Request.Context(), callerFrom(c), id, in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// PATCH /api/work/:id/items/:itemId
func (h *WorkingSetHandler) UpdateItem(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var patch validation.ItemPatch
	if err := bindJSON(c, &patch); err != nil {
		response.RespondError(c, err)
		return
	}
	item, err := h.ws.UpdateItem(c.Request.Context(), callerFrom(c), id, itemID, patch)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// DELETE /api/work/:id/items/:itemId
func (h *WorkingSetHandler) DeleteItem(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.ws.DeleteItem(c.Request.Context(), callerFrom(c), id, itemID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/work/:id/annotations
func (h *WorkingSetHandler) CreateAnnotation(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var in validation.AnnotationInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondError(c, err)
		return
	}
	ann, err := h.ws.CreateAnnotation(c.Request.Context(), callerFrom(c), id, in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"annotation": ann})
}

// PATCH /api/work/:id/annotations/:annId
func (h *WorkingSetHandler) UpdateAnnotation(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	annID, err := uuidParam(c, "annId")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var patch validation.AnnotationPatch
	if err := bindJSON(c, &patch); err != nil {
		response.RespondError(c, err)
		return
	}
	ann, err := h.ws.UpdateAnnotation(c.Request.Context(), callerFrom(c), id, annID, patch)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"annotation": ann})
}

// DELETE /api/work/:id/annotations/:annId
func (h *WorkingSetHandler) DeleteAnnotation(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	annID, err := uuidParam(c, "annId")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.ws.DeleteAnnotation(c.Request.Context(), callerFrom(c), id, annID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/work/:id/reset
func (h *WorkingSetHandler) Reset(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	set, err := h.ws.ResetToInitial(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, set)
}
