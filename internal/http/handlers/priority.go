package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/http/response"
	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type PriorityService interface {
	ActivePriorities(ctx context.Context) ([]*types.PriorityConfig, error)
	ReplacePriorities(ctx context.Context, caller validation.Caller, entries []validation.PriorityEntry) ([]*types.PriorityConfig, error)
}

type PriorityHandler struct {
	log        *logger.Logger
	priorities PriorityService
}

func NewPriorityHandler(log *logger.Logger, priorities PriorityService) *PriorityHandler {
	return &PriorityHandler{log: log.With("handler", "PriorityHandler"), priorities: priorities}
}

// GET /api/priorities
func (h *PriorityHandler) List(c *gin.Context) {
	rows, err := h.priorities.ActivePriorities(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"priorities": rows})
}

type replacePrioritiesRequest struct {
	Priorities []validation.PriorityEntry `json:"priorities"`
}

// PUT /api/priorities
func (h *PriorityHandler) Replace(c *gin.Context) {
	var req replacePrioritiesRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	rows, err := h.priorities.ReplacePriorities(c.Request.Context(), callerFrom(c), req.Priorities)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"priorities": rows})
}
