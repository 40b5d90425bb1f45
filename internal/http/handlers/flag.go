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

type FlagService interface {
	Flag(ctx context.Context, caller validation.Caller, recognitionID uuid.UUID, flagType string, reason string) (*types.CorrectionRecord, error)
	ResolveCorrection(ctx context.Context, caller validation.Caller, correctionID uuid.UUID) (*types.CorrectionRecord, error)
}

type FlagHandler struct {
	log   *logger.Logger
	flags FlagService
}

func NewFlagHandler(log *logger.Logger, flags FlagService) *FlagHandler {
	return &FlagHandler{log: log.With("handler", "FlagHandler"), flags: flags}
}

type flagRequest struct {
	FlagType string `json:"flag_type"`
	Reason   string `json:"reason"`
}

// POST /api/recognitions/:id/flag
func (h *FlagHandler) Flag(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req flagRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	if req.FlagType == "" {
		response.RespondError(c, errMissing("flag_type"))
		return
	}
	rec, err := h.flags.Flag(c.Request.Context(), callerFrom(c), id, req.FlagType, req.Reason)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"correction": rec})
}

// POST /api/corrections/:id/resolve
func (h *FlagHandler) Resolve(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	rec, err := h.flags.ResolveCorrection(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"correction": rec})
}
