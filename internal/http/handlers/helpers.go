package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/ctxutil"
)

// callerFrom returns the identity set by the auth middleware. A zero Caller
// is rejected by every engine operation as unauthorized.
func callerFrom(c *gin.Context) validation.Caller {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		return validation.Caller{}
	}
	return validation.Caller{ID: rd.UserID, IsAdmin: rd.IsAdmin}
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// bindJSON decodes the request body into dst. An empty body leaves dst as is.
func bindJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}

func errMissing(field string) error {
	return apierr.Validation("%s is required", field)
}
