package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError renders err with its taxonomy status. Anything outside the
// taxonomy is rendered as an internal error without its cause.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = &apierr.Error{Status: http.StatusInternalServerError, Code: apierr.CodeInternal, Message: "unknown error"}
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: ae.Error(),
			Code:    ae.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
