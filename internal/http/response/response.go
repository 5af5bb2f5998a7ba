package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/platform/apierr"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps a service error onto its status and code. 5xx bodies carry
// the status text only; the cause is attached to the gin context for logging.
// A failed remote write surfaces as 503 remote_unavailable; the local value is already reverted.
func RespondErr(c *gin.Context, err error) {
	var remote *syncer.RemoteError
	if errors.As(err, &remote) {
		err = apierr.Unavailable("remote_unavailable", err)
	}
	ae := apierr.From(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, ae.Code, errors.New(http.StatusText(status)))
		return
	}
	RespondError(c, status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
