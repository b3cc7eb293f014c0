package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
)

// RespondAppError maps the error's kind to a status and uses the kind as the
// code. Internal errors never leak their message.
func RespondAppError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, string(apperr.KindInternal), errInternal)
		return
	}
	RespondError(c, status, string(apperr.KindOf(err)), err)
}

type internalError struct{}

func (internalError) Error() string { return "internal server error" }

var errInternal error = internalError{}
