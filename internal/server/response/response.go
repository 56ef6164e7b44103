// Package response renders service results and errors as JSON.
package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/tembichat/internal/errors"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

// Error maps err to its status and writes the error body.
// Internal failures are logged with their cause and answered generically.
func Error(c *gin.Context, log *slog.Logger, err error) {
	e := svcErr.Map(err)
	status := svcErr.HTTPStatus(e)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: e.Message, Code: e.Code, Fields: e.Fields})
}

// BindJSON decodes the request body into dst. Unknown keys are ignored.
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return svcErr.InvalidArgument("request body must be valid JSON").Wrap(err)
	}
	return nil
}
