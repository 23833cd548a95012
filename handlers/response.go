package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/kate8382/error-logger-viewer/core"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondError(c *gin.Context, err error) {
	status := core.StatusCode(err)

	msg := err.Error()
	var re *core.RecordError
	if errors.As(err, &re) {
		msg = re.Message
	}
	if status >= 500 {
		log.Printf("[handlers] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.JSON(status, ErrorResponse{Error: msg, Code: core.WireCode(err)})
}

func respondInvalidBody(c *gin.Context, err error) {
	if gin.Mode() == gin.DebugMode {
		log.Printf("[handlers] invalid body on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	respondError(c, core.NewInvalidRequestError("Invalid JSON body"))
}
