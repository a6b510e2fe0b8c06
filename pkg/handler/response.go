package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Message string `json:"message"`
}

// newErrorResponse logs the failure and aborts the request so no later
// handler writes a second body.
func newErrorResponse(c *gin.Context, statusCode int, message string) {
	logrus.Error(message)
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: message})
}

func okJSON(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, payload)
}
