package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform envelope every bridge operation answers with.
// The UI never sees a transport error or a panic from this surface; any
// internal failure becomes {success:false, message}.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{Success: false, Message: message})
}
