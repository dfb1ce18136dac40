package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/pkg/docstore"
	"launchpad/pkg/objectstore"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func SendAPIResponse(c *gin.Context, code int, success bool, message string, data any) {
	c.JSON(code, APIResponse{
		Success:   success,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	})
}

// StatusFor maps storage failures shared by every package onto HTTP codes.
// Errors it does not recognise get fallback.
func StatusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, docstore.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, objectstore.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

// SendError writes a failure envelope. Server-side failures get a generic
// message so internal details stay out of the response.
func SendError(c *gin.Context, code int, err error) {
	_ = c.Error(err)
	message := err.Error()
	switch code {
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusServiceUnavailable:
		message = "data store unavailable"
	}
	SendAPIResponse(c, code, false, message, nil)
}
