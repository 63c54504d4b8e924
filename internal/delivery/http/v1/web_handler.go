package v1

import (
	"net/http"

	"pharmacy-guard-backend/internal/delivery/http/middleware"
	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/guard"

	"github.com/gin-gonic/gin"
)

type ScreenResponse struct {
	Screen   string   `json:"screen"`
	Segments []string `json:"segments"`
	Reason   string   `json:"reason"`
}

// NewWebShellHandler mounts the guarded web build. The route guard has
// already redirected anyone who does not belong on the requested screen.
func NewWebShellHandler(r *gin.Engine, basePath string, session gin.HandlerFunc) {
	shell := r.Group(basePath, session, middleware.RouteGuard(basePath))
	shell.GET("/*path", webScreen())
}

func webScreen() gin.HandlerFunc {
	return func(c *gin.Context) {
		segments := middleware.PathSegments(c.Param("path"))
		screen := ""
		if len(segments) > 0 {
			screen = segments[0]
		}
		d, _ := middleware.GuardDecision(c)
		if screen != "" && !guard.IsKnownSegment(screen) {
			response.Error(c, http.StatusNotFound, "Screen not found", nil)
			return
		}
		response.Success(c, http.StatusOK, "Screen", ScreenResponse{
			Screen:   screen,
			Segments: segments,
			Reason:   d.Reason,
		})
	}
}
