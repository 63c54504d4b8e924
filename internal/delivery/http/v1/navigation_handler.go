package v1

import (
	"net/http"

	"pharmacy-guard-backend/internal/delivery/http/middleware"
	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/pkg/apperror"
	"pharmacy-guard-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NavigationHandler struct {
	navUC domain.NavigationUsecase
}

func NewNavigationHandler(group *gin.RouterGroup, navUC domain.NavigationUsecase, limiter gin.HandlerFunc) {
	handler := &NavigationHandler{navUC: navUC}

	nav := group.Group("/navigation")
	{
		nav.GET("/routes", handler.Routes)
		nav.POST("/resolve", limiter, handler.Resolve)
		nav.DELETE("/mounts/:mount_id", handler.Reset)
	}
}

// Resolve godoc
// @Summary      Evaluate the route guard
// @Description  Reports the client's navigation state and returns whether it must redirect. Works signed in or signed out.
// @Tags         navigation
// @Accept       json
// @Produce      json
// @Param        request  body      domain.NavigationRequest  true  "Navigation state"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /navigation/resolve [post]
func (h *NavigationHandler) Resolve(c *gin.Context) {
	var req domain.NavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid navigation state", validation.FormatValidationErrors(err))
		return
	}

	decision, err := h.navUC.Resolve(c.Request.Context(), &req, middleware.CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	message := "No navigation needed"
	if decision.Redirected() {
		message = "Redirect required"
	}
	response.Success(c, http.StatusOK, message, decision)
}

// Reset godoc
// @Summary      Forget a client mount
// @Description  Clears the one-shot redirect latch of a client mount, e.g. on logout or unmount.
// @Tags         navigation
// @Produce      json
// @Param        mount_id  path      string  true  "Client mount UUID"
// @Success      200       {object}  response.Response
// @Failure      400       {object}  response.Response
// @Router       /navigation/mounts/{mount_id} [delete]
func (h *NavigationHandler) Reset(c *gin.Context) {
	mountID := c.Param("mount_id")
	if _, err := uuid.Parse(mountID); err != nil {
		_ = c.Error(apperror.BadRequest("mount_id must be a UUID"))
		return
	}
	if err := h.navUC.Reset(c.Request.Context(), mountID); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Navigation state cleared", nil)
}

// Routes godoc
// @Summary      Route table
// @Description  Lists the top-level screens and which role owns each protected group.
// @Tags         navigation
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /navigation/routes [get]
func (h *NavigationHandler) Routes(c *gin.Context) {
	response.Success(c, http.StatusOK, "Route table", h.navUC.Routes())
}
