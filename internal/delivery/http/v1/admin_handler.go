package v1

import (
	"net/http"
	"strings"

	"pharmacy-guard-backend/internal/delivery/http/middleware"
	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	authUC domain.AuthUsecase
}

type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,valid_role"`
}

func NewAdminHandler(protected *gin.RouterGroup, authUC domain.AuthUsecase) {
	handler := &AdminHandler{authUC: authUC}

	admin := protected.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/users", handler.ListUsers)
		admin.PUT("/users/:id/role", handler.AssignRole)
	}
}

// ListUsers godoc
// @Summary      List users
// @Description  Lists users, optionally filtered by a comma separated role list
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  false  "Roles (admin, pharmacy_owner, delivery_person, customer)"
// @Success      200   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var roles []domain.Role
	for _, r := range strings.Split(c.Query("role"), ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, domain.Role(r))
		}
	}

	users, err := h.authUC.ListUsers(c.Request.Context(), roles)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users retrieved", users)
}

// AssignRole godoc
// @Summary      Assign role
// @Description  Moves a user to another role, which changes the route group the guard sends them to
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "User ID"
// @Param        request  body      AssignRoleRequest  true  "New role"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) AssignRole(c *gin.Context) {
	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid role", validation.FormatValidationErrors(err))
		return
	}

	if err := h.authUC.AssignRole(c.Request.Context(), c.Param("id"), domain.Role(req.Role)); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Role updated", nil)
}
