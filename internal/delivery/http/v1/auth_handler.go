package v1

import (
	"net/http"

	"pharmacy-guard-backend/internal/delivery/http/middleware"
	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/guard"
	"pharmacy-guard-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC domain.AuthUsecase
}

type MeResponse struct {
	User      *domain.User `json:"user"`
	Group     string       `json:"group"`
	Dashboard string       `json:"dashboard"`
}

type CheckEmailRequest struct {
	Email string `form:"email" binding:"required,email"`
}

type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

func NewAuthHandler(public, protected *gin.RouterGroup, authUC domain.AuthUsecase, limiter gin.HandlerFunc) {
	handler := &AuthHandler{authUC: authUC}

	// Public Routes
	publicAuth := public.Group("/auth")
	{
		// A verified token whose subject has no local user yet lands here.
		publicAuth.POST("/sync", handler.Sync)
		publicAuth.GET("/check-email", limiter, handler.CheckEmail)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

func meResponse(user *domain.User) MeResponse {
	return MeResponse{
		User:      user,
		Group:     guard.AuthorizedGroup(user.Role),
		Dashboard: guard.DashboardRoute(user.Role),
	}
}

// Sync godoc
// @Summary      Sync user
// @Description  Creates the local user for a verified access token on first sign-in (role customer) and returns it with its route group. Existing users keep their role.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /auth/sync [post]
func (h *AuthHandler) Sync(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, http.StatusUnauthorized, "Valid access token required", nil)
		return
	}

	// Role left empty so an existing user's role is never overwritten.
	user := &domain.User{ID: claims.Subject, Email: claims.Email}
	if err := h.authUC.EnsureUserExists(c.Request.Context(), user); err != nil {
		_ = c.Error(err)
		return
	}

	actualUser, err := h.authUC.GetCurrentUser(c.Request.Context(), claims.Subject)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User synced", meResponse(actualUser))
}

// CheckEmail godoc
// @Summary      Check email
// @Description  Reports whether an account already uses the email, for the registration screen
// @Tags         auth
// @Produce      json
// @Param        email  query     string  true  "Email"
// @Success      200    {object}  response.Response
// @Failure      400    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /auth/check-email [get]
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	var req CheckEmailRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid email", validation.FormatValidationErrors(err))
		return
	}

	exists, err := h.authUC.CheckEmailExists(c.Request.Context(), req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Email checked", CheckEmailResponse{Exists: exists})
}

// Me godoc
// @Summary      Current user
// @Description  Returns the signed-in user with the route group and dashboard their role maps to.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, "Current user", meResponse(middleware.CurrentUser(c)))
}
