package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-authgate/passport-local/internal/middleware"
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/internal/store"
	"github.com/go-authgate/passport-local/internal/templates"
	"github.com/go-authgate/passport-local/passport"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewAccountHandler(us *services.UserService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{userService: us, log: log}
}

func navbar(user *models.User, active string) templates.NavbarProps {
	return templates.NavbarProps{
		Username:   user.Username,
		IsAdmin:    user.IsAdmin(),
		ActiveLink: active,
	}
}

// Account shows the logged-in user's profile
func (h *AccountHandler) Account(c *gin.Context) {
	user := middleware.CurrentUser(c)
	templates.RenderTempl(c, http.StatusOK, templates.AccountPage(templates.AccountPageProps{
		BaseProps:   templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
		NavbarProps: navbar(user, "account"),
		User:        user,
		Notices:     passport.Flashes(c, FlashInfo),
	}))
}

// ListUsers shows the admin user listing
func (h *AccountHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(store.DefaultPageSize)))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))

	users, pagination, err := h.userService.ListUsers(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		templates.RenderError(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	templates.RenderTempl(c, http.StatusOK, templates.UsersPage(templates.UsersPageProps{
		BaseProps:   templates.BaseProps{CSRFToken: middleware.GetCSRFToken(c)},
		NavbarProps: navbar(middleware.CurrentUser(c), "users"),
		Users:       users,
		Pagination:  pagination,
		Search:      params.Search,
		PageSize:    params.PageSize,
	}))
}

// SetRole promotes or demotes a user. Admins cannot change their own role.
func (h *AccountHandler) SetRole(c *gin.Context) {
	id := c.Param("id")
	current := middleware.CurrentUser(c)
	if current != nil && current.ID == id {
		templates.RenderError(c, http.StatusBadRequest, "You cannot change your own role")
		return
	}

	user, err := h.userService.SetRole(c.Request.Context(), id, c.PostForm("role"))
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		templates.RenderError(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		_ = c.Error(err)
		templates.RenderError(c, http.StatusBadRequest, "Failed to update role")
		return
	}

	h.log.Info("user role changed",
		zap.String("user", user.Username),
		zap.String("role", user.Role),
		zap.String("by", current.Username))
	c.Redirect(http.StatusFound, "/admin/users")
}
