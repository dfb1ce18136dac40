package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/profiles"
	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: service, logger: logger}
}

func (h *UserHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/users/signup", h.signup)
	router.POST("/users/login", h.login)
	router.POST("/users/logout", session.Require(), h.logout)
	router.GET("/users/me", session.Require(), h.me)
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AccType  string `json:"accType" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Sign up
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body signupRequest true "Signup request"
// @Success      201 {object} response.APIResponse{data=AuthResult}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /users/signup [post]
func (h *UserHandler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	res, err := h.service.Signup(c.Request.Context(), req.Email, req.Password, req.AccType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "user created", res)
}

// @Summary      Log in
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Login request"
// @Success      200 {object} response.APIResponse{data=AuthResult}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /users/login [post]
func (h *UserHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	res, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "login successful", res)
}

// @Summary      Log out
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /users/logout [post]
func (h *UserHandler) logout(c *gin.Context) {
	next, err := h.service.Logout(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	session.Set(c, next)
	response.SendAPIResponse(c, http.StatusOK, true, "logged out", nil)
}

// @Summary      Current account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=Account}
// @Failure      401 {object} response.APIResponse
// @Router       /users/me [get]
func (h *UserHandler) me(c *gin.Context) {
	a, err := h.service.Me(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "user fetched", a)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, session.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrEmailTaken):
		code = http.StatusConflict
	case errors.Is(err, ErrAccountNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword), errors.Is(err, profiles.ErrInvalidAccType):
		code = http.StatusBadRequest
	default:
		code = response.StatusFor(err, http.StatusInternalServerError)
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("user request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.SendError(c, code, err)
}
