package groups

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

type GroupHandler struct {
	service GroupService
	logger  *zap.Logger
}

func NewGroupHandler(service GroupService, logger *zap.Logger) *GroupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupHandler{service: service, logger: logger}
}

func (h *GroupHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/groups", h.listGroups)
	router.GET("/groups/:name/members", h.listMembers)

	authed := router.Group("/groups", session.Require())
	authed.POST("", h.createGroup)
	authed.POST("/:name/join", h.joinGroup)
	authed.GET("/:name/messages", h.listMessages)
	authed.POST("/:name/messages", h.postMessage)
}

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Group}
// @Router       /groups [get]
func (h *GroupHandler) listGroups(c *gin.Context) {
	list, err := h.service.ListGroups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "groups fetched", list)
}

// @Summary      Create group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body createGroupRequest true "Group name"
// @Success      201 {object} response.APIResponse{data=Group}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups [post]
func (h *GroupHandler) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	g, err := h.service.CreateGroup(c.Request.Context(), session.FromContext(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "group created", g)
}

// @Summary      Join group
// @Tags         groups
// @Produce      json
// @Param        name path string true "Group name"
// @Success      201 {object} response.APIResponse{data=Member}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{name}/join [post]
func (h *GroupHandler) joinGroup(c *gin.Context) {
	m, err := h.service.JoinGroup(c.Request.Context(), session.FromContext(c), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "joined group", m)
}

// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Param        name path string true "Group name"
// @Success      200 {object} response.APIResponse{data=[]Member}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{name}/members [get]
func (h *GroupHandler) listMembers(c *gin.Context) {
	list, err := h.service.ListMembers(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "members fetched", list)
}

// @Summary      Group messages
// @Description  Most recent messages, oldest first.
// @Tags         groups
// @Produce      json
// @Param        name  path  string true  "Group name"
// @Param        limit query int    false "Max messages (default 50, max 100)"
// @Success      200 {object} response.APIResponse{data=[]Message}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{name}/messages [get]
func (h *GroupHandler) listMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid limit", nil)
			return
		}
		limit = n
	}
	msgs, err := h.service.ListMessages(c.Request.Context(), session.FromContext(c), c.Param("name"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "messages fetched", msgs)
}

// @Summary      Post group message
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        name    path string             true "Group name"
// @Param        request body postMessageRequest true "Message"
// @Success      201 {object} response.APIResponse{data=Message}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{name}/messages [post]
func (h *GroupHandler) postMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	msg, err := h.service.PostMessage(c.Request.Context(), session.FromContext(c), c.Param("name"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "message sent", msg)
}

func (h *GroupHandler) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrGroupNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrDuplicateGroupName), errors.Is(err, ErrAlreadyMember):
		code = http.StatusConflict
	case errors.Is(err, ErrNotMember):
		code = http.StatusForbidden
	case errors.Is(err, ErrInvalidGroupName), errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		code = http.StatusBadRequest
	default:
		code = response.StatusFor(err, http.StatusInternalServerError)
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("group request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.SendError(c, code, err)
}
