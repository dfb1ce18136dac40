package posts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

type PostHandler struct {
	service  PostService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewPostHandler(service PostService, logger *zap.Logger) *PostHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed is public and read-only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *PostHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/posts", h.listPosts)
	router.GET("/ws/posts", h.streamFeed)

	authed := router.Group("/posts", session.Require())
	authed.POST("", h.createPost)
	authed.POST("/:id/like", h.likePost)
	authed.GET("/liked", h.likedPosts)
}

// @Summary      Feed
// @Description  All posts, newest first.
// @Tags         posts
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Post}
// @Failure      503 {object} response.APIResponse
// @Router       /posts [get]
func (h *PostHandler) listPosts(c *gin.Context) {
	list, err := h.service.Feed(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "posts fetched", list)
}

// @Summary      Create post
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Param        image   formData file   true  "Image"
// @Param        caption formData string false "Caption"
// @Success      201 {object} response.APIResponse{data=Post}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /posts [post]
func (h *PostHandler) createPost(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, ErrImageMissing.Error(), nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "cannot read image", nil)
		return
	}
	defer f.Close()

	p, err := h.service.CreatePost(c.Request.Context(), session.FromContext(c), f, fh.Header.Get("Content-Type"), c.PostForm("caption"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "post created", p)
}

// @Summary      Like post
// @Tags         posts
// @Produce      json
// @Param        id path string true "Post ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /posts/{id}/like [post]
func (h *PostHandler) likePost(c *gin.Context) {
	if err := h.service.Like(c.Request.Context(), session.FromContext(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "post liked", nil)
}

// @Summary      Posts liked by the caller
// @Tags         posts
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]string}
// @Router       /posts/liked [get]
func (h *PostHandler) likedPosts(c *gin.Context) {
	ids, err := h.service.LikedPosts(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "liked posts fetched", ids)
}

// streamFeed writes the full feed as a JSON array on connect and after
// every change until the client goes away.
func (h *PostHandler) streamFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := h.service.SubscribeFeed(ctx)
	if err != nil {
		h.logger.Error("feed subscribe failed", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "feed unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer feed.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-feed.Updates():
			if !ok {
				if err := feed.Err(); err != nil {
					h.logger.Warn("feed ended", zap.Error(err))
				}
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(list); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *PostHandler) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrPostNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrAlreadyLiked):
		code = http.StatusConflict
	case errors.Is(err, ErrImageMissing), errors.Is(err, ErrCaptionTooLong):
		code = http.StatusBadRequest
	default:
		code = response.StatusFor(err, http.StatusInternalServerError)
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("post request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.SendError(c, code, err)
}
