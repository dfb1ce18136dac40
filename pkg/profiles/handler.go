package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

type ProfileHandler struct {
	service ProfileService
	logger  *zap.Logger
}

func NewProfileHandler(service ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{service: service, logger: logger}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/profiles/search", h.searchByEmail)
	router.GET("/profiles/:id", h.getProfile)

	me := router.Group("/profiles/me", session.Require())
	me.PUT("", h.updateProfile)
	me.POST("/logo", h.uploadLogo)
	me.POST("/series/:field", h.importSeries)
}

// @Summary      Get profile
// @Tags         profiles
// @Produce      json
// @Param        id path string true "Profile ID"
// @Success      200 {object} response.APIResponse{data=Profile}
// @Failure      404 {object} response.APIResponse
// @Router       /profiles/{id} [get]
func (h *ProfileHandler) getProfile(c *gin.Context) {
	p, err := h.service.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "profile fetched", p)
}

// @Summary      Search profiles by email prefix
// @Tags         profiles
// @Produce      json
// @Param        email query string true "Email prefix"
// @Success      200 {object} response.APIResponse{data=[]Profile}
// @Router       /profiles/search [get]
func (h *ProfileHandler) searchByEmail(c *gin.Context) {
	list, err := h.service.SearchByEmailPrefix(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "profiles fetched", list)
}

// @Summary      Update own profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request body UpdateRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=Profile}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /profiles/me [put]
func (h *ProfileHandler) updateProfile(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	p, err := h.service.UpdateProfile(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "profile updated", p)
}

// @Summary      Upload own logo
// @Tags         profiles
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "Logo image"
// @Success      200 {object} response.APIResponse{data=Profile}
// @Failure      400 {object} response.APIResponse
// @Router       /profiles/me/logo [post]
func (h *ProfileHandler) uploadLogo(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "image file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "cannot read image", nil)
		return
	}
	defer f.Close()

	p, err := h.service.UploadLogo(c.Request.Context(), session.FromContext(c), fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "logo uploaded", p)
}

// @Summary      Import a numeric series from CSV
// @Description  The first row is a header; the second column of each remaining row becomes one value.
// @Tags         profiles
// @Accept       multipart/form-data
// @Produce      json
// @Param        field path string true "Series name, e.g. T"
// @Param        file formData file true "CSV file"
// @Success      200 {object} response.APIResponse{data=[]number}
// @Failure      400 {object} response.APIResponse
// @Router       /profiles/me/series/{field} [post]
func (h *ProfileHandler) importSeries(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "csv file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "cannot read csv", nil)
		return
	}
	defer f.Close()

	values, err := h.service.ImportSeries(c.Request.Context(), session.FromContext(c), c.Param("field"), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "series imported", values)
}

func (h *ProfileHandler) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrProfileNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidAccType), errors.Is(err, ErrEmptySeries), errors.Is(err, ErrInvalidSeriesName):
		code = http.StatusBadRequest
	default:
		code = response.StatusFor(err, http.StatusInternalServerError)
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("profile request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.SendError(c, code, err)
}
