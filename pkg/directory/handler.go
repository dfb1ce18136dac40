package directory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/profiles"
	"launchpad/pkg/response"
)

type DirectoryHandler struct {
	service DirectoryService
	logger  *zap.Logger
}

func NewDirectoryHandler(service DirectoryService, logger *zap.Logger) *DirectoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryHandler{service: service, logger: logger}
}

func (h *DirectoryHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/directory/filters", h.listFilters)
	router.GET("/directory/:accType", h.browse)
	router.GET("/explore", h.explore)
	router.GET("/mentors", h.mentors)
}

// @Summary      List filter tags
// @Tags         directory
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /directory/filters [get]
func (h *DirectoryHandler) listFilters(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "filters fetched", KnownTags)
}

// @Summary      Browse a directory
// @Tags         directory
// @Produce      json
// @Param        accType  path  string true  "Account type"
// @Param        search   query string false "Email substring"
// @Param        sector   query []string false "Sector tag" collectionFormat(multi)
// @Param        stage    query []string false "Stage tag" collectionFormat(multi)
// @Param        industry query []string false "Industry tag" collectionFormat(multi)
// @Param        sort     query string false "email or revenue"
// @Param        order    query string false "asc or desc"
// @Success      200 {object} response.APIResponse{data=Result}
// @Failure      400 {object} response.APIResponse
// @Failure      503 {object} response.APIResponse
// @Router       /directory/{accType} [get]
func (h *DirectoryHandler) browse(c *gin.Context) {
	accType, err := profiles.ParseAccType(c.Param("accType"))
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
		return
	}
	h.serve(c, accType, SortNone)
}

// @Summary      Explore startups, ordered by email unless sort is given
// @Tags         directory
// @Produce      json
// @Success      200 {object} response.APIResponse{data=Result}
// @Router       /explore [get]
func (h *DirectoryHandler) explore(c *gin.Context) {
	h.serve(c, profiles.AccStartup, SortEmail)
}

// @Summary      Mentors, ordered by revenue unless sort is given
// @Tags         directory
// @Produce      json
// @Success      200 {object} response.APIResponse{data=Result}
// @Router       /mentors [get]
func (h *DirectoryHandler) mentors(c *gin.Context) {
	h.serve(c, profiles.AccMentor, SortRevenue)
}

func (h *DirectoryHandler) serve(c *gin.Context, accType profiles.AccType, defaultKey SortKey) {
	req, err := parseRequest(c, accType, defaultKey)
	if err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, err.Error(), nil)
		return
	}
	res, err := h.service.Browse(c.Request.Context(), req)
	if err != nil {
		code := response.StatusFor(err, http.StatusInternalServerError)
		h.logger.Error("directory browse failed", zap.String("acc_type", string(accType)), zap.Error(err))
		response.SendError(c, code, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "directory fetched", res)
}

func parseRequest(c *gin.Context, accType profiles.AccType, defaultKey SortKey) (Request, error) {
	req := Request{AccType: accType, Search: c.Query("search")}

	for _, cat := range []Category{CategorySector, CategoryStage, CategoryIndustry} {
		for _, v := range c.QueryArray(string(cat)) {
			if err := req.Filters.Apply(cat, v); err != nil {
				return Request{}, err
			}
		}
	}

	key := defaultKey
	if raw, ok := c.GetQuery("sort"); ok {
		k, err := ParseSortKey(raw)
		if err != nil {
			return Request{}, err
		}
		key = k
	}
	order, err := ParseSortOrder(c.Query("order"))
	if err != nil {
		return Request{}, err
	}
	req.Sort = Sort{Key: key, Order: order}
	return req, nil
}
