package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/docstore"
	"launchpad/pkg/profiles"
	"launchpad/pkg/response"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) LoadByAccType(ctx context.Context, accType profiles.AccType) ([]profiles.Profile, error) {
	args := m.Called(ctx, accType)
	list, _ := args.Get(0).([]profiles.Profile)
	return list, args.Error(1)
}

func setupRouter(loader Loader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewDirectoryHandler(NewDirectoryService(loader, nil), nil).RegisterRoutes(r)
	return r
}

type browseResponse struct {
	response.APIResponse
	Data Result `json:"data"`
}

func get(t *testing.T, r *gin.Engine, url string) (*httptest.ResponseRecorder, browseResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	var resp browseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestDirectoryHandler_BrowseWithFilters(t *testing.T) {
	loader := new(mockLoader)
	loader.On("LoadByAccType", mock.Anything, profiles.AccStartup).Return([]profiles.Profile{
		startup("c@x.com", "yoga", "scaling", ""),
		startup("a@x.com", "yoga", "ideation", ""),
		startup("b@x.com", "unani", "scaling", ""),
	}, nil)
	r := setupRouter(loader)

	w, resp := get(t, r, "/directory/startup?sector=Yoga&sort=email&order=desc")

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)
	require.Equal(t, 3, resp.Data.Total)
	require.Equal(t, []string{"c@x.com", "a@x.com"}, emails(resp.Data.Profiles))
	require.Equal(t, []string{"yoga"}, resp.Data.Filters.Sectors)
	loader.AssertExpectations(t)
}

func TestDirectoryHandler_MentorsDefaultToRevenue(t *testing.T) {
	loader := new(mockLoader)
	loader.On("LoadByAccType", mock.Anything, profiles.AccMentor).Return([]profiles.Profile{
		{Email: "rich@x.com", Revenue: rev(90)},
		{Email: "poor@x.com"},
	}, nil)
	r := setupRouter(loader)

	_, resp := get(t, r, "/mentors")
	require.Equal(t, []string{"poor@x.com", "rich@x.com"}, emails(resp.Data.Profiles))

	_, resp = get(t, r, "/mentors?order=desc")
	require.Equal(t, []string{"rich@x.com", "poor@x.com"}, emails(resp.Data.Profiles))
}

func TestDirectoryHandler_BadInput(t *testing.T) {
	loader := new(mockLoader)
	r := setupRouter(loader)

	for _, url := range []string{"/directory/pirate", "/directory/startup?sort=name", "/explore?order=sideways"} {
		w, resp := get(t, r, url)
		require.Equal(t, http.StatusBadRequest, w.Code, url)
		require.False(t, resp.Success)
	}
	loader.AssertNotCalled(t, "LoadByAccType", mock.Anything, mock.Anything)
}

func TestDirectoryHandler_StoreUnavailable(t *testing.T) {
	loader := new(mockLoader)
	loader.On("LoadByAccType", mock.Anything, profiles.AccStartup).Return(nil, fmt.Errorf("list: %w", docstore.ErrRemoteUnavailable))
	r := setupRouter(loader)

	w, resp := get(t, r, "/explore")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.False(t, resp.Success)
}
