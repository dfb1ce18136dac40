package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/docstore"
	"launchpad/pkg/objectstore"
)

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusServiceUnavailable, StatusFor(fmt.Errorf("list: %w", docstore.ErrRemoteUnavailable), http.StatusInternalServerError))
	require.Equal(t, http.StatusNotFound, StatusFor(docstore.ErrNotFound, http.StatusInternalServerError))
	require.Equal(t, http.StatusNotFound, StatusFor(objectstore.ErrNotFound, http.StatusInternalServerError))
	require.Equal(t, http.StatusRequestEntityTooLarge, StatusFor(objectstore.ErrTooLarge, http.StatusInternalServerError))
	require.Equal(t, http.StatusBadRequest, StatusFor(errors.New("bad"), http.StatusBadRequest))
}

func TestSendError_HidesInternalMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		SendError(c, http.StatusInternalServerError, errors.New("pq: relation missing"))
	})
	r.GET("/bad", func(c *gin.Context) {
		SendError(c, http.StatusBadRequest, errors.New("caption too long"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "internal server error", resp.Message)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "caption too long", resp.Message)
}
