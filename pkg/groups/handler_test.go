package groups

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

func setupRouter(svc GroupService, state *session.State) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, *state) })
	NewGroupHandler(svc, nil).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, url, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestGroupHandler_Flow(t *testing.T) {
	svc, _ := newTestService()
	state := alice
	r := setupRouter(svc, &state)

	w, _ := do(r, http.MethodPost, "/groups", `{"name":"founders"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := do(r, http.MethodPost, "/groups", `{"name":"founders"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, ErrDuplicateGroupName.Error(), resp.Message)

	state = bob
	w, _ = do(r, http.MethodPost, "/groups/founders/messages", `{"text":"hi"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(r, http.MethodPost, "/groups/founders/join", "")
	require.Equal(t, http.StatusCreated, w.Code)
	w, resp = do(r, http.MethodPost, "/groups/founders/join", "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, ErrAlreadyMember.Error(), resp.Message)

	w, _ = do(r, http.MethodPost, "/groups/founders/messages", `{"text":"hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = do(r, http.MethodGet, "/groups/founders/messages?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data, 1)

	w, resp = do(r, http.MethodGet, "/groups/founders/members", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data, 1)

	w, _ = do(r, http.MethodPost, "/groups/nowhere/join", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, http.MethodGet, "/groups/founders/messages?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandler_AnonymousCannotCreate(t *testing.T) {
	svc, _ := newTestService()
	state := session.Anonymous()
	r := setupRouter(svc, &state)

	w, _ := do(r, http.MethodPost, "/groups", `{"name":"founders"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := do(r, http.MethodGet, "/groups", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp.Data)
}
