package session

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
	"go.uber.org/zap"

	"launchpad/pkg/docstore"
	"launchpad/pkg/response"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(User)
	return u, args.Error(1)
}

func setupRouter(resolver Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(resolver, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, FromContext(c))
	})
	r.GET("/private", Require(), func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c).User.ID)
	})
	return r
}

func TestMiddleware_AnonymousWithoutToken(t *testing.T) {
	res := new(mockResolver)
	r := setupRouter(res)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var s State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	require.Equal(t, StatusAnonymous, s.Status)
	res.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestRequire_ValidBearer(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "tok-1").Return(User{ID: "u1", Email: "a@x.com"}, nil)
	r := setupRouter(res)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u1", w.Body.String())
	res.AssertExpectations(t)
}

func TestRequire_QueryToken(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "tok-2").Return(User{ID: "u2"}, nil)
	r := setupRouter(res)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private?token=tok-2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u2", w.Body.String())
}

func TestRequire_UnknownToken(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "stale").Return(User{}, ErrUnauthenticated)
	r := setupRouter(res)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer stale")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "unauthenticated", resp.Message)
}

func TestMiddleware_StoreDown(t *testing.T) {
	res := new(mockResolver)
	res.On("Resolve", mock.Anything, "tok").Return(User{}, fmt.Errorf("resolve session: %w", docstore.ErrRemoteUnavailable))
	r := setupRouter(res)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
