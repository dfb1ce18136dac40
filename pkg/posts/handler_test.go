package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

func setupRouter(svc PostService, state session.State) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, state) })
	NewPostHandler(svc, nil).RegisterRoutes(r)
	return r
}

func multipartImage(t *testing.T, caption string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.WriteField("caption", caption))
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestPostHandler_CreateAndList(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := setupRouter(svc, alice)

	body, ct := multipartImage(t, "launch day")
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	list := resp.Data.([]any)
	require.Len(t, list, 1)
	require.Equal(t, "launch day", list[0].(map[string]any)["caption"])
}

func TestPostHandler_CreateRequiresSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := setupRouter(svc, session.Anonymous())

	body, ct := multipartImage(t, "x")
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostHandler_LikeStatuses(t *testing.T) {
	svc, _, _ := newTestService(t)
	p := mustPost(t, svc, alice, "hi")
	r := setupRouter(svc, bob)

	codes := []int{}
	for _, id := range []string{p.ID, p.ID, "ghost"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts/"+id+"/like", nil))
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusConflict, http.StatusNotFound}, codes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/liked", nil))
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []any{p.ID}, resp.Data)
}

func TestPostHandler_StreamFeed(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustPost(t, svc, alice, "first")

	srv := httptest.NewServer(setupRouter(svc, session.Anonymous()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/posts", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot []Post
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Len(t, snapshot, 1)

	mustPost(t, svc, bob, "second")
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Len(t, snapshot, 2)
	require.Equal(t, "second", snapshot[0].Caption)

	require.NoError(t, svc.Like(context.Background(), bob, snapshot[1].ID))
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, 1, snapshot[1].Likes)
}
