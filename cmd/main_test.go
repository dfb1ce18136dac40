package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad/pkg/config"
	"launchpad/pkg/docstore"
	"launchpad/pkg/objectstore"
	"launchpad/pkg/profiles"
	"launchpad/pkg/sendemail"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:               "development",
		StoreDriver:       "memory",
		ObjectStoreDriver: "memory",
		CORSOrigins:       []string{"*"},
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := backends{
		store:   docstore.NewMemoryStore(),
		objects: objectstore.NewMemoryStore(""),
		close:   func() {},
	}
	return buildRouter(memoryConfig(), zap.NewNop(), b, sendemail.NewLogService(zap.NewNop()))
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, url, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func TestRouter_SignupFlow(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/users/signup", "", `{"email":"founder@x.com","password":"long-enough","accType":"startup"}`)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.Token)

	code, _ = do(t, r, http.MethodGet, "/users/me", "", "")
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = do(t, r, http.MethodGet, "/users/me", auth.Token, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPut, "/profiles/me", auth.Token, `{"sector":"Fintech","stage":"Seed"}`)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, r, http.MethodGet, "/explore?sector=fintech", "", "")
	require.Equal(t, http.StatusOK, code)
	var result struct {
		Profiles []profiles.Profile `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Profiles, 1)
	require.Equal(t, "founder@x.com", result.Profiles[0].Email)

	code, _ = do(t, r, http.MethodPost, "/groups", auth.Token, `{"name":"founders"}`)
	require.Equal(t, http.StatusCreated, code)

	code, _ = do(t, r, http.MethodPost, "/users/logout", auth.Token, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, "/users/me", auth.Token, "")
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter(t)
	for _, url := range []string{"/directory/filters", "/posts", "/groups", "/chat/status", "/mentors"} {
		code, env := do(t, r, http.MethodGet, url, "", "")
		require.Equal(t, http.StatusOK, code, url)
		require.True(t, env.Success, url)
	}
}

func TestBuildTLSConfig(t *testing.T) {
	c := memoryConfig()
	c.TLS = config.TLSSettings{EnableTLS: true, AllowSelfSigned: true}
	tlsCfg, certFile, keyFile, err := buildTLSConfig(c)
	require.NoError(t, err)
	require.Len(t, tlsCfg.Certificates, 1)
	require.Empty(t, certFile)
	require.Empty(t, keyFile)

	c.Env = "production"
	_, _, _, err = buildTLSConfig(c)
	require.EqualError(t, err, "no TLS certificates available")

	c.TLS.CertPath = filepath.Join(t.TempDir(), "missing.pem")
	c.TLS.KeyPath = c.TLS.CertPath
	_, _, _, err = buildTLSConfig(c)
	require.ErrorContains(t, err, "load TLS key pair")
}

func TestImportSeries_UnknownProfile(t *testing.T) {
	cfg = memoryConfig()
	logger = zap.NewNop()

	path := filepath.Join(t.TempDir(), "revenue.csv")
	require.NoError(t, os.WriteFile(path, []byte("month,revenue\nJan,100\nFeb,abc\nMar,300\n"), 0o600))
	importProfile, importField, importFile = "ghost", "T", path

	importSeriesCmd.SetContext(context.Background())
	err := runImportSeries(importSeriesCmd, nil)
	require.ErrorIs(t, err, profiles.ErrProfileNotFound)

	importField = "bad.name"
	err = runImportSeries(importSeriesCmd, nil)
	require.ErrorIs(t, err, profiles.ErrInvalidSeriesName)
}
