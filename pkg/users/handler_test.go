package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Signup(ctx context.Context, email, password, accType string) (AuthResult, error) {
	args := m.Called(ctx, email, password, accType)
	res, _ := args.Get(0).(AuthResult)
	return res, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(AuthResult)
	return res, args.Error(1)
}

func (m *mockUserService) Logout(ctx context.Context, s session.State) (session.State, error) {
	args := m.Called(ctx, s)
	st, _ := args.Get(0).(session.State)
	return st, args.Error(1)
}

func (m *mockUserService) Me(ctx context.Context, s session.State) (Account, error) {
	args := m.Called(ctx, s)
	a, _ := args.Get(0).(Account)
	return a, args.Error(1)
}

func (m *mockUserService) MarkVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func setupUserRouter(service UserService, state session.State) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { session.Set(c, state) })
	NewUserHandler(service, nil).RegisterRoutes(r)
	return r
}

func postJSON(r *gin.Engine, url, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestUserHandler_Signup_Success(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc, session.Anonymous())

	svc.On("Signup", mock.Anything, "a@x.com", "secret-pass", "startup").
		Return(AuthResult{Token: "tok", Account: Account{ID: "u1", Email: "a@x.com"}}, nil)

	w, resp := postJSON(r, "/users/signup", `{"email":"a@x.com","password":"secret-pass","accType":"startup"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, resp.Success)
	require.Equal(t, "user created", resp.Message)
	data := resp.Data.(map[string]any)
	require.Equal(t, "tok", data["token"])
	svc.AssertExpectations(t)
}

func TestUserHandler_Signup_InvalidPayload(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc, session.Anonymous())

	w, resp := postJSON(r, "/users/signup", `{"email":"a@x.com"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid request payload", resp.Message)
	svc.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserHandler_Signup_EmailTaken(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc, session.Anonymous())
	svc.On("Signup", mock.Anything, "a@x.com", "secret-pass", "startup").Return(AuthResult{}, ErrEmailTaken)

	w, resp := postJSON(r, "/users/signup", `{"email":"a@x.com","password":"secret-pass","accType":"startup"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, ErrEmailTaken.Error(), resp.Message)
}

func TestUserHandler_Login_InvalidCredentials(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc, session.Anonymous())
	svc.On("Login", mock.Anything, "a@x.com", "bad").Return(AuthResult{}, ErrInvalidCredentials)

	w, resp := postJSON(r, "/users/login", `{"email":"a@x.com","password":"bad"}`)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, resp.Success)
	require.Equal(t, "invalid credentials", resp.Message)
}

func TestUserHandler_MeRequiresSession(t *testing.T) {
	svc := new(mockUserService)
	r := setupUserRouter(svc, session.Anonymous())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
}

func TestUserHandler_Logout(t *testing.T) {
	svc := new(mockUserService)
	st := session.State{Status: session.StatusAuthenticated, User: session.User{ID: "u1"}, Token: "tok"}
	r := setupUserRouter(svc, st)
	svc.On("Logout", mock.Anything, st).Return(session.Anonymous(), nil)

	w, resp := postJSON(r, "/users/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "logged out", resp.Message)
	svc.AssertExpectations(t)
}
