package otp

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

	"launchpad/pkg/docstore"
	"launchpad/pkg/response"
	"launchpad/pkg/users"
)

type mockOTPService struct {
	mock.Mock
}

func (m *mockOTPService) GenerateAndSendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockOTPService) VerifyOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func setupRouter(service OTPService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewOTPHandler(service, nil).RegisterRoutes(r)
	return r
}

func post(r *gin.Engine, url, body string) (int, response.APIResponse) {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func TestOTPHandler_Request(t *testing.T) {
	svc := new(mockOTPService)
	r := setupRouter(svc)
	svc.On("GenerateAndSendOTP", mock.Anything, "a@x.com").Return(nil).Once()
	svc.On("GenerateAndSendOTP", mock.Anything, "a@x.com").Return(ErrTooManyRequests).Once()

	code, resp := post(r, "/otp/request", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	code, resp = post(r, "/otp/request", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, ErrTooManyRequests.Error(), resp.Message)

	code, _ = post(r, "/otp/request", `{}`)
	require.Equal(t, http.StatusBadRequest, code)
	svc.AssertExpectations(t)
}

func TestOTPHandler_Verify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"wrong code", ErrInvalidCode, http.StatusUnauthorized},
		{"expired", ErrOTPExpired, http.StatusUnauthorized},
		{"no account", users.ErrAccountNotFound, http.StatusNotFound},
		{"store down", docstore.ErrRemoteUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockOTPService)
			svc.On("VerifyOTP", mock.Anything, "a@x.com", "123456").Return(tt.err)

			code, resp := post(setupRouter(svc), "/otp/verify", `{"email":"a@x.com","code":"123456"}`)
			require.Equal(t, tt.want, code)
			require.Equal(t, tt.err == nil, resp.Success)
		})
	}
}
