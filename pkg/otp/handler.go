package otp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/response"
	"launchpad/pkg/users"
)

type OTPHandler struct {
	service OTPService
	logger  *zap.Logger
}

func NewOTPHandler(service OTPService, logger *zap.Logger) *OTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPHandler{service: service, logger: logger}
}

func (h *OTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/otp/request", h.requestOTP)
	router.POST("/otp/verify", h.verifyOTP)
}

type requestOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// @Summary      Send a verification code
// @Description  Emails a 6-digit code valid for 10 minutes. At most 3 requests per hour per email.
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request body requestOTPRequest true "Email to send the code to"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      429 {object} response.APIResponse
// @Router       /otp/request [post]
func (h *OTPHandler) requestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.GenerateAndSendOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "OTP sent successfully to "+req.Email, nil)
}

// @Summary      Verify a code
// @Tags         OTP
// @Accept       json
// @Produce      json
// @Param        request body verifyOTPRequest true "Email and code"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /otp/verify [post]
func (h *OTPHandler) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.VerifyOTP(c.Request.Context(), req.Email, req.Code); err != nil {
		h.fail(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "OTP verified successfully", gin.H{"verified": true})
}

func (h *OTPHandler) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, ErrInvalidEmail):
		code = http.StatusBadRequest
	case errors.Is(err, ErrTooManyRequests):
		code = http.StatusTooManyRequests
	case errors.Is(err, ErrOTPNotFound), errors.Is(err, ErrOTPExpired), errors.Is(err, ErrInvalidCode):
		code = http.StatusUnauthorized
	case errors.Is(err, users.ErrAccountNotFound):
		code = http.StatusNotFound
	default:
		code = response.StatusFor(err, http.StatusInternalServerError)
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("otp request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	response.SendError(c, code, err)
}
