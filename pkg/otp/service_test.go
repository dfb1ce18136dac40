package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"launchpad/pkg/docstore"
	"launchpad/pkg/users"
)

type capturingEmail struct {
	to    []string
	codes []string
	err   error
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (c *capturingEmail) SendEmail(_ context.Context, _, toEmail, plain, _ string) error {
	if c.err != nil {
		return c.err
	}
	c.to = append(c.to, toEmail)
	c.codes = append(c.codes, codePattern.FindString(plain))
	return nil
}

func (c *capturingEmail) last() string {
	return c.codes[len(c.codes)-1]
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) MarkVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*otpService, *capturingEmail, *mockVerifier, *clock) {
	t.Helper()
	email := &capturingEmail{}
	verifier := new(mockVerifier)
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	svc := NewOTPService(NewOTPRepository(docstore.NewMemoryStore()), verifier, email, nil).(*otpService)
	svc.now = clk.now
	return svc, email, verifier, clk
}

func TestGenerateCode(t *testing.T) {
	for range 20 {
		code, err := generateCode(codeLength)
		require.NoError(t, err)
		require.Regexp(t, `^\d{6}$`, code)
	}
}

func TestGenerateAndSendOTP_RateLimited(t *testing.T) {
	svc, email, _, clk := newTestService(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
		clk.t = clk.t.Add(5 * time.Minute)
	}
	require.ErrorIs(t, svc.GenerateAndSendOTP(ctx, "A@x.com"), ErrTooManyRequests)
	require.Len(t, email.to, 3)

	// Other emails are unaffected.
	require.NoError(t, svc.GenerateAndSendOTP(ctx, "b@x.com"))

	clk.t = clk.t.Add(time.Hour)
	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
}

func TestGenerateAndSendOTP_InvalidEmail(t *testing.T) {
	svc, email, _, _ := newTestService(t)
	require.ErrorIs(t, svc.GenerateAndSendOTP(context.Background(), "nope"), ErrInvalidEmail)
	require.Empty(t, email.to)
}

func TestGenerateAndSendOTP_SendFailure(t *testing.T) {
	svc, email, _, _ := newTestService(t)
	email.err = errors.New("sendgrid down")
	require.ErrorIs(t, svc.GenerateAndSendOTP(context.Background(), "a@x.com"), email.err)
}

func TestVerifyOTP(t *testing.T) {
	svc, email, verifier, _ := newTestService(t)
	ctx := context.Background()
	verifier.On("MarkVerified", mock.Anything, "a@x.com").Return(nil).Once()

	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
	code := email.last()

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, svc.VerifyOTP(ctx, "a@x.com", wrong), ErrInvalidCode)
	require.NoError(t, svc.VerifyOTP(ctx, "a@x.com", code))
	require.ErrorIs(t, svc.VerifyOTP(ctx, "a@x.com", code), ErrOTPNotFound)
	require.ErrorIs(t, svc.VerifyOTP(ctx, "ghost@x.com", code), ErrOTPNotFound)

	verifier.AssertExpectations(t)
}

func TestVerifyOTP_Expired(t *testing.T) {
	svc, email, verifier, clk := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
	clk.t = clk.t.Add(codeTTL + time.Second)

	require.ErrorIs(t, svc.VerifyOTP(ctx, "a@x.com", email.last()), ErrOTPExpired)
	verifier.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
}

func TestVerifyOTP_UnknownAccount(t *testing.T) {
	svc, email, verifier, _ := newTestService(t)
	ctx := context.Background()
	verifier.On("MarkVerified", mock.Anything, "a@x.com").Return(users.ErrAccountNotFound)

	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
	require.ErrorIs(t, svc.VerifyOTP(ctx, "a@x.com", email.last()), users.ErrAccountNotFound)
}

// A new request replaces the pending code.
func TestGenerateAndSendOTP_ReplacesPendingCode(t *testing.T) {
	svc, email, verifier, _ := newTestService(t)
	ctx := context.Background()
	verifier.On("MarkVerified", mock.Anything, "a@x.com").Return(nil)

	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
	first := email.last()
	require.NoError(t, svc.GenerateAndSendOTP(ctx, "a@x.com"))
	second := email.last()

	if first != second {
		require.ErrorIs(t, svc.VerifyOTP(ctx, "a@x.com", first), ErrInvalidCode)
	}
	require.NoError(t, svc.VerifyOTP(ctx, "a@x.com", second))
}
