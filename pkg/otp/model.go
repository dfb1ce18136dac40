package otp

// OTP is the pending code for one email. Requests holds the epoch
// millisecond times of recent code requests for rate limiting.
type OTP struct {
	Email     string  `json:"id"`
	Code      string  `json:"code"`
	ExpiresAt int64   `json:"expiresAt"`
	Verified  bool    `json:"verified"`
	Requests  []int64 `json:"requests"`
}
