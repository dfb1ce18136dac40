package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"launchpad/pkg/docstore"
)

const (
	otpCollection = "otps"
	maxPerWindow  = 3
	requestWindow = time.Hour
	codeTTL       = 10 * time.Minute
)

var (
	ErrTooManyRequests = errors.New("too many OTP requests, please try again later")
	ErrOTPNotFound     = errors.New("no OTP found for this email or OTP already verified")
	ErrOTPExpired      = errors.New("OTP has expired")
	ErrInvalidCode     = errors.New("invalid OTP code")
)

type OTPRepository interface {
	// CreateOTP replaces the pending code for email unless the email already
	// requested maxPerWindow codes within the last hour.
	CreateOTP(ctx context.Context, email, code string, now time.Time) error
	// ConsumeOTP checks code against the pending one and marks it verified.
	ConsumeOTP(ctx context.Context, email, code string, now time.Time) error
}

type docOTPRepository struct {
	store docstore.Store
}

func NewOTPRepository(store docstore.Store) OTPRepository {
	return &docOTPRepository{store: store}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *docOTPRepository) CreateOTP(ctx context.Context, email, code string, now time.Time) error {
	key := emailKey(email)
	return r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		// Seed an empty row first so a brand-new email also has something to
		// lock. Concurrent requests for one email queue on the row below.
		err := tx.CreateDoc(ctx, otpCollection, key, map[string]any{})
		if err != nil && !errors.Is(err, docstore.ErrAlreadyExists) {
			return err
		}
		doc, err := tx.GetDocForUpdate(ctx, otpCollection, key)
		if err != nil {
			return err
		}
		var current OTP
		if err := doc.Decode(&current); err != nil {
			return err
		}

		cutoff := now.Add(-requestWindow).UnixMilli()
		recent := make([]int64, 0, maxPerWindow)
		for _, ts := range current.Requests {
			if ts > cutoff {
				recent = append(recent, ts)
			}
		}
		if len(recent) >= maxPerWindow {
			return ErrTooManyRequests
		}

		body, err := docstore.Encode(OTP{
			Code:      code,
			ExpiresAt: now.Add(codeTTL).UnixMilli(),
			Requests:  append(recent, now.UnixMilli()),
		})
		if err != nil {
			return err
		}
		return tx.SetDoc(ctx, otpCollection, key, body)
	})
}

func (r *docOTPRepository) ConsumeOTP(ctx context.Context, email, code string, now time.Time) error {
	key := emailKey(email)
	return r.store.RunInTx(ctx, func(tx docstore.Tx) error {
		doc, err := tx.GetDocForUpdate(ctx, otpCollection, key)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrOTPNotFound
			}
			return err
		}
		var o OTP
		if err := doc.Decode(&o); err != nil {
			return err
		}
		switch {
		case o.Verified || o.Code == "":
			return ErrOTPNotFound
		case now.UnixMilli() > o.ExpiresAt:
			return ErrOTPExpired
		case subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) != 1:
			return ErrInvalidCode
		}
		return tx.UpdateDoc(ctx, otpCollection, key, map[string]any{"verified": true})
	})
}
