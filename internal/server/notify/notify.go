// Package notify delivers one-time codes to account owners. The mail itself
// is sent by a separate service consuming the published events.
package notify

import (
	"context"
	"time"
)

// OTPMessage is the event published for every issued code.
type OTPMessage struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier dispatches OTP messages.
type Notifier interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
	Close() error
}
