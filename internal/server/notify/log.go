package notify

import (
	"context"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/logging"
)

// LogNotifier writes codes to the log. It stands in for Kafka in
// development setups without a broker.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

func (n *LogNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	n.logger.Info(ctx, "otp issued", "email", msg.Email, "code", msg.Code, "purpose", msg.Purpose, "expires_at", msg.ExpiresAt)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
