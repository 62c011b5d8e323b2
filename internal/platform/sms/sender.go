// Package sms delivers verification codes to phones. The gateway sender
// posts to an HTTP SMS provider; the log sender is for development where
// no provider is configured. Delivery is fire-and-forget, no retry.
package sms

import (
	"context"

	"github.com/voltlab/voltlab-api/internal/verification"
)

// Sender delivers a verification code for the given scene to a phone number.
type Sender interface {
	Send(ctx context.Context, phoneNumber, code string, scene verification.Scene) error
}
