package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"

	"phonebuddy/internal/model"
)

// Sender is the transport seam: the production implementation wraps the FCM
// messaging client, tests substitute a mock.
type Sender interface {
	// Send delivers one message and returns the transport's message ID.
	Send(ctx context.Context, message *messaging.Message) (string, error)

	// SendMulticast delivers the same data payload to several tokens and
	// returns per-token success/failure counts. Used only by the manual
	// send endpoint.
	SendMulticast(ctx context.Context, message *messaging.MulticastMessage) (success, failure int, err error)
}

// Receipt identifies one delivery attempt: our own ID for the audit log
// plus the transport's message ID when the send succeeded.
type Receipt struct {
	DeliveryID string
	MessageID  string
}

// Client sends profile-change messages point-to-point. Exactly one delivery
// attempt per dispatch decision, no fan-out, no retry: a rejected token is
// terminal for the event (the device must re-register), and a transient
// failure is logged and the event is considered failed.
type Client struct {
	sender Sender
}

func NewClient(sender Sender) *Client {
	return &Client{sender: sender}
}

// Dispatch composes and sends the message for one dispatch decision.
//
// Returns model.ErrInvalidToken without touching the transport when the
// target's token fails the shape check, and wraps model.ErrTokenRejected
// when the transport reports the registration as gone or mismatched.
func (c *Client) Dispatch(ctx context.Context, target model.DeviceState, payload model.ProfileChangePayload) (Receipt, error) {
	receipt := Receipt{DeliveryID: uuid.NewString()}

	if !target.HasValidToken() {
		return receipt, model.ErrInvalidToken
	}

	msg := Compose(target, payload)

	log.Printf("[Notify] Dispatch: delivery=%s room=%s target=%s profile=%s token=%s...",
		receipt.DeliveryID, payload.PairingCode, target.DeviceID, payload.Profile, truncateToken(target.FCMToken))

	messageID, err := c.sender.Send(ctx, msg)
	if err != nil {
		if IsTokenRejected(err) {
			// Not retried: the caller must wait for the device to refresh
			// and re-register its token.
			return receipt, fmt.Errorf("%w: %v", model.ErrTokenRejected, err)
		}
		return receipt, fmt.Errorf("send message: %w", err)
	}

	receipt.MessageID = messageID
	log.Printf("[Notify] Dispatch OK: delivery=%s messageID=%s", receipt.DeliveryID, messageID)
	return receipt, nil
}

// SendToTokens delivers a raw data payload directly to the given tokens,
// bypassing the evaluator. Only the manual send endpoint uses this path.
func (c *Client) SendToTokens(ctx context.Context, tokens []string, data map[string]string) (success, failure int, err error) {
	if len(tokens) == 0 {
		return 0, 0, model.ErrInvalidToken
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	success, failure, err = c.sender.SendMulticast(ctx, msg)
	if err != nil {
		return 0, 0, fmt.Errorf("send multicast: %w", err)
	}

	log.Printf("[Notify] Manual send: tokens=%d success=%d failure=%d", len(tokens), success, failure)
	return success, failure, nil
}

// IsTokenRejected classifies a transport error as a terminal token problem
// (unregistered or belonging to another sender) as opposed to a transient
// failure.
func IsTokenRejected(err error) bool {
	if errors.Is(err, model.ErrTokenRejected) {
		return true
	}
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

// ErrorClass renders a dispatch error for the audit log.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrInvalidToken):
		return "invalid_token"
	case IsTokenRejected(err):
		return "token_rejected"
	default:
		return "transient"
	}
}

func truncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20]
}
