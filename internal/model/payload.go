package model

import (
	"strconv"
	"time"
)

// PayloadTypeProfileUpdate tags the data payload so the receiving device's
// background handler can route it.
const PayloadTypeProfileUpdate = "profile_update"

// ProfileChangePayload is the machine-readable content of an outbound push
// message. It always travels in the data section, never notification-only:
// foreground-killed delivery paths do not invoke app code for
// notification-only payloads.
type ProfileChangePayload struct {
	Profile     string
	PairingCode string
	SenderID    string
	Timestamp   time.Time
}

// Data renders the payload as the flat string map FCM data sections require.
// The timestamp is string-encoded epoch milliseconds.
func (p ProfileChangePayload) Data() map[string]string {
	return map[string]string{
		"profile":     p.Profile,
		"pairingCode": p.PairingCode,
		"senderId":    p.SenderID,
		"type":        PayloadTypeProfileUpdate,
		"timestamp":   strconv.FormatInt(p.Timestamp.UnixMilli(), 10),
	}
}

// ProfileCommand is a device-local command constructed from a delivered
// payload (or a direct local request). It is transient: consumed by the
// applier and discarded.
type ProfileCommand struct {
	Profile    string
	Origin     string
	ReceivedAt time.Time
}

// DeliveryRecord is one dispatch attempt in the audit log.
type DeliveryRecord struct {
	ID           string    `db:"id" json:"id"`
	PairingCode  string    `db:"pairing_code" json:"pairing_code"`
	TargetDevice string    `db:"target_device" json:"target_device"`
	Profile      string    `db:"profile" json:"profile"`
	SenderID     string    `db:"sender_id" json:"sender_id"`
	Status       string    `db:"status" json:"status"`
	ErrorClass   string    `db:"error_class" json:"error_class,omitempty"`
	FCMMessageID string    `db:"fcm_message_id" json:"fcm_message_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Delivery statuses.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)
