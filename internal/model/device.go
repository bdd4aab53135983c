package model

import (
	"time"
)

// Device roles within a room. A room is synchronizable only when it holds
// exactly one of each.
const (
	RoleRemote   = "remote"
	RoleReceiver = "receiver"
)

// Canonical profile values. The profile field is free-form on the wire;
// anything outside this set maps to ringing on the receiving side.
const (
	ProfileRinging = "ringing"
	ProfileVibrate = "vibrate"
	ProfileSilent  = "silent"
)

// MinTokenLength is the minimal sanity check on FCM token shape.
// Anything shorter is treated as no token at all.
const MinTokenLength = 10

// DeviceState is one device's document under rooms/{pairingCode}/devices/{deviceId}.
//
// UpdatedBy records which device authored the last write. Legacy writers
// predate the field and leave it empty; the evaluator treats that as
// non-actionable rather than guessing the origin.
type DeviceState struct {
	DeviceID  string    `firestore:"deviceId" json:"device_id"`
	Role      string    `firestore:"role" json:"role"`
	Profile   string    `firestore:"profile" json:"profile"`
	FCMToken  string    `firestore:"fcmToken" json:"fcm_token,omitempty"` // must survive the stream envelope and the device cache
	UpdatedBy string    `firestore:"updatedBy" json:"updated_by,omitempty"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updated_at"`
}

// HasValidToken reports whether the device's push token passes the minimal
// shape check. This is not a cryptographic property, just a guard against
// empty or truncated registrations.
func (d DeviceState) HasValidToken() bool {
	return len(d.FCMToken) >= MinTokenLength
}

// ChangeEvent is one observed mutation of a device document: the store's
// before/after snapshots plus the document's room and device coordinates.
// Events for the same document arrive in commit order; no ordering is
// assumed across documents.
type ChangeEvent struct {
	PairingCode string      `json:"pairing_code"`
	DeviceID    string      `json:"device_id"`
	Before      DeviceState `json:"before"`
	After       DeviceState `json:"after"`
}
