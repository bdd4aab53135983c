package notify

import (
	"firebase.google.com/go/v4/messaging"

	"phonebuddy/internal/model"
)

// Compose builds the outbound FCM message for a profile change. Composing is
// pure and total for any well-formed payload; no retries or backoff live
// here.
//
// The message is data-only with delivery hints: high priority on Android,
// and on APNs a content-available silent alert with no sound and zero badge
// so the OS does not force a visible banner when the background handler
// alone should react.
func Compose(target model.DeviceState, payload model.ProfileChangePayload) *messaging.Message {
	badge := 0
	return &messaging.Message{
		Token: target.FCMToken,
		Data:  payload.Data(),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "",
					Badge:            &badge,
				},
			},
		},
	}
}
