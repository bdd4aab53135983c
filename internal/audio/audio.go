// Package audio abstracts the host's ringer and do-not-disturb surface.
// The real OS binding is an external collaborator; this package owns only
// the interface the applier drives and an in-process implementation used
// by the default agent wiring and by tests.
package audio

import (
	"errors"
	"time"

	"phonebuddy/internal/model"
)

// Permissions named in recovery signals, mirroring the platform permissions
// the receiver needs.
const (
	PermissionNotificationPolicy = "ACCESS_NOTIFICATION_POLICY"
	PermissionModifyAudio        = "MODIFY_AUDIO_SETTINGS"
)

// ErrPermissionDenied is returned when the host denies a ringer mutation at
// call time. Distinguished from the gate check so the applier can report a
// check/call race separately.
var ErrPermissionDenied = errors.New("audio: permission denied")

// Controller is the single shared resource on the device side. All
// mutations must go through the applier's single-writer loop.
type Controller interface {
	// RingerMode returns the current system ringer state.
	RingerMode() (model.RingerMode, error)

	// SetRingerMode mutates the system ringer state. Returns
	// ErrPermissionDenied when the host refuses for a security reason.
	SetRingerMode(mode model.RingerMode) error

	// ClearInterruptionFilter lifts any active do-not-disturb filter.
	// Best-effort: an active filter would suppress the very feedback that
	// confirms a profile change.
	ClearInterruptionFilter() error

	// Vibrate triggers a haptic pulse of the given duration.
	Vibrate(d time.Duration) error
}

// PolicyGate answers whether the permission needed to mutate ringer state
// is currently granted. Pure query; never blocks, never retries.
type PolicyGate interface {
	PolicyAccessGranted() bool
}
