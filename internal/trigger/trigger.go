// Package trigger decides whether an observed device-document change must
// cause a push dispatch. The evaluator is pure and stateless: every decision
// derives solely from the before/after snapshots and the room's device set
// handed to that invocation, so re-evaluating a duplicate or stale event
// always yields the same answer.
package trigger

import (
	"time"

	"phonebuddy/internal/model"
)

// Reason names the gate that stopped (or allowed) a dispatch. Stable values
// so logs and the audit trail can be filtered on them.
type Reason string

const (
	ReasonDispatch          Reason = "dispatch"
	ReasonMissingSnapshot   Reason = "missing_snapshot"
	ReasonProfileUnchanged  Reason = "profile_unchanged"
	ReasonNotReceiver       Reason = "not_receiver_document"
	ReasonMissingProvenance Reason = "missing_updated_by"
	ReasonSelfUpdate        Reason = "receiver_self_update"
	ReasonRoomNotSyncable   Reason = "room_not_syncable"
	ReasonInvalidToken      Reason = "invalid_token"
)

// Decision is the evaluator's verdict for one change event.
type Decision struct {
	Dispatch bool
	Reason   Reason

	// Set only when Dispatch is true.
	Target  model.DeviceState
	Payload model.ProfileChangePayload
}

func noAction(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluate applies the dispatch decision sequence to one change event.
//
// Profile changes are authored by the remote device writing directly into
// the receiver's document, so the actionable signal is "receiver document
// changed, not by the receiver". The provenance gates (updatedBy present,
// updatedBy != deviceId) are the echo suppression: without them a receiver
// syncing its locally observed ringer state back to the store would notify
// itself in a loop.
//
// A change on the remote's own document never dispatches. An earlier
// iteration of the protocol notified the receiver in that case too; it was
// removed to prevent redundant messages, and this implementation keeps the
// receiver-document-only topology.
func Evaluate(ev model.ChangeEvent, room model.RoomSnapshot, now time.Time) Decision {
	if ev.Before.DeviceID == "" || ev.After.DeviceID == "" {
		return noAction(ReasonMissingSnapshot)
	}

	if ev.Before.Profile == ev.After.Profile {
		return noAction(ReasonProfileUnchanged)
	}

	if ev.After.Role != model.RoleReceiver {
		return noAction(ReasonNotReceiver)
	}

	// A writer that predates the provenance field: treat as non-actionable
	// rather than guessing the origin and risking an echo.
	if ev.After.UpdatedBy == "" {
		return noAction(ReasonMissingProvenance)
	}

	if ev.After.UpdatedBy == ev.DeviceID {
		return noAction(ReasonSelfUpdate)
	}

	if !room.Syncable() {
		return noAction(ReasonRoomNotSyncable)
	}

	if !ev.After.HasValidToken() {
		return noAction(ReasonInvalidToken)
	}

	return Decision{
		Dispatch: true,
		Reason:   ReasonDispatch,
		Target:   ev.After,
		Payload: model.ProfileChangePayload{
			Profile:     ev.After.Profile,
			PairingCode: ev.PairingCode,
			SenderID:    ev.After.UpdatedBy,
			Timestamp:   now,
		},
	}
}
