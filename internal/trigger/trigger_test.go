package trigger

import (
	"testing"
	"time"

	"phonebuddy/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// pairedRoom builds the canonical two-device room used across tests.
func pairedRoom(receiver model.DeviceState) model.RoomSnapshot {
	return model.RoomSnapshot{
		PairingCode: "ABC123",
		Devices: []model.DeviceState{
			{DeviceID: "R1", Role: model.RoleRemote, Profile: model.ProfileRinging},
			receiver,
		},
	}
}

func receiverState(profile, updatedBy string) model.DeviceState {
	return model.DeviceState{
		DeviceID:  "D1",
		Role:      model.RoleReceiver,
		Profile:   profile,
		FCMToken:  "tok_abcdefghij",
		UpdatedBy: updatedBy,
	}
}

func TestEvaluate_RemoteAuthoredChangeDispatches(t *testing.T) {
	before := receiverState(model.ProfileRinging, "")
	after := receiverState(model.ProfileSilent, "R1")

	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: before, After: after}
	dec := Evaluate(ev, pairedRoom(after), testNow)

	if !dec.Dispatch {
		t.Fatalf("expected dispatch, got NoAction (reason=%s)", dec.Reason)
	}
	if dec.Target.DeviceID != "D1" {
		t.Errorf("target = %q, want D1", dec.Target.DeviceID)
	}
	if dec.Payload.Profile != model.ProfileSilent {
		t.Errorf("payload profile = %q, want silent", dec.Payload.Profile)
	}
	if dec.Payload.SenderID != "R1" {
		t.Errorf("payload sender = %q, want R1", dec.Payload.SenderID)
	}
	if dec.Payload.PairingCode != "ABC123" {
		t.Errorf("payload pairing code = %q, want ABC123", dec.Payload.PairingCode)
	}

	data := dec.Payload.Data()
	if data["type"] != model.PayloadTypeProfileUpdate {
		t.Errorf("data type = %q, want %q", data["type"], model.PayloadTypeProfileUpdate)
	}
	if data["timestamp"] != "1748779200000" {
		t.Errorf("data timestamp = %q, want epoch millis of testNow", data["timestamp"])
	}
}

func TestEvaluate_SelfSyncIsSuppressed(t *testing.T) {
	// The receiver writing its own observed state back must never notify
	// itself, regardless of whether the profile changed.
	before := receiverState(model.ProfileRinging, "R1")
	after := receiverState(model.ProfileSilent, "D1")

	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: before, After: after}
	dec := Evaluate(ev, pairedRoom(after), testNow)

	if dec.Dispatch {
		t.Fatal("expected NoAction for receiver self-update")
	}
	if dec.Reason != ReasonSelfUpdate {
		t.Errorf("reason = %s, want %s", dec.Reason, ReasonSelfUpdate)
	}
}

func TestEvaluate_NoOpWriteNeverDispatches(t *testing.T) {
	after := receiverState(model.ProfileSilent, "R1")
	before := after
	before.UpdatedBy = "D1" // provenance differs, profile does not

	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: before, After: after}
	dec := Evaluate(ev, pairedRoom(after), testNow)

	if dec.Dispatch || dec.Reason != ReasonProfileUnchanged {
		t.Errorf("got (%v, %s), want NoAction/%s", dec.Dispatch, dec.Reason, ReasonProfileUnchanged)
	}
}

func TestEvaluate_RemoteDocumentChangeIsNotActionable(t *testing.T) {
	before := model.DeviceState{DeviceID: "R1", Role: model.RoleRemote, Profile: model.ProfileRinging}
	after := before
	after.Profile = model.ProfileVibrate
	after.UpdatedBy = "R1"

	room := model.RoomSnapshot{
		PairingCode: "ABC123",
		Devices:     []model.DeviceState{after, receiverState(model.ProfileRinging, "")},
	}

	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "R1", Before: before, After: after}
	dec := Evaluate(ev, room, testNow)

	if dec.Dispatch || dec.Reason != ReasonNotReceiver {
		t.Errorf("got (%v, %s), want NoAction/%s", dec.Dispatch, dec.Reason, ReasonNotReceiver)
	}
}

func TestEvaluate_LegacyWriterWithoutProvenance(t *testing.T) {
	before := receiverState(model.ProfileRinging, "")
	after := receiverState(model.ProfileSilent, "")

	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: before, After: after}
	dec := Evaluate(ev, pairedRoom(after), testNow)

	if dec.Dispatch || dec.Reason != ReasonMissingProvenance {
		t.Errorf("got (%v, %s), want NoAction/%s", dec.Dispatch, dec.Reason, ReasonMissingProvenance)
	}
}

func TestEvaluate_TopologyGating(t *testing.T) {
	after := receiverState(model.ProfileSilent, "R1")
	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: receiverState(model.ProfileRinging, ""), After: after}

	cases := []struct {
		name string
		room model.RoomSnapshot
	}{
		{"single device", model.RoomSnapshot{Devices: []model.DeviceState{after}}},
		{"three devices", model.RoomSnapshot{Devices: []model.DeviceState{
			after,
			{DeviceID: "R1", Role: model.RoleRemote},
			{DeviceID: "R2", Role: model.RoleRemote},
		}}},
		{"two receivers", model.RoomSnapshot{Devices: []model.DeviceState{
			after,
			{DeviceID: "D2", Role: model.RoleReceiver},
		}}},
		{"missing remote role", model.RoomSnapshot{Devices: []model.DeviceState{
			after,
			{DeviceID: "X1", Role: "observer"},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := Evaluate(ev, tc.room, testNow)
			if dec.Dispatch || dec.Reason != ReasonRoomNotSyncable {
				t.Errorf("got (%v, %s), want NoAction/%s", dec.Dispatch, dec.Reason, ReasonRoomNotSyncable)
			}
		})
	}
}

func TestEvaluate_TokenShapeGate(t *testing.T) {
	for _, token := range []string{"", "short"} {
		after := receiverState(model.ProfileSilent, "R1")
		after.FCMToken = token

		ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: receiverState(model.ProfileRinging, ""), After: after}
		dec := Evaluate(ev, pairedRoom(after), testNow)

		if dec.Dispatch || dec.Reason != ReasonInvalidToken {
			t.Errorf("token %q: got (%v, %s), want NoAction/%s", token, dec.Dispatch, dec.Reason, ReasonInvalidToken)
		}
	}
}

func TestEvaluate_MissingSnapshotIsNoAction(t *testing.T) {
	after := receiverState(model.ProfileSilent, "R1")
	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", After: after}

	dec := Evaluate(ev, pairedRoom(after), testNow)
	if dec.Dispatch || dec.Reason != ReasonMissingSnapshot {
		t.Errorf("got (%v, %s), want NoAction/%s", dec.Dispatch, dec.Reason, ReasonMissingSnapshot)
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	// Re-evaluating the same event pair must always yield the same decision;
	// at-least-once delivery of events relies on it.
	before := receiverState(model.ProfileRinging, "")
	after := receiverState(model.ProfileSilent, "R1")
	ev := model.ChangeEvent{PairingCode: "ABC123", DeviceID: "D1", Before: before, After: after}
	room := pairedRoom(after)

	first := Evaluate(ev, room, testNow)
	for i := 0; i < 5; i++ {
		again := Evaluate(ev, room, testNow)
		if again != first {
			t.Fatalf("evaluation %d differed: %+v vs %+v", i, again, first)
		}
	}
}
