package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"

	"phonebuddy/internal/model"
)

type mockSender struct {
	sendFn      func(ctx context.Context, msg *messaging.Message) (string, error)
	multicastFn func(ctx context.Context, msg *messaging.MulticastMessage) (int, int, error)

	sent      []*messaging.Message
	multicast []*messaging.MulticastMessage
}

func (m *mockSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	m.sent = append(m.sent, msg)
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return "projects/test/messages/1", nil
}

func (m *mockSender) SendMulticast(ctx context.Context, msg *messaging.MulticastMessage) (int, int, error) {
	m.multicast = append(m.multicast, msg)
	if m.multicastFn != nil {
		return m.multicastFn(ctx, msg)
	}
	return len(msg.Tokens), 0, nil
}

func testPayload() model.ProfileChangePayload {
	return model.ProfileChangePayload{
		Profile:     model.ProfileSilent,
		PairingCode: "ABC123",
		SenderID:    "R1",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCompose_DataOnlyMessageWithDeliveryHints(t *testing.T) {
	target := model.DeviceState{DeviceID: "D1", FCMToken: "tok_abcdefghij"}
	msg := Compose(target, testPayload())

	if msg.Token != "tok_abcdefghij" {
		t.Errorf("token = %q", msg.Token)
	}
	if msg.Notification != nil {
		t.Error("message must be data-only, got a notification section")
	}
	if msg.Data["profile"] != "silent" || msg.Data["pairingCode"] != "ABC123" ||
		msg.Data["senderId"] != "R1" || msg.Data["type"] != "profile_update" {
		t.Errorf("unexpected data payload: %v", msg.Data)
	}
	if msg.Data["timestamp"] == "" {
		t.Error("timestamp missing from data payload")
	}

	if msg.Android == nil || msg.Android.Priority != "high" {
		t.Error("android priority must be high")
	}
	if msg.APNS == nil || msg.APNS.Headers["apns-priority"] != "10" {
		t.Error("apns-priority header must be 10")
	}
	aps := msg.APNS.Payload.Aps
	if !aps.ContentAvailable {
		t.Error("aps content-available must be set")
	}
	if aps.Badge == nil || *aps.Badge != 0 {
		t.Error("aps badge must be zero")
	}
}

func TestDispatch_InvalidTokenFailsFast(t *testing.T) {
	sender := &mockSender{}
	client := NewClient(sender)

	target := model.DeviceState{DeviceID: "D1", FCMToken: "short"}
	_, err := client.Dispatch(context.Background(), target, testPayload())

	if !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("transport attempted %d sends, want 0", len(sender.sent))
	}
}

func TestDispatch_SingleAttemptPerEvent(t *testing.T) {
	transient := errors.New("unavailable")
	sender := &mockSender{
		sendFn: func(ctx context.Context, msg *messaging.Message) (string, error) {
			return "", transient
		},
	}
	client := NewClient(sender)

	target := model.DeviceState{DeviceID: "D1", FCMToken: "tok_abcdefghij"}
	receipt, err := client.Dispatch(context.Background(), target, testPayload())

	if err == nil {
		t.Fatal("expected transport error to surface")
	}
	if len(sender.sent) != 1 {
		t.Errorf("transport attempted %d sends, want exactly 1", len(sender.sent))
	}
	if receipt.DeliveryID == "" {
		t.Error("delivery ID must be assigned even for failed attempts")
	}
	if ErrorClass(err) != "transient" {
		t.Errorf("error class = %q, want transient", ErrorClass(err))
	}
}

func TestDispatch_TokenRejectionIsTerminal(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, msg *messaging.Message) (string, error) {
			return "", model.ErrTokenRejected
		},
	}
	client := NewClient(sender)

	target := model.DeviceState{DeviceID: "D1", FCMToken: "tok_abcdefghij"}
	_, err := client.Dispatch(context.Background(), target, testPayload())

	if !errors.Is(err, model.ErrTokenRejected) {
		t.Fatalf("err = %v, want ErrTokenRejected", err)
	}
	if ErrorClass(err) != "token_rejected" {
		t.Errorf("error class = %q, want token_rejected", ErrorClass(err))
	}
	if len(sender.sent) != 1 {
		t.Errorf("transport attempted %d sends, want exactly 1 (no retry)", len(sender.sent))
	}
}

func TestSendToTokens_EmptyListRejected(t *testing.T) {
	sender := &mockSender{}
	client := NewClient(sender)

	_, _, err := client.SendToTokens(context.Background(), nil, map[string]string{"profile": "ringing"})
	if !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(sender.multicast) != 0 {
		t.Error("transport must not be touched for an empty token list")
	}
}

func TestSendToTokens_FansOutOnce(t *testing.T) {
	sender := &mockSender{}
	client := NewClient(sender)

	success, failure, err := client.SendToTokens(context.Background(),
		[]string{"tok_abcdefghij", "tok_klmnopqrst"}, map[string]string{"profile": "ringing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if success != 2 || failure != 0 {
		t.Errorf("counts = (%d, %d), want (2, 0)", success, failure)
	}
	if len(sender.multicast) != 1 {
		t.Fatalf("multicast calls = %d, want 1", len(sender.multicast))
	}
	if sender.multicast[0].Android == nil || sender.multicast[0].Android.Priority != "high" {
		t.Error("manual sends must also request high priority")
	}
}
