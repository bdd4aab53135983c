package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"phonebuddy/internal/httputil"
	"phonebuddy/internal/model"
	"phonebuddy/internal/transport/http/middleware"
)

type mockTokenSender struct {
	sendFn func(ctx context.Context, tokens []string, data map[string]string) (int, int, error)
	calls  [][]string
}

func (m *mockTokenSender) SendToTokens(ctx context.Context, tokens []string, data map[string]string) (int, int, error) {
	m.calls = append(m.calls, tokens)
	if m.sendFn != nil {
		return m.sendFn(ctx, tokens, data)
	}
	return len(tokens), 0, nil
}

func authedRequest(t *testing.T, body interface{}) *http.Request {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/admin/send", bytes.NewReader(raw))
	ctx := context.WithValue(req.Context(), middleware.CallerIDKey, "operator-1")
	return req.WithContext(ctx)
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return resp.Error.Code
}

func TestManualSend_EmptyTokensRejected(t *testing.T) {
	sender := &mockTokenSender{}
	h := NewAdminHandler(sender, nil)

	rec := httptest.NewRecorder()
	h.ManualSend(rec, authedRequest(t, ManualSendRequest{Profile: "silent"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != model.CodeInvalidArgument {
		t.Errorf("error code = %q, want %q", code, model.CodeInvalidArgument)
	}
	if len(sender.calls) != 0 {
		t.Error("transport must not be touched for invalid input")
	}
}

func TestManualSend_UnauthenticatedRejected(t *testing.T) {
	h := NewAdminHandler(&mockTokenSender{}, nil)

	raw, _ := json.Marshal(ManualSendRequest{Tokens: []string{"tok_abcdefghij"}})
	req := httptest.NewRequest("POST", "/admin/send", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ManualSend(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestManualSend_TransportFailureIsInternal(t *testing.T) {
	sender := &mockTokenSender{
		sendFn: func(ctx context.Context, tokens []string, data map[string]string) (int, int, error) {
			return 0, 0, errors.New("fcm unavailable")
		},
	}
	h := NewAdminHandler(sender, nil)

	rec := httptest.NewRecorder()
	h.ManualSend(rec, authedRequest(t, ManualSendRequest{Tokens: []string{"tok_abcdefghij"}}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != model.CodeInternal {
		t.Errorf("error code = %q, want %q", code, model.CodeInternal)
	}
}

func TestManualSend_DefaultsProfileToRinging(t *testing.T) {
	var sentData map[string]string
	sender := &mockTokenSender{
		sendFn: func(ctx context.Context, tokens []string, data map[string]string) (int, int, error) {
			sentData = data
			return len(tokens), 0, nil
		},
	}
	h := NewAdminHandler(sender, nil)

	rec := httptest.NewRecorder()
	h.ManualSend(rec, authedRequest(t, ManualSendRequest{Tokens: []string{"tok_abcdefghij", "tok_klmnopqrst"}}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sentData["profile"] != model.ProfileRinging {
		t.Errorf("profile = %q, want default ringing", sentData["profile"])
	}

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["success"] != 2 || resp["failure"] != 0 {
		t.Errorf("counts = %v, want success=2 failure=0", resp)
	}
}
