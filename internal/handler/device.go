package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phonebuddy/internal/httputil"
	"phonebuddy/internal/model"
)

// TokenWriter records a refreshed push token on a device document.
type TokenWriter interface {
	UpsertToken(ctx context.Context, pairingCode, deviceID, token string) error
}

type DeviceHandler struct {
	store TokenWriter
}

func NewDeviceHandler(store TokenWriter) *DeviceHandler {
	return &DeviceHandler{store: store}
}

// RefreshTokenRequest carries a platform-refreshed push token. How the
// device obtained it is the platform's business; we only consume the
// result.
type RefreshTokenRequest struct {
	Token string `json:"token"`
}

// RefreshToken handles PUT /rooms/{code}/devices/{id}/token.
func (h *DeviceHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	pairingCode := chi.URLParam(r, "code")
	deviceID := chi.URLParam(r, "id")

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteInvalidArgument(w, "Invalid request body")
		return
	}

	if len(req.Token) < model.MinTokenLength {
		httputil.WriteInvalidArgument(w, "token is missing or too short")
		return
	}

	if err := h.store.UpsertToken(r.Context(), pairingCode, deviceID, req.Token); err != nil {
		log.Printf("[ERROR] Refresh token: room=%s device=%s err=%v", pairingCode, deviceID, err)
		httputil.WriteInternalError(w, "Failed to store token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Token registered",
	})
}
