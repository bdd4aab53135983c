package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"phonebuddy/internal/httputil"
	"phonebuddy/internal/model"
	"phonebuddy/internal/transport/http/middleware"
)

// TokenSender sends a raw data payload to explicit tokens, bypassing the
// change evaluator.
type TokenSender interface {
	SendToTokens(ctx context.Context, tokens []string, data map[string]string) (success, failure int, err error)
}

// DeliveryLister reads the dispatch audit trail.
type DeliveryLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.DeliveryRecord, error)
}

type AdminHandler struct {
	sender     TokenSender
	deliveries DeliveryLister
}

func NewAdminHandler(sender TokenSender, deliveries DeliveryLister) *AdminHandler {
	return &AdminHandler{sender: sender, deliveries: deliveries}
}

// ManualSendRequest is the operator-triggered send: explicit tokens,
// no evaluator involved.
type ManualSendRequest struct {
	Tokens      []string `json:"tokens"`
	Profile     string   `json:"profile"`
	PairingCode string   `json:"pairing_code"`
}

// ManualSend handles POST /admin/send. Intended for operator or test
// sends, never for the main sync path. Authentication is enforced by the
// router; this handler validates input and reports transport failure as an
// internal error, the one place a dispatch error surfaces to a caller.
func (h *AdminHandler) ManualSend(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthenticated(w, "Authentication required")
		return
	}

	var req ManualSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteInvalidArgument(w, "Invalid request body")
		return
	}

	if len(req.Tokens) == 0 {
		httputil.WriteInvalidArgument(w, "tokens array is required")
		return
	}

	profile := req.Profile
	if profile == "" {
		profile = model.ProfileRinging
	}

	data := map[string]string{
		"profile":     profile,
		"pairingCode": req.PairingCode,
	}

	success, failure, err := h.sender.SendToTokens(r.Context(), req.Tokens, data)
	if err != nil {
		if errors.Is(err, model.ErrInvalidToken) {
			httputil.WriteInvalidArgument(w, "tokens array is required")
			return
		}
		log.Printf("[ERROR] Manual send: caller=%s err=%v", caller, err)
		httputil.WriteInternalError(w, "Failed to send message")
		return
	}

	log.Printf("[Admin] Manual send: caller=%s tokens=%d success=%d failure=%d",
		caller, len(req.Tokens), success, failure)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"success": success,
		"failure": failure,
	})
}

// ListDeliveries handles GET /admin/deliveries.
func (h *AdminHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteInvalidArgument(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	records, err := h.deliveries.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] List deliveries: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list deliveries")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deliveries": records,
	})
}
