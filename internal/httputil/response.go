package httputil

import (
	"encoding/json"
	"net/http"

	"phonebuddy/internal/model"
)

// ErrorResponse is the standard error envelope:
// {"error": {"code": "CODE", "message": "Human readable message"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent; nothing useful left to do.
			return
		}
	}
}

// WriteError writes an error response in the standard envelope.
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// WriteInvalidArgument writes a 400 with code INVALID_ARGUMENT.
func WriteInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, model.CodeInvalidArgument, message)
}

// WriteUnauthenticated writes a 401 with code UNAUTHENTICATED.
func WriteUnauthenticated(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, model.CodeUnauthenticated, message)
}

// WriteNotFound writes a 404 with code NOT_FOUND.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, model.CodeNotFound, message)
}

// WriteInternalError writes a 500 with code INTERNAL.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, model.CodeInternal, message)
}
