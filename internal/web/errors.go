package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"deskcal/internal/model"
)

const (
	codeUnauthorized       = "unauthorized"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidEvent       = "invalid_event"
	codeInvalidQuery       = "invalid_query"
	codeEventNotFound      = "event_not_found"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Field names the offending event field for invalid_event.
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeStoreError maps store and validation errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error: verr.Error(),
			Code:  codeInvalidEvent,
			Field: verr.Field,
		})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
