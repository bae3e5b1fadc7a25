package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/core"
)

// ErrorBody is the JSON body of every non-success response.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusCode maps an error to the HTTP status the API reports for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		log.Warn("request failed", "path", r.URL.Path, "status", code, "request_id", RequestID(r.Context()), "error", err)
	}
	writeJSON(w, r, code, ErrorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("encode response", "path", r.URL.Path, "error", err)
		code = http.StatusInternalServerError
		data, _ = json.Marshal(ErrorBody{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}
