package httputil

import (
	"encoding/json"
	"io"
	"net/http"
)

// ErrorBody is the JSON body of every admin error response. RequestID echoes the
// X-Request-ID response header when RequestIDMiddleware ran.
type ErrorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteText writes a plain text response, used for self-test reports
func WriteText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	return err
}

// WriteSuccess writes a 200 JSON response
func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteErrorMessage writes an ErrorBody
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorBody{
		Error:     message,
		Status:    status,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// WriteNotFoundError writes a 404, e.g. for an unknown plugin name
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteServiceUnavailable writes a 503, used while the plugin registry is loading
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}

// WriteInternalError writes a 500 without leaking err to the client
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
