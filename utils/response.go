package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"storefront/errs"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("RespondWithJSON encode error: %v", err)
	}
}

// RespondWithData wraps data in a success envelope.
func RespondWithData(w http.ResponseWriter, statusCode int, data any, message string) {
	RespondWithJSON(w, statusCode, Envelope{Success: true, Data: data, Message: message})
}

// RespondWithError sends a failure envelope with an explicit status and category.
func RespondWithError(w http.ResponseWriter, statusCode int, code, msg string) {
	RespondWithJSON(w, statusCode, Envelope{Success: false, Error: msg, Code: code})
}

// HandleError classifies err and writes the matching failure envelope. Internal
// failures are logged with the request line and reported generically.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	if kind == errs.KindInternal {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	RespondWithError(w, kind.HTTPStatus(), kind.String(), errs.Message(err))
}

// DecodeJSON reads a JSON body into dst, rejecting malformed payloads as
// validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errs.Validation("invalid JSON payload").Wrap(err)
	}
	return nil
}
