// pkg/respond/respond.go
package respond

import (
	"encoding/json"
	"net/http"
)

// Status is the top-level outcome of an API call.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Location tags where a field-level error originated.
type Location string

const (
	LocationBody    Location = "body"
	LocationHeader  Location = "header"
	LocationPath    Location = "path"
	LocationUnknown Location = "unknown"
)

// Error is a named, caller-facing error.
type Error struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Field is a field-level error with its location.
type Field struct {
	Field       string   `json:"field"`
	Description string   `json:"description"`
	Location    Location `json:"location"`
}

// Envelope is the uniform response body for every gateway endpoint.
type Envelope struct {
	Status Status  `json:"status"`
	Errors []Error `json:"errors,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter) {
	Success(w, http.StatusOK)
}

func Success(w http.ResponseWriter, code int) {
	JSON(w, code, Envelope{Status: StatusSuccess})
}

func Failure(w http.ResponseWriter, code int, errs []Error, fields []Field) {
	JSON(w, code, Envelope{Status: StatusFailure, Errors: errs, Fields: fields})
}
