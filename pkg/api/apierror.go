// Package api is the HTTP surface of the asset repository. Error responses
// use RFC 7807 Problem Details.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mindburn-Labs/curator/pkg/assets"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://curator.mindburn.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteConflict writes a 409 error response.
func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, "Conflict", detail)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
}

// WriteInternal writes a 500 error response without leaking internals.
func WriteInternal(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
}

// WriteServiceError maps the service error taxonomy onto HTTP statuses:
// invalid parameters are 400, unknown ids 404, state conflicts 409 and
// everything else 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch assets.KindOf(err) {
	case assets.KindInvalidParameter:
		WriteBadRequest(w, err.Error())
	case assets.KindNotFound:
		WriteNotFound(w, err.Error())
	case assets.KindInvalidState:
		WriteConflict(w, err.Error())
	default:
		WriteInternal(w, err)
	}
}
