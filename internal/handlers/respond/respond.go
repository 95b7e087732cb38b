// Package respond writes JSON responses and maps service errors to HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusFor maps err to a status code: not found is 404, domain and validation
// errors are 422, anything else is 500
func StatusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err), domain.IsDomain(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes v with status
func JSON(w http.ResponseWriter, status int, v interface{}, logger ports.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", ports.Err(err))
	}
}

// Message writes an error body with a plain message
func Message(w http.ResponseWriter, status int, message string, logger ports.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// Error writes err with the status from StatusFor. Internal errors are not echoed.
func Error(w http.ResponseWriter, err error, logger ports.Logger) {
	ErrorWithStatus(w, StatusFor(err), err, logger)
}

// ErrorWithStatus writes err with an explicit status
func ErrorWithStatus(w http.ResponseWriter, status int, err error, logger ports.Logger) {
	body := ErrorBody{Error: err.Error(), Code: string(domain.GetErrorCode(err))}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		body.Error = domainErr.Message
		if domainErr.Err != nil {
			body.Error += ": " + domainErr.Err.Error()
		}
		if len(domainErr.Details) > 0 {
			body.Details = domainErr.Details
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", ports.Err(err))
		body.Error = http.StatusText(status)
		body.Details = nil
	}
	JSON(w, status, body, logger)
}
