// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pulsefit/pulsefit/internal/auth"
	"github.com/pulsefit/pulsefit/internal/errutil"
	"github.com/pulsefit/pulsefit/internal/workout"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

// statusForCode maps the error taxonomy to HTTP status codes. Anything
// unrecognized is an internal error.
func statusForCode(code string) int {
	switch code {
	case auth.CodeValidationFailed,
		workout.CodeValidationFailed,
		auth.CodeAccountExists,
		auth.CodeInvalidCredentials,
		auth.CodeChallengeInvalid:
		return http.StatusBadRequest
	case auth.CodeAccountInconsistent:
		return http.StatusNotFound
	case auth.CodeTokenExpired, auth.CodeTokenInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns the caller-facing message for an error. Expected
// failures carry their own message; internal failures get a generic one
// so nothing from the stack leaks out.
func clientMessage(code string, err error) string {
	switch code {
	case auth.CodeValidationFailed, workout.CodeValidationFailed,
		auth.CodeAccountExists, auth.CodeInvalidCredentials,
		auth.CodeChallengeInvalid, auth.CodeAccountInconsistent,
		auth.CodeTokenExpired, auth.CodeTokenInvalid:
		return err.Error()
	case auth.CodeChallengeDelivery:
		return "failed to send verification code"
	default:
		return "internal server error"
	}
}

// writeError maps a service error onto the wire.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errutil.CodeOf(err)
	status := statusForCode(code)

	if status >= http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "code", code, "error", err.Error())
	}

	resp := errorResponse{Error: clientMessage(code, err)}
	if status < http.StatusInternalServerError {
		resp.Code = code
	}
	s.writeJSON(w, status, resp)
}

// writeBadRequest reports a malformed or invalid request body.
func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: message,
		Code:  auth.CodeValidationFailed,
	})
}
