// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pulsefit/pulsefit/internal/auth"
	"github.com/pulsefit/pulsefit/internal/errutil"
)

type signupRequest struct {
	FullName        string `json:"full_name" validate:"required,max=128"`
	Username        string `json:"username" validate:"required,min=3,max=30"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
	Gender          string `json:"gender" validate:"omitempty,max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type challengeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type tokenResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Verified  bool               `json:"verified"`
	Account   auth.PublicAccount `json:"account"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// decodeValid decodes the JSON body into dst and validates it.
func (s *Server) decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return s.validate.Struct(dst)
}

// recordOutcome increments a labeled counter when metrics are enabled.
func (s *Server) recordOutcome(counter func(status string), err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		counter("success")
	case statusForCode(errutil.CodeOf(err)) < http.StatusInternalServerError:
		counter("rejected")
	default:
		counter("error")
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	account, err := s.authSvc.Signup(r.Context(), auth.SignupParams{
		FullName:        req.FullName,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Gender:          req.Gender,
	})
	s.recordOutcome(func(status string) {
		s.metrics.SignupsTotal.WithLabelValues(status).Inc()
	}, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	result, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	s.recordOutcome(func(status string) {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Verified:  result.Verified,
		Account:   result.Account,
	})
}

func (s *Server) handleRequest2FA(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	err := s.authSvc.IssueSecondFactor(r.Context(), req.Email)
	s.recordOutcome(func(status string) {
		s.metrics.ChallengesTotal.WithLabelValues("issue", status).Inc()
	}, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "verification code sent"})
}

func (s *Server) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	result, err := s.authSvc.VerifySecondFactor(r.Context(), req.Email, req.Code)
	s.recordOutcome(func(status string) {
		s.metrics.ChallengesTotal.WithLabelValues("verify", status).Inc()
	}, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Verified:  result.Verified,
		Account:   result.Account,
	})
}
