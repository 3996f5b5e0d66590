// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/pulsefit/pulsefit/internal/auth"
	"github.com/pulsefit/pulsefit/internal/workout"
)

type logWorkoutRequest struct {
	Exercise string `json:"exercise" validate:"required,max=64"`
	Count    int    `json:"count" validate:"required,gt=0"`
}

type historyResponse struct {
	Entries []*workout.Entry `json:"entries"`
}

type leaderboardResponse struct {
	Exercise    string                    `json:"exercise"`
	Leaderboard []*workout.LeaderboardRow `json:"leaderboard"`
}

// requestAccountID resolves the authenticated account from the request
// context. The middleware guarantees claims are present on protected
// routes; a parse failure means a token minted with a corrupt subject.
func (s *Server) requestAccountID(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "missing bearer token",
			Code:  auth.CodeTokenInvalid,
		})
		return ulid.ULID{}, false
	}
	accountID, err := ulid.Parse(claims.AccountID)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "invalid token subject",
			Code:  auth.CodeTokenInvalid,
		})
		return ulid.ULID{}, false
	}
	return accountID, true
}

func (s *Server) handleLogWorkout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.requestAccountID(w, r)
	if !ok {
		return
	}

	var req logWorkoutRequest
	if err := s.decodeValid(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := s.workoutSvc.Log(r.Context(), accountID, req.Exercise, req.Count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleWorkoutHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.requestAccountID(w, r)
	if !ok {
		return
	}

	entries, err := s.workoutSvc.History(r.Context(), accountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*workout.Entry{}
	}

	s.writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requestAccountID(w, r); !ok {
		return
	}

	exercise := r.URL.Query().Get("exercise")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	rows, err := s.workoutSvc.Leaderboard(r.Context(), exercise, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []*workout.LeaderboardRow{}
	}

	s.writeJSON(w, http.StatusOK, leaderboardResponse{
		Exercise:    exercise,
		Leaderboard: rows,
	})
}
