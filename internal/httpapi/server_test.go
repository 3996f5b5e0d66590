// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/pulsefit/internal/auth"
	"github.com/pulsefit/pulsefit/internal/workout"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// fakeAuthService returns canned results per call.
type fakeAuthService struct {
	signupAccount *auth.PublicAccount
	signupErr     error
	loginResult   *auth.LoginResult
	loginErr      error
	issueErr      error
	verifyResult  *auth.LoginResult
	verifyErr     error
}

func (f *fakeAuthService) Signup(context.Context, auth.SignupParams) (*auth.PublicAccount, error) {
	return f.signupAccount, f.signupErr
}

func (f *fakeAuthService) Login(context.Context, string, string) (*auth.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAuthService) IssueSecondFactor(context.Context, string) error {
	return f.issueErr
}

func (f *fakeAuthService) VerifySecondFactor(context.Context, string, string) (*auth.LoginResult, error) {
	return f.verifyResult, f.verifyErr
}

// fakeWorkoutService records calls and returns canned results.
type fakeWorkoutService struct {
	entry       *workout.Entry
	entries     []*workout.Entry
	leaderboard []*workout.LeaderboardRow
	err         error

	gotAccountID ulid.ULID
	gotExercise  string
	gotLimit     int
}

func (f *fakeWorkoutService) Log(_ context.Context, accountID ulid.ULID, exercise string, _ int) (*workout.Entry, error) {
	f.gotAccountID = accountID
	f.gotExercise = exercise
	return f.entry, f.err
}

func (f *fakeWorkoutService) History(_ context.Context, accountID ulid.ULID) ([]*workout.Entry, error) {
	f.gotAccountID = accountID
	return f.entries, f.err
}

func (f *fakeWorkoutService) Leaderboard(_ context.Context, exercise string, limit int) ([]*workout.LeaderboardRow, error) {
	f.gotExercise = exercise
	f.gotLimit = limit
	return f.leaderboard, f.err
}

func newTestServer(t *testing.T, authSvc AuthService, workoutSvc WorkoutService) (*Server, *auth.TokenIssuer) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testSigningKey)
	require.NoError(t, err)
	if authSvc == nil {
		authSvc = &fakeAuthService{}
	}
	if workoutSvc == nil {
		workoutSvc = &fakeWorkoutService{}
	}
	server, err := NewServer("127.0.0.1:0", authSvc, issuer, workoutSvc, nil, nil)
	require.NoError(t, err)
	return server, issuer
}

func doJSON(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewServer_NilDependencies(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(testSigningKey)
	require.NoError(t, err)

	_, err = NewServer(":0", nil, issuer, &fakeWorkoutService{}, nil, nil)
	assert.Error(t, err)

	_, err = NewServer(":0", &fakeAuthService{}, nil, &fakeWorkoutService{}, nil, nil)
	assert.Error(t, err)

	_, err = NewServer(":0", &fakeAuthService{}, issuer, nil, nil, nil)
	assert.Error(t, err)
}

func TestHandleSignup(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			signupAccount: &auth.PublicAccount{ID: ulid.Make().String(), Email: "a@example.com", Username: "ada"},
		}, nil)

		rec := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"full_name":        "Ada Lovelace",
			"username":         "ada",
			"email":            "a@example.com",
			"password":         "password123",
			"confirm_password": "password123",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)

		var account auth.PublicAccount
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
		assert.Equal(t, "ada", account.Username)
	})

	t.Run("malformed body", func(t *testing.T) {
		server, _ := newTestServer(t, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		server, _ := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "a@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, auth.CodeValidationFailed, decodeError(t, rec).Code)
	})

	t.Run("duplicate account maps to 400", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			signupErr: oops.Code(auth.CodeAccountExists).Errorf("account already exists"),
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"full_name":        "Ada Lovelace",
			"username":         "ada",
			"email":            "a@example.com",
			"password":         "password123",
			"confirm_password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, auth.CodeAccountExists, decodeError(t, rec).Code)
	})

	t.Run("internal failure maps to 500 with generic message", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			signupErr: oops.Code(auth.CodeSignupFailed).Errorf("insert failed on node db-3"),
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"full_name":        "Ada Lovelace",
			"username":         "ada",
			"email":            "a@example.com",
			"password":         "password123",
			"confirm_password": "password123",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "internal server error", resp.Error)
		assert.NotContains(t, rec.Body.String(), "db-3")
	})
}

func TestHandleLogin(t *testing.T) {
	t.Run("success returns token", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			loginResult: &auth.LoginResult{
				Token:     "tok",
				ExpiresAt: time.Now().Add(15 * time.Minute),
				Verified:  false,
				Account:   auth.PublicAccount{Email: "a@example.com"},
			},
		}, nil)

		rec := doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "a@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp tokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "tok", resp.Token)
		assert.False(t, resp.Verified)
	})

	t.Run("invalid credentials map to 400", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			loginErr: oops.Code(auth.CodeInvalidCredentials).Errorf("invalid email or password"),
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "a@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, auth.CodeInvalidCredentials, decodeError(t, rec).Code)
	})
}

func TestHandle2FA(t *testing.T) {
	t.Run("request succeeds", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/2fa/request", "", map[string]any{
			"email": "a@example.com",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "verification code sent")
	})

	t.Run("code shape is validated before the service", func(t *testing.T) {
		server, _ := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/2fa/verify", "", map[string]any{
			"email": "a@example.com",
			"code":  "12",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid code maps to 400", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			verifyErr: oops.Code(auth.CodeChallengeInvalid).Errorf("code expired or invalid"),
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/2fa/verify", "", map[string]any{
			"email": "a@example.com",
			"code":  "123456",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, auth.CodeChallengeInvalid, decodeError(t, rec).Code)
	})

	t.Run("missing account maps to 404", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			verifyErr: oops.Code(auth.CodeAccountInconsistent).Errorf("account not found"),
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/2fa/verify", "", map[string]any{
			"email": "a@example.com",
			"code":  "123456",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("verify success returns verified token", func(t *testing.T) {
		server, _ := newTestServer(t, &fakeAuthService{
			verifyResult: &auth.LoginResult{Token: "tok", Verified: true},
		}, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/auth/2fa/verify", "", map[string]any{
			"email": "a@example.com",
			"code":  "123456",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp tokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Verified)
	})
}

func TestProtectedRoutes(t *testing.T) {
	accountID := ulid.Make()

	issueToken := func(t *testing.T, issuer *auth.TokenIssuer, verified bool) string {
		t.Helper()
		token, _, err := issuer.Issue(accountID.String(), "a@example.com", "Ada", verified, time.Hour)
		require.NoError(t, err)
		return token
	}

	t.Run("missing token", func(t *testing.T) {
		server, _ := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		server, _ := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, auth.CodeTokenInvalid, decodeError(t, rec).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		server, issuer := newTestServer(t, nil, nil)
		token, _, err := issuer.Issue(accountID.String(), "a@example.com", "Ada", true, -time.Minute)
		require.NoError(t, err)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, auth.CodeTokenExpired, decodeError(t, rec).Code)
	})

	t.Run("first-factor token is rejected", func(t *testing.T) {
		server, issuer := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts", issueToken(t, issuer, false), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "second-factor verification required")
	})

	t.Run("verified token reaches the handler", func(t *testing.T) {
		workoutSvc := &fakeWorkoutService{}
		server, issuer := newTestServer(t, nil, workoutSvc)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts", issueToken(t, issuer, true), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, accountID, workoutSvc.gotAccountID)
	})

	t.Run("log workout", func(t *testing.T) {
		entry, err := workout.NewEntry(accountID, "pushups", 25)
		require.NoError(t, err)
		workoutSvc := &fakeWorkoutService{entry: entry}
		server, issuer := newTestServer(t, nil, workoutSvc)

		rec := doJSON(t, server, http.MethodPost, "/api/workouts", issueToken(t, issuer, true), map[string]any{
			"exercise": "pushups",
			"count":    25,
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "pushups", workoutSvc.gotExercise)
	})

	t.Run("log workout rejects non-positive count", func(t *testing.T) {
		server, issuer := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/workouts", issueToken(t, issuer, true), map[string]any{
			"exercise": "pushups",
			"count":    0,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("leaderboard passes query params", func(t *testing.T) {
		workoutSvc := &fakeWorkoutService{
			leaderboard: []*workout.LeaderboardRow{{AccountID: accountID, Username: "ada", Total: 120}},
		}
		server, issuer := newTestServer(t, nil, workoutSvc)

		rec := doJSON(t, server, http.MethodGet, "/api/workouts/leaderboard?exercise=pushups&limit=5", issueToken(t, issuer, true), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pushups", workoutSvc.gotExercise)
		assert.Equal(t, 5, workoutSvc.gotLimit)

		var resp leaderboardResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Leaderboard, 1)
		assert.Equal(t, int64(120), resp.Leaderboard[0].Total)
	})

	t.Run("leaderboard rejects bad limit", func(t *testing.T) {
		server, issuer := newTestServer(t, nil, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/workouts/leaderboard?exercise=pushups&limit=abc", issueToken(t, issuer, true), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
