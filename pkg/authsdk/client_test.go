package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "pk_test", r.Header.Get(APIKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:            ErrorCodeEmailNotVerified,
			ErrorDescription: "please verify your email before logging in",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "pk_test")
	_, _, err := c.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrorCodeEmailNotVerified))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").GetLiveness(context.Background())
	require.True(t, IsCode(err, ErrorCodeServerError))
}

func TestSession_RefreshesExpiredAccessToken(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/auth/login":
			_ = json.NewEncoder(w).Encode(LoginResponse{
				User: UserProfile{ID: "u1", Email: "a@x.com"},
				// Already inside the refresh skew.
				Tokens: TokenPair{AccessToken: "stale", RefreshToken: "r1", ExpiresIn: 1},
			})
		case "/v1/auth/refresh":
			refreshes.Add(1)
			var req RefreshTokenRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "r1", req.RefreshToken)
			_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "fresh", ExpiresIn: 900})
		case "/v1/auth/logout-all":
			require.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(LogoutAllResponse{Message: "ok", SessionsRevoked: 2})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL, "pk_test")
	session, profile, err := c.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", profile.User.ID)

	out, err := session.LogoutAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), out.SessionsRevoked)
	require.Equal(t, "fresh", session.AccessToken())
	require.Equal(t, "r1", session.RefreshToken())

	// A second call reuses the fresh token.
	_, err = session.LogoutAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshes.Load())
}
