package handlers

import (
	"net/http"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/middleware"
	"github.com/fleetwatch/fleetwatch/internal/testhelpers"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *middleware.JWTAuthMiddleware) {
	t.Helper()
	hash, err := middleware.HashPassword("dashboard-pass")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	jwtAuth := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
		JWTSecret:         "test-secret",
		JWTExpiryHours:    24,
	})
	return NewAuthHandler(jwtAuth), jwtAuth
}

func TestLoginSuccess(t *testing.T) {
	handler, jwtAuth := newAuthHandler(t)

	var resp LoginResponse
	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/auth/login", nil).
		WithJSONBody(LoginRequest{Username: "admin", Password: "dashboard-pass"}).
		ExecuteFunc(handler.handleLogin).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)

	testhelpers.AssertEqual(t, "admin", resp.Username, "username echoed")
	testhelpers.AssertEqual(t, 86400, resp.ExpiresIn, "expiry seconds")

	claims, err := jwtAuth.ValidateToken(resp.Token)
	testhelpers.AssertNoError(t, err, "issued token validates")
	testhelpers.AssertEqual(t, "admin", claims.Username, "token claims")
}

func TestLoginWrongPassword(t *testing.T) {
	handler, _ := newAuthHandler(t)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/auth/login", nil).
		WithJSONBody(LoginRequest{Username: "admin", Password: "nope"}).
		ExecuteFunc(handler.handleLogin).
		AssertStatus(http.StatusUnauthorized).
		AssertBodyContains("invalid username or password")
}

func TestLoginMissingFields(t *testing.T) {
	handler, _ := newAuthHandler(t)

	testhelpers.NewHTTPTestContext(t, http.MethodPost, "/auth/login", nil).
		WithJSONBody(LoginRequest{Username: "admin"}).
		ExecuteFunc(handler.handleLogin).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("username and password are required")
}

func TestLoginRejectsGet(t *testing.T) {
	handler, _ := newAuthHandler(t)

	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/auth/login", nil).
		ExecuteFunc(handler.handleLogin).
		AssertStatus(http.StatusMethodNotAllowed)
}

func TestVerifyRequiresAuthenticatedContext(t *testing.T) {
	handler, jwtAuth := newAuthHandler(t)

	// Without the middleware there is no user in the context.
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/auth/verify", nil).
		ExecuteFunc(handler.handleVerify).
		AssertStatus(http.StatusUnauthorized)

	// Behind the middleware with a valid token the username comes back.
	token, err := jwtAuth.GenerateToken("admin")
	testhelpers.AssertNoError(t, err, "GenerateToken")

	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	var resp struct {
		Valid    bool   `json:"valid"`
		Username string `json:"username"`
	}
	testhelpers.NewHTTPTestContext(t, http.MethodGet, "/auth/verify", nil).
		WithBearerToken(token).
		Execute(jwtAuth.Wrap(mux)).
		AssertStatus(http.StatusOK).
		DecodeJSON(&resp)
	testhelpers.AssertEqual(t, true, resp.Valid, "valid flag")
	testhelpers.AssertEqual(t, "admin", resp.Username, "username")
}
