package middleware

import (
	"net/http"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/testhelpers"
)

func TestCORSAllowAllEchoesOrigin(t *testing.T) {
	m := NewCORSMiddleware()

	ctx := testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts", nil).
		WithHeader("Origin", "http://dashboard.local").
		Execute(m.Wrap(okHandler())).
		AssertStatus(http.StatusOK)

	testhelpers.AssertEqual(t, "http://dashboard.local",
		ctx.Recorder.Header().Get("Access-Control-Allow-Origin"), "origin echoed")
}

func TestCORSRestrictedOrigins(t *testing.T) {
	m := NewCORSMiddleware("http://allowed.local")

	allowed := testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts", nil).
		WithHeader("Origin", "http://allowed.local").
		Execute(m.Wrap(okHandler()))
	testhelpers.AssertEqual(t, "http://allowed.local",
		allowed.Recorder.Header().Get("Access-Control-Allow-Origin"), "allowed origin echoed")

	denied := testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts", nil).
		WithHeader("Origin", "http://evil.local").
		Execute(m.Wrap(okHandler()))
	testhelpers.AssertEqual(t, "",
		denied.Recorder.Header().Get("Access-Control-Allow-Origin"), "denied origin gets no header")
}

func TestCORSWildcardEntryAllowsAnyOrigin(t *testing.T) {
	m := NewCORSMiddleware("*")

	ctx := testhelpers.NewHTTPTestContext(t, http.MethodGet, "/api/alerts", nil).
		WithHeader("Origin", "http://anywhere.local").
		Execute(m.Wrap(okHandler())).
		AssertStatus(http.StatusOK)

	testhelpers.AssertEqual(t, "http://anywhere.local",
		ctx.Recorder.Header().Get("Access-Control-Allow-Origin"), "wildcard echoes origin")
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	m := NewCORSMiddleware()
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	testhelpers.NewHTTPTestContext(t, http.MethodOptions, "/api/alerts", nil).
		WithHeader("Origin", "http://dashboard.local").
		Execute(m.Wrap(inner)).
		AssertStatus(http.StatusOK)

	if called {
		t.Error("preflight request must not reach the inner handler")
	}
}
