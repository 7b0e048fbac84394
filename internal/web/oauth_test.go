package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/config"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
)

func TestAuthorizeURL(t *testing.T) {
	got := AuthorizeURL(config.ZoomConfig{
		ClientID:    "abc123",
		RedirectURI: "http://localhost:5005/zoom_oauth_callback",
	})

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("AuthorizeURL returned unparseable URL: %v", err)
	}
	if u.Host != "zoom.us" || u.Path != "/oauth/authorize" {
		t.Errorf("URL = %s, want zoom.us/oauth/authorize", got)
	}
	q := u.Query()
	if q.Get("response_type") != "code" || q.Get("client_id") != "abc123" ||
		q.Get("redirect_uri") != "http://localhost:5005/zoom_oauth_callback" {
		t.Errorf("query = %v", q)
	}
}

func TestOAuthStart_Redirects(t *testing.T) {
	env := setupEnv(t)

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Location"), "https://zoom.us/oauth/authorize?") {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestCallback_ProviderError(t *testing.T) {
	env := setupEnv(t)

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?error=access_denied", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "access_denied") {
		t.Error("provider error not surfaced in response body")
	}
	if env.upstreamCalls.Load() != 0 {
		t.Error("provider error still triggered an upstream call")
	}
}

func TestCallback_MissingCode(t *testing.T) {
	env := setupEnv(t)

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if env.upstreamCalls.Load() != 0 {
		t.Error("missing code still triggered an upstream call")
	}
}

func TestCallback_Success(t *testing.T) {
	env := setupEnv(t)
	env.setUpstream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"user_id":"zoom-u1","state":"connected","scopes":"meeting:read"}`))
	})

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=auth-code", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d -> %q, want 302 -> /dashboard; body: %s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}

	// Record persisted with the exchange response verbatim.
	rec, err := env.store.Get("zoom-u1")
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if rec["scopes"] != "meeting:read" {
		t.Errorf("stored record = %v, want exchange payload verbatim", rec)
	}

	// Session established.
	signedIn := false
	for _, c := range rr.Result().Cookies() {
		if c.Value != "" && c.MaxAge > 0 {
			signedIn = true
		}
	}
	if !signedIn {
		t.Error("callback did not set a session cookie")
	}

	// Connection creation journaled.
	events, err := env.journal.ListByUser("zoom-u1", 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != journal.KindConnectionCreated {
		t.Errorf("journal = %+v, want one connection_created event", events)
	}
}

func TestCallback_RepeatExchangeOverwrites(t *testing.T) {
	env := setupEnv(t)

	env.setUpstream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"user_id":"zoom-u1","first":"yes"}`))
	})
	env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=c1", nil))

	env.setUpstream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"user_id":"zoom-u1","second":"yes"}`))
	})
	env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=c2", nil))

	rec, err := env.store.Get("zoom-u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, stale := rec["first"]; stale {
		t.Error("repeat exchange did not replace the whole record")
	}
	if rec["second"] != "yes" {
		t.Errorf("record = %v, want fresh authorization payload", rec)
	}
}

func TestCallback_UpstreamRejected(t *testing.T) {
	env := setupEnv(t)
	env.setUpstream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid authorization code"}`))
	})

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=bad", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want upstream 400 surfaced", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid authorization code") {
		t.Error("upstream error message not surfaced")
	}
	if _, err := env.store.Get("zoom-u1"); err == nil {
		t.Error("record stored despite upstream rejection")
	}
}

func TestCallback_MissingUserIDInResponse(t *testing.T) {
	env := setupEnv(t)
	env.setUpstream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"state":"connected"}`))
	})

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=c", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for response without user_id", rr.Code)
	}
}

func TestCallback_UpstreamUnavailable(t *testing.T) {
	// Point at a server that is already gone.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()
	env := setupEnvWithAttendeeURL(t, dead.URL)

	rr := env.serve(httptest.NewRequest(http.MethodGet, "/zoom_oauth_callback?code=c", nil))
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for transport failure", rr.Code)
	}
}
