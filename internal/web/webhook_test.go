package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
)

func postWebhook(env *testEnv, body string) *httptest.ResponseRecorder {
	return env.serve(httptest.NewRequest(http.MethodPost, "/attendee-webhook", strings.NewReader(body)))
}

func TestWebhook_UnrecognizedTrigger(t *testing.T) {
	env := setupEnv(t)
	if err := env.store.Put("u1", store.Record{"user_id": "u1", "state": "connected"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rr := postWebhook(env, `{"trigger":"bot.state_change","user_id":"u1","data":{"state":"ended"}}`)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}

	rec, err := env.store.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec["state"] != "connected" {
		t.Error("unrecognized trigger mutated the store")
	}
}

func TestWebhook_MissingUserID(t *testing.T) {
	env := setupEnv(t)

	rr := postWebhook(env, `{"trigger":"zoom_oauth_connection.state_change","data":{"state":"connected"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed event", rr.Code)
	}
}

func TestWebhook_InvalidBody(t *testing.T) {
	env := setupEnv(t)

	rr := postWebhook(env, `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for undecodable body", rr.Code)
	}
}

func TestWebhook_UnknownUser(t *testing.T) {
	env := setupEnv(t)

	rr := postWebhook(env, `{"trigger":"zoom_oauth_connection.state_change","user_id":"ghost","data":{"state":"connected"}}`)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 acknowledgement", rr.Code)
	}

	// A webhook never creates a record.
	if _, err := env.store.Get("ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Error("webhook for unknown user created a record")
	}

	events, err := env.journal.ListByUser("ghost", 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != journal.KindWebhookDiscarded {
		t.Errorf("journal = %+v, want one webhook_discarded event", events)
	}
}

func TestWebhook_MissingData(t *testing.T) {
	env := setupEnv(t)
	if err := env.store.Put("u1", store.Record{"user_id": "u1", "state": "connected"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rr := postWebhook(env, `{"trigger":"zoom_oauth_connection.state_change","user_id":"u1"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 acknowledgement", rr.Code)
	}

	// An event without a data object must not touch the record.
	rec, err := env.store.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec["state"] != "connected" {
		t.Errorf("state = %v, want connected untouched", rec["state"])
	}
	if _, present := rec["connection_failure_data"]; present {
		t.Error("event without data wrote status fields into the record")
	}

	events, err := env.journal.ListByUser("u1", 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != journal.KindWebhookFailed {
		t.Errorf("journal = %+v, want one webhook_failed event", events)
	}
}

func TestWebhook_EndToEndMerge(t *testing.T) {
	env := setupEnv(t)
	if err := env.store.Put("u1", store.Record{
		"user_id": "u1",
		"foo":     float64(1),
		"state":   "connected",
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rr := postWebhook(env, `{
		"trigger": "zoom_oauth_connection.state_change",
		"user_id": "u1",
		"data": {
			"state": "disconnected",
			"last_attempted_sync_at": "2026-08-28T10:00:00Z",
			"last_successful_sync_at": null,
			"connection_failure_data": {"code": "timeout"}
		}
	}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	rec, err := env.store.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec["state"] != "disconnected" {
		t.Errorf("state = %v, want disconnected", rec["state"])
	}
	failure, _ := rec["connection_failure_data"].(map[string]any)
	if failure["code"] != "timeout" {
		t.Errorf("connection_failure_data = %v, want code=timeout", rec["connection_failure_data"])
	}
	if rec["foo"] != float64(1) {
		t.Error("merge lost a payload field the event did not mention")
	}
	if rec["last_attempted_sync_at"] != "2026-08-28T10:00:00Z" {
		t.Errorf("last_attempted_sync_at = %v", rec["last_attempted_sync_at"])
	}
	if rec["last_successful_sync_at"] != nil {
		t.Errorf("last_successful_sync_at = %v, want explicit null stored", rec["last_successful_sync_at"])
	}

	events, err := env.journal.ListByUser("u1", 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(events) != 1 || events[0].Kind != journal.KindWebhookMerged {
		t.Errorf("journal = %+v, want one webhook_merged event", events)
	}
}

func TestWebhook_MergeIdempotent(t *testing.T) {
	env := setupEnv(t)
	if err := env.store.Put("u1", store.Record{"user_id": "u1", "foo": "bar"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	body := `{"trigger":"zoom_oauth_connection.state_change","user_id":"u1","data":{"state":"syncing"}}`
	postWebhook(env, body)
	first, err := env.store.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	postWebhook(env, body)
	second, err := env.store.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if len(first) != len(second) || first["state"] != second["state"] || first["foo"] != second["foo"] {
		t.Errorf("repeat delivery changed the record: %v vs %v", first, second)
	}
}
