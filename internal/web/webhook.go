package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
)

// stateChangeTrigger is the only webhook trigger the relay processes.
const stateChangeTrigger = "zoom_oauth_connection.state_change"

type webhookEvent struct {
	Trigger string             `json:"trigger"`
	UserID  string             `json:"user_id"`
	Data    *store.StatusPatch `json:"data"`
}

// handleWebhook applies Attendee connection state changes to the stored
// record. Responses are acknowledgements only: aside from the malformed-event
// cases, every outcome including a failed merge answers 200, so the sender
// never retries a delivery that may already have partially applied. Failures
// are logged and journaled instead.
func handleWebhook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAPIBodySize)
		defer r.Body.Close()

		var event webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			deps.Logger.Error("decoding webhook body", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid webhook body"})
			return
		}

		if event.Trigger != stateChangeTrigger {
			deps.Logger.Info("ignoring webhook", "trigger", event.Trigger)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received but not processed"})
			return
		}

		if event.UserID == "" {
			deps.Logger.Error("webhook missing user_id")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing user_id"})
			return
		}

		if event.Data == nil {
			deps.Logger.Error("webhook missing data object", "user_id", event.UserID)
			appendEvent(deps, journal.Event{UserID: event.UserID, Kind: journal.KindWebhookFailed, Detail: "missing data object"})
			writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received but error occurred during processing"})
			return
		}

		err := deps.Store.Merge(event.UserID, *event.Data)
		if errors.Is(err, store.ErrNotFound) {
			deps.Logger.Info("webhook for unknown user, skipping update", "user_id", event.UserID)
			appendEvent(deps, journal.Event{UserID: event.UserID, Kind: journal.KindWebhookDiscarded, Detail: "no stored connection"})
			writeJSON(w, http.StatusOK, map[string]string{"message": "User not found, webhook acknowledged"})
			return
		}
		if err != nil {
			deps.Logger.Error("merging webhook state", "user_id", event.UserID, "error", err)
			appendEvent(deps, journal.Event{UserID: event.UserID, Kind: journal.KindWebhookFailed, Detail: err.Error()})
			writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received but error occurred during processing"})
			return
		}

		state, _ := event.Data.State.(string)
		deps.Logger.Info("updated connection state", "user_id", event.UserID, "state", state)
		if state == "disconnected" && event.Data.ConnectionFailureData != nil {
			deps.Logger.Error("connection failed", "user_id", event.UserID, "failure_data", event.Data.ConnectionFailureData)
		}

		detail, _ := json.Marshal(event.Data)
		appendEvent(deps, journal.Event{UserID: event.UserID, Kind: journal.KindWebhookMerged, Detail: string(detail)})

		writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed successfully"})
	}
}
