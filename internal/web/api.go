package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/attendee"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
)

const maxAPIBodySize = 1 << 20 // 1MB

func handleAPIUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := deps.Sessions.CurrentUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "Not authenticated")
			return
		}

		rec, err := deps.Store.Get(userID)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "User not found")
			return
		}
		if err != nil {
			deps.Logger.Error("reading connection record", "user_id", userID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Error reading connection")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"userId":         userID,
			"connectionData": rec,
		})
	}
}

type launchBotRequest struct {
	MeetingURL string `json:"meeting_url"`
	BotName    string `json:"bot_name"`
}

func handleLaunchBot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := deps.Sessions.CurrentUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "Not authenticated")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxAPIBodySize)
		defer r.Body.Close()

		var req launchBotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.MeetingURL == "" || req.BotName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "meeting_url and bot_name are required")
			return
		}

		deps.Logger.Info("launching bot", "bot_name", req.BotName, "meeting_url", req.MeetingURL, "user_id", userID)

		resp, err := deps.Attendee.CreateBot(r.Context(), attendee.BotRequest{
			MeetingURL: req.MeetingURL,
			BotName:    req.BotName,
			UserID:     userID,
		})
		if err != nil {
			deps.Logger.Error("launching bot", "user_id", userID, "error", err)
			appendEvent(deps, journal.Event{UserID: userID, Kind: journal.KindBotLaunchFailed, Detail: err.Error()})
			var apiErr *attendee.APIError
			if errors.As(err, &apiErr) {
				status := apiErr.Status
				if status < http.StatusBadRequest {
					status = http.StatusBadRequest
				}
				httpError(w, status, "api_error", "%s", apiErr.Message)
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "Error reaching Attendee API")
			return
		}

		appendEvent(deps, journal.Event{UserID: userID, Kind: journal.KindBotLaunched, Detail: string(resp)})

		// Upstream response body is returned verbatim.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(resp)
	}
}

func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := deps.Sessions.CurrentUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "Not authenticated")
			return
		}

		if deps.Journal == nil {
			writeJSON(w, http.StatusOK, []journal.Event{})
			return
		}
		events, err := deps.Journal.ListByUser(userID, 50)
		if err != nil {
			deps.Logger.Error("listing journal events", "user_id", userID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "Error listing events")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
