package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/attendee"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/config"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
)

const zoomAuthorizeEndpoint = "https://zoom.us/oauth/authorize"

// AuthorizeURL builds the Zoom authorize URL for the configured client.
// Construction is deterministic; no CSRF state parameter is attached.
func AuthorizeURL(cfg config.ZoomConfig) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", cfg.ClientID)
	params.Set("redirect_uri", cfg.RedirectURI)
	return zoomAuthorizeEndpoint + "?" + params.Encode()
}

func handleOAuthStart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, AuthorizeURL(deps.Config.Zoom), http.StatusFound)
	}
}

func handleOAuthCallback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if zoomErr := r.URL.Query().Get("error"); zoomErr != "" {
			http.Error(w, "Zoom returned an error: "+zoomErr, http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code parameter", http.StatusBadRequest)
			return
		}

		deps.Logger.Info("received authorization code, calling Attendee API")

		userID, connection, err := deps.Attendee.CreateConnection(r.Context(), attendee.ConnectionRequest{
			AuthorizationCode:              code,
			RedirectURI:                    deps.Config.Zoom.RedirectURI,
			IsLocalRecordingTokenSupported: deps.Config.Attendee.LocalRecordingTokenSupported,
			IsOnbehalfTokenSupported:       deps.Config.Attendee.OnbehalfTokenSupported,
		})
		if err != nil {
			deps.Logger.Error("creating zoom oauth connection", "error", err)
			var apiErr *attendee.APIError
			if errors.As(err, &apiErr) {
				status := apiErr.Status
				if status < http.StatusBadRequest {
					// A 2xx that still failed (wrong status, missing
					// user_id) is a rejection, not a success.
					status = http.StatusBadRequest
				}
				http.Error(w, "Error creating Zoom OAuth connection: "+apiErr.Message, status)
				return
			}
			http.Error(w, "Error reaching Attendee API", http.StatusBadGateway)
			return
		}

		if err := deps.Store.Put(userID, connection); err != nil {
			deps.Logger.Error("saving connection record", "user_id", userID, "error", err)
			http.Error(w, "Error saving connection", http.StatusInternalServerError)
			return
		}
		deps.Logger.Info("saved connection record", "user_id", userID)
		appendEvent(deps, journal.Event{UserID: userID, Kind: journal.KindConnectionCreated})

		if err := deps.Sessions.SignIn(w, userID); err != nil {
			deps.Logger.Error("signing in session", "user_id", userID, "error", err)
			http.Error(w, "Error establishing session", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}
}
