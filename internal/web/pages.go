package web

import (
	"embed"
	"errors"
	"net/http"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
)

//go:embed static
var staticFS embed.FS

func servePage(w http.ResponseWriter, name string) {
	data, err := staticFS.ReadFile("static/" + name)
	if err != nil {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func handleHome(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := deps.Sessions.CurrentUser(r); ok {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		servePage(w, "signin.html")
	}
}

func handleDashboard(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := deps.Sessions.CurrentUser(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		if _, err := deps.Store.Get(userID); err != nil {
			// A session referencing a vanished record is stale: clear it.
			// Anything else is a storage failure the session cannot cure.
			if errors.Is(err, store.ErrNotFound) {
				deps.Sessions.SignOut(w)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			deps.Logger.Error("reading connection record", "user_id", userID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		servePage(w, "dashboard.html")
	}
}

func handleLogout(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sessions.SignOut(w)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}
