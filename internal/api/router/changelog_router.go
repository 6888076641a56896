package router

import (
	"net/http"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/api/endpoints"
	"visitor-tracker-backend/internal/api/middleware"
)

func ChangelogRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		changelogEndpoints := endpoints.NewChangelogEndpoints(s.Database())
		mux.HandleFunc(prefix+"/changelog", s.MakeHTTPHandleFunc(changelogEndpoints.Entries, changelogMethodGuard))
	}
}

// changelogMethodGuard leaves reads public but requires a user token for
// anything that mutates the feed.
func changelogMethodGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			next(w, r)
			return
		}
		middleware.ValidateUserJWT(next)(w, r)
	}
}
