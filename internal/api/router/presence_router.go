package router

import (
	"net/http"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/api/endpoints"
)

func PresenceRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		presenceEndpoints := endpoints.NewPresenceEndpoints(s.Handler())
		mux.HandleFunc(prefix+"/presence/socket", s.MakeHTTPHandleFunc(presenceEndpoints.Socket))
		mux.HandleFunc(prefix+"/presence/command", s.MakeHTTPHandleFunc(presenceEndpoints.Command))
	}
}
