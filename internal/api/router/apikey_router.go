package router

import (
	"net/http"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/api/endpoints"
	"visitor-tracker-backend/internal/api/middleware"
)

func APIKeyRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		apiKeyEndpoints := endpoints.NewAPIKeyEndpoints(s.Database())
		mux.HandleFunc(prefix+"/keys", s.MakeHTTPHandleFunc(apiKeyEndpoints.Keys, middleware.ValidateUserJWT))
	}
}
