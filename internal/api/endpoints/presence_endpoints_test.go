package endpoints

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/presence"
	"visitor-tracker-backend/internal/queue"
	"visitor-tracker-backend/internal/store"
)

type testResolver map[string]string

func (r testResolver) ResolveTenant(ctx context.Context, apiKey string) (string, error) {
	tenantID, ok := r[apiKey]
	if !ok {
		return "", fmt.Errorf("unknown api key")
	}
	return tenantID, nil
}

func setupPresenceHandler(t *testing.T, mem *store.Memory) (http.Handler, func()) {
	t.Helper()

	presenceRouter := presence.NewRouter(mem, testResolver{"vtk_good": "tenant-1"}, presence.Config{})
	wsHandler := presence.NewHandler(presenceRouter, nil)
	presenceEndpoints := &presenceEndpoints{handler: wsHandler}

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, wsHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/presence/socket", server.MakeHTTPHandleFunc(presenceEndpoints.Socket))
	mux.HandleFunc("/api/presence/command", server.MakeHTTPHandleFunc(presenceEndpoints.Command))

	return mux, func() {
		queueManager.Shutdown()
	}
}

func postCommand(t *testing.T, handler http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCommandRequiresTenantKey(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	rec := postCommand(t, handler, "/api/presence/command", `{"type":"NEW_VISITOR"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCommandRejectsUnknownTenantKey(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	rec := postCommand(t, handler, "/api/presence/command?tenantKey=vtk_bad", `{"type":"NEW_VISITOR"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCommandNewVisitorAccepted(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	body := `{"type":"NEW_VISITOR","visitor":{"id":"v1","company":"Acme Corp"},"website":"/pricing"}`
	rec := postCommand(t, handler, "/api/presence/command?tenantKey=vtk_good", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := mem.Snapshot("tenant-1")["v1"]; rec.Company != "Acme Corp" {
		t.Fatalf("ping not applied: %#v", rec)
	}
}

func TestCommandValidationIsBadRequest(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	cases := []string{
		`{"type":"NEW_VISITOR"}`,
		`{"type":"SEND_VIDEO_INVITE","guestUrl":"https://call.example/x"}`,
		`{"type":"BOGUS"}`,
		`{not json`,
	}
	for _, body := range cases {
		rec := postCommand(t, handler, "/api/presence/command?tenantKey=vtk_good", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestCommandInviteUnknownVisitorIsNotFound(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	body := `{"type":"SEND_VIDEO_INVITE","visitorId":"ghost","guestUrl":"https://call.example/g"}`
	rec := postCommand(t, handler, "/api/presence/command?tenantKey=vtk_good", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCommandPersistenceFailureIsServerError(t *testing.T) {
	mem := store.NewMemory()
	mem.FailSaves = true
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	body := `{"type":"NEW_VISITOR","visitor":{"id":"v1"}}`
	rec := postCommand(t, handler, "/api/presence/command?tenantKey=vtk_good", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSocketValidatesParameters(t *testing.T) {
	mem := store.NewMemory()
	handler, cleanup := setupPresenceHandler(t, mem)
	defer cleanup()

	cases := []struct {
		target string
		status int
	}{
		{"/api/presence/socket", http.StatusUnauthorized},
		{"/api/presence/socket?tenantKey=vtk_bad", http.StatusUnauthorized},
		{"/api/presence/socket?tenantKey=vtk_good&role=robot", http.StatusBadRequest},
		{"/api/presence/socket?tenantKey=vtk_good&role=visitor", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.target, tc.status, rec.Code, rec.Body.String())
		}
	}
}
