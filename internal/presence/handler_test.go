package presence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"visitor-tracker-backend/internal/enrich"
	"visitor-tracker-backend/internal/store"
)

type staticResolver map[string]string

func (r staticResolver) ResolveTenant(ctx context.Context, apiKey string) (string, error) {
	tenantID, ok := r[apiKey]
	if !ok {
		return "", fmt.Errorf("unknown api key")
	}
	return tenantID, nil
}

func newTestHandler(t *testing.T, mem *store.Memory, enricher enrich.Enricher) *Handler {
	t.Helper()
	rt := NewRouter(mem, staticResolver{"vtk_good": "tenant-1"}, Config{})
	return NewHandler(rt, enricher)
}

func TestRouterReusesActorPerTenant(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t, mem, nil)

	first, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first != second {
		t.Fatal("expected the same actor for the same tenant")
	}
	if first.TenantID() != "tenant-1" {
		t.Fatalf("unexpected tenant id %s", first.TenantID())
	}
}

func TestRouterRejectsUnknownKey(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t, mem, nil)

	if _, err := h.Router().Resolve(context.Background(), "vtk_bad"); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestIngestNewVisitorAppliesPing(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t, mem, nil)
	actor, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = h.Ingest(context.Background(), actor, CommandEnvelope{
		Type:    MsgNewVisitor,
		Visitor: &VisitorPayload{ID: "v1", Company: "Acme Corp"},
		Website: "/pricing",
		Event:   "page_view",
	}, "203.0.113.7")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.Company != "Acme Corp" || rec.Website != "/pricing" {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestIngestEnrichesWhenCompanyMissing(t *testing.T) {
	mem := store.NewMemory()
	enricher := enrich.NewStatic(map[string]enrich.Company{
		"203.0.113.7": {Name: "Globex", Location: "Springfield, US"},
	})
	h := newTestHandler(t, mem, enricher)
	actor, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = h.Ingest(context.Background(), actor, CommandEnvelope{
		Type:    MsgNewVisitor,
		Visitor: &VisitorPayload{ID: "v1"},
	}, "203.0.113.7")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.Company != "Globex" || rec.Location != "Springfield, US" {
		t.Fatalf("expected enriched record, got %#v", rec)
	}
}

func TestIngestDoesNotOverrideClientCompany(t *testing.T) {
	mem := store.NewMemory()
	enricher := enrich.NewStatic(map[string]enrich.Company{
		"203.0.113.7": {Name: "Globex"},
	})
	h := newTestHandler(t, mem, enricher)
	actor, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = h.Ingest(context.Background(), actor, CommandEnvelope{
		Type:    MsgNewVisitor,
		Visitor: &VisitorPayload{ID: "v1", Company: "Acme Corp"},
	}, "203.0.113.7")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if rec := mem.Snapshot("tenant-1")["v1"]; rec.Company != "Acme Corp" {
		t.Fatalf("client-provided company must win, got %q", rec.Company)
	}
}

func TestIngestValidatesCommands(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t, mem, nil)
	actor, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	cases := []CommandEnvelope{
		{Type: MsgNewVisitor},
		{Type: MsgNewVisitor, Visitor: &VisitorPayload{}},
		{Type: MsgSendVideoInvite, GuestURL: "https://call.example/x"},
		{Type: MsgSendVideoInvite, VisitorID: "v1"},
		{Type: "BOGUS"},
	}
	for _, cmd := range cases {
		if err := h.Ingest(context.Background(), actor, cmd, ""); !errors.Is(err, ErrBadCommand) {
			t.Fatalf("command %+v: expected ErrBadCommand, got %v", cmd, err)
		}
	}
}

func TestIngestInviteForUnknownVisitor(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t, mem, nil)
	actor, err := h.Router().Resolve(context.Background(), "vtk_good")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = h.Ingest(context.Background(), actor, CommandEnvelope{
		Type:      MsgSendVideoInvite,
		VisitorID: "ghost",
		GuestURL:  "https://call.example/g",
	}, "")
	if !errors.Is(err, ErrVisitorNotFound) {
		t.Fatalf("expected ErrVisitorNotFound, got %v", err)
	}
}
