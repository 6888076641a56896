package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"visitor-tracker-backend/internal/model"
	"visitor-tracker-backend/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func baseTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func startTestActor(t *testing.T, mem *store.Memory, clock *fakeClock) *Actor {
	t.Helper()
	a := newActorWithClock("tenant-1", mem, Config{}, clock.Now)
	a.Start()
	return a
}

func dashboardConn(id string) *Conn {
	return newConn(nil, model.ConnectionMetaItem{
		ConnID:   id,
		TenantID: "tenant-1",
		Role:     model.RoleDashboard,
	})
}

func visitorConn(id, visitorID string) *Conn {
	return newConn(nil, model.ConnectionMetaItem{
		ConnID:    id,
		TenantID:  "tenant-1",
		Role:      model.RoleVisitor,
		VisitorID: visitorID,
	})
}

func recvMsg(t *testing.T, c *Conn) interface{} {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMsg(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %#v", msg)
	default:
	}
}

func TestApplyPingCreatesAndMergesVisitor(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	err := a.ApplyPing(context.Background(), PingDelta{
		VisitorID: "v1",
		Company:   "Acme Corp",
		Website:   "/pricing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.ID != "v1" || rec.Company != "Acme Corp" || rec.Website != "/pricing" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.PageViews != 1 {
		t.Fatalf("expected 1 page view, got %d", rec.PageViews)
	}
	if rec.Status != model.VisitorStatusActive {
		t.Fatalf("expected active status, got %s", rec.Status)
	}
	if rec.LastActivity != baseTime().Unix() {
		t.Fatalf("expected last activity %d, got %d", baseTime().Unix(), rec.LastActivity)
	}

	clock.Advance(5 * time.Second)
	err = a.ApplyPing(context.Background(), PingDelta{
		VisitorID: "v1",
		Location:  "Berlin, DE",
		Website:   "/docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec = mem.Snapshot("tenant-1")["v1"]
	if rec.Company != "Acme Corp" {
		t.Fatalf("company should survive a ping without one, got %q", rec.Company)
	}
	if rec.Location != "Berlin, DE" || rec.Website != "/docs" {
		t.Fatalf("unexpected record after merge: %#v", rec)
	}
	if rec.PageViews != 2 {
		t.Fatalf("expected 2 page views, got %d", rec.PageViews)
	}
	if rec.LastActivity != baseTime().Add(5*time.Second).Unix() {
		t.Fatalf("last activity not advanced: %d", rec.LastActivity)
	}
}

func TestApplyPingNeverRewindsLastActivity(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(-10 * time.Second)
	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.LastActivity != baseTime().Unix() {
		t.Fatalf("last activity rewound to %d", rec.LastActivity)
	}
	if rec.PageViews != 2 {
		t.Fatalf("expected 2 page views, got %d", rec.PageViews)
	}
}

func TestApplyPingBroadcastsToDashboardsOnly(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	dash := dashboardConn("d1")
	vc := visitorConn("c1", "v1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	if err := a.Attach(context.Background(), vc); err != nil {
		t.Fatalf("attach visitor: %v", err)
	}
	recvMsg(t, dash) // initial snapshot
	recvMsg(t, vc)   // connected ack

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1", Event: "page_view"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update, ok := recvMsg(t, dash).(VisitorUpdateMsg)
	if !ok {
		t.Fatalf("expected VisitorUpdateMsg")
	}
	if update.Type != MsgVisitorUpdate || update.Visitor.ID != "v1" || update.Event != "page_view" {
		t.Fatalf("unexpected update: %#v", update)
	}
	assertNoMsg(t, vc)
}

func TestApplyPingSaveFailureIsNotBroadcast(t *testing.T) {
	mem := store.NewMemory()
	mem.FailSaves = true
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"})
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	assertNoMsg(t, dash)
	if len(mem.Snapshot("tenant-1")) != 0 {
		t.Fatal("failed save must not reach the store")
	}
}

func TestConcurrentPingsAllPersist(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := a.ApplyPing(context.Background(), PingDelta{
				VisitorID: fmt.Sprintf("v%02d", i),
			})
			if err != nil {
				t.Errorf("ping %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	snapshot := mem.Snapshot("tenant-1")
	if len(snapshot) != n {
		t.Fatalf("expected %d visitors, got %d", n, len(snapshot))
	}
	if mem.SaveCount != n {
		t.Fatalf("expected %d sequential writes, got %d", n, mem.SaveCount)
	}
}

func TestOpsQueuedDuringLoadApplyAfterSnapshot(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())

	err := mem.SaveState(context.Background(), "tenant-1", map[string]model.VisitorRecord{
		"restored": {
			ID:           "restored",
			Status:       model.VisitorStatusActive,
			PageViews:    3,
			LastActivity: baseTime().Unix(),
		},
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}

	a := startTestActor(t, mem, clock)
	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "fresh"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}

	initial, ok := recvMsg(t, dash).(InitialVisitorsMsg)
	if !ok {
		t.Fatalf("expected InitialVisitorsMsg")
	}
	if len(initial.Visitors) != 2 {
		t.Fatalf("expected restored+fresh visitors, got %#v", initial.Visitors)
	}
	if initial.Visitors[0].ID != "fresh" || initial.Visitors[1].ID != "restored" {
		t.Fatalf("expected sorted visitor list, got %#v", initial.Visitors)
	}
}

func TestAttachPersistsConnectionMetadata(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	vc := visitorConn("c1", "v1")
	if err := a.Attach(context.Background(), vc); err != nil {
		t.Fatalf("attach: %v", err)
	}

	ack, ok := recvMsg(t, vc).(ConnectedMsg)
	if !ok || ack.Type != MsgConnected || ack.VisitorID != "v1" {
		t.Fatalf("unexpected ack: %#v", ack)
	}

	conns, err := mem.ListConnections(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("list connections: %v", err)
	}
	if len(conns) != 1 || conns[0].ConnID != "c1" || conns[0].VisitorID != "v1" {
		t.Fatalf("unexpected metadata: %#v", conns)
	}

	a.connectionClosed(vc)
	a.forceCleanup(context.Background())

	conns, err = mem.ListConnections(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("list connections: %v", err)
	}
	if len(conns) != 0 {
		t.Fatalf("metadata should be deleted on detach, got %#v", conns)
	}
}

func TestSendInviteUnknownVisitor(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	err := a.SendInvite(context.Background(), "ghost", "https://call.example/g")
	if !errors.Is(err, ErrVisitorNotFound) {
		t.Fatalf("expected ErrVisitorNotFound, got %v", err)
	}
}

func TestSendInviteDeliversToVisitorAndEchoesToDashboards(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	vc := visitorConn("c1", "v1")
	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), vc); err != nil {
		t.Fatalf("attach visitor: %v", err)
	}
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, vc)
	recvMsg(t, dash)

	if err := a.SendInvite(context.Background(), "v1", "https://call.example/v1"); err != nil {
		t.Fatalf("invite: %v", err)
	}

	invite, ok := recvMsg(t, vc).(VideoInviteMsg)
	if !ok || invite.Type != MsgVideoInvite || invite.GuestURL != "https://call.example/v1" {
		t.Fatalf("unexpected invite: %#v", invite)
	}

	echo, ok := recvMsg(t, dash).(VideoInviteSentMsg)
	if !ok || echo.Type != MsgVideoInviteSent || echo.VisitorID != "v1" {
		t.Fatalf("unexpected echo: %#v", echo)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.Status != model.VisitorStatusVideoInvited {
		t.Fatalf("expected video_invited status, got %s", rec.Status)
	}
	if rec.GuestURL != "https://call.example/v1" {
		t.Fatalf("guest url not persisted: %#v", rec)
	}
}

func TestSendInviteSaveFailure(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	// Toggle through the actor goroutine so the write happens-before the
	// next SaveState.
	a.forceCleanup(context.Background())
	mem.FailSaves = true

	err := a.SendInvite(context.Background(), "v1", "https://call.example/v1")
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
}

func TestCallAcceptedFrameMarksInCall(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	vc := visitorConn("c1", "v1")
	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), vc); err != nil {
		t.Fatalf("attach visitor: %v", err)
	}
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, vc)
	recvMsg(t, dash)

	a.handleFrame(vc, []byte(`{"type":"CALL_ACCEPTED"}`))

	update, ok := recvMsg(t, dash).(VisitorUpdateMsg)
	if !ok || update.Event != "call_accepted" {
		t.Fatalf("unexpected update: %#v", update)
	}
	if update.Visitor.Status != model.VisitorStatusInCall {
		t.Fatalf("expected in_call status, got %s", update.Visitor.Status)
	}

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.Status != model.VisitorStatusInCall {
		t.Fatalf("in_call not persisted: %#v", rec)
	}
}

func TestCallAcceptedIgnoredFromDashboards(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	a.handleFrame(dash, []byte(`{"type":"CALL_ACCEPTED"}`))
	a.forceCleanup(context.Background())
	recvMsg(t, dash) // cleanup's visitor list

	rec := mem.Snapshot("tenant-1")["v1"]
	if rec.Status != model.VisitorStatusActive {
		t.Fatalf("dashboard frame must not change status, got %s", rec.Status)
	}
}

func TestPingFrameRepliesWithPong(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	a.handleFrame(dash, []byte(`{"type":"PING"}`))
	pong, ok := recvMsg(t, dash).(PongMsg)
	if !ok || pong.Type != MsgPong {
		t.Fatalf("unexpected reply: %#v", pong)
	}
	if pong.Timestamp != baseTime().Unix() {
		t.Fatalf("unexpected pong timestamp %d", pong.Timestamp)
	}
}

func TestGetVisitorsFrameReturnsSortedList(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	for _, id := range []string{"v2", "v1", "v3"} {
		if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: id}); err != nil {
			t.Fatalf("ping %s: %v", id, err)
		}
	}

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	a.handleFrame(dash, []byte(`{"type":"GET_VISITORS"}`))
	list, ok := recvMsg(t, dash).(VisitorListMsg)
	if !ok || list.Type != MsgVisitorList {
		t.Fatalf("unexpected reply: %#v", list)
	}
	if len(list.Visitors) != 3 {
		t.Fatalf("expected 3 visitors, got %d", len(list.Visitors))
	}
	for i, want := range []string{"v1", "v2", "v3"} {
		if list.Visitors[i].ID != want {
			t.Fatalf("expected %s at %d, got %s", want, i, list.Visitors[i].ID)
		}
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	a.handleFrame(dash, []byte(`{not json`))
	a.forceCleanup(context.Background())
	recvMsg(t, dash) // cleanup's visitor list proves the actor is still serving
	assertNoMsg(t, dash)
}

func TestCleanupEvictsOnlyPastThreshold(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "old"}); err != nil {
		t.Fatalf("ping old: %v", err)
	}
	clock.Advance(defaultInactivityThreshold)
	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "young"}); err != nil {
		t.Fatalf("ping young: %v", err)
	}

	// "old" is idle for exactly the threshold: still kept.
	a.forceCleanup(context.Background())
	if len(mem.Snapshot("tenant-1")) != 2 {
		t.Fatalf("visitor at the threshold boundary must survive: %#v", mem.Snapshot("tenant-1"))
	}

	clock.Advance(time.Second)
	dash := dashboardConn("d1")
	if err := a.Attach(context.Background(), dash); err != nil {
		t.Fatalf("attach dashboard: %v", err)
	}
	recvMsg(t, dash)

	a.forceCleanup(context.Background())

	snapshot := mem.Snapshot("tenant-1")
	if _, ok := snapshot["old"]; ok {
		t.Fatal("expected old visitor to be evicted")
	}
	if _, ok := snapshot["young"]; !ok {
		t.Fatal("young visitor must survive")
	}

	list, ok := recvMsg(t, dash).(VisitorListMsg)
	if !ok {
		t.Fatalf("expected VisitorListMsg after cleanup")
	}
	if len(list.Visitors) != 1 || list.Visitors[0].ID != "young" {
		t.Fatalf("unexpected pruned list: %#v", list.Visitors)
	}
}

func TestCleanupRearmsWhileBusy(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	clock.Advance(10 * time.Second)
	a.forceCleanup(context.Background())

	wakeAt, err := mem.GetWake(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("expected a pending wake: %v", err)
	}
	want := baseTime().Add(10 * time.Second).Add(defaultCleanupInterval)
	if !wakeAt.Equal(want) {
		t.Fatalf("expected wake at %v, got %v", want, wakeAt)
	}
}

func TestCleanupClearsWakeWhenFullyIdle(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())
	a := startTestActor(t, mem, clock)

	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v1"}); err != nil {
		t.Fatalf("ping: %v", err)
	}

	clock.Advance(defaultInactivityThreshold + time.Second)
	a.forceCleanup(context.Background())

	if len(mem.Snapshot("tenant-1")) != 0 {
		t.Fatal("expected all visitors evicted")
	}
	if _, err := mem.GetWake(context.Background(), "tenant-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected wake cleared, got %v", err)
	}

	// The next ping re-arms the schedule.
	if err := a.ApplyPing(context.Background(), PingDelta{VisitorID: "v2"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := mem.GetWake(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("expected wake re-armed: %v", err)
	}
}

func TestLoadRestoresOverdueWakeAndFiresIt(t *testing.T) {
	mem := store.NewMemory()
	clock := newFakeClock(baseTime())

	// A crash left behind a stale visitor and a wake that is already due.
	err := mem.SaveState(context.Background(), "tenant-1", map[string]model.VisitorRecord{
		"stale": {
			ID:           "stale",
			Status:       model.VisitorStatusActive,
			LastActivity: baseTime().Add(-2 * defaultInactivityThreshold).Unix(),
		},
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}
	if err := mem.SetWake(context.Background(), "tenant-1", baseTime().Add(-time.Minute)); err != nil {
		t.Fatalf("seed wake: %v", err)
	}

	startTestActor(t, mem, clock)

	// The overdue timer arms with a zero duration, so the cleanup pass runs
	// without any operation being posted.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(mem.Snapshot("tenant-1")) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale visitor never evicted: %#v", mem.Snapshot("tenant-1"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := mem.GetWake(context.Background(), "tenant-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected wake cleared after idle cleanup, got %v", err)
	}
}
