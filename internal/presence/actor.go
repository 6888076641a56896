package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"visitor-tracker-backend/internal/model"
	"visitor-tracker-backend/internal/store"
)

const (
	defaultInactivityThreshold = 60 * time.Second
	defaultCleanupInterval     = 30 * time.Second
)

type Config struct {
	InactivityThreshold time.Duration
	CleanupInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.InactivityThreshold == 0 {
		c.InactivityThreshold = defaultInactivityThreshold
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaultCleanupInterval
	}
	return c
}

type opKind int

const (
	opAttach opKind = iota
	opDetach
	opPing
	opInvite
	opFrame
	opCleanup
)

type op struct {
	kind      opKind
	ctx       context.Context
	conn      *Conn
	ping      PingDelta
	visitorID string
	guestURL  string
	frame     Frame
	reply     chan error
}

// Actor is the single authority over one tenant's visitors and connections.
// All operations drain through one goroutine in arrival order, which is the
// only mechanism guarding the shared maps. Operations posted while the
// persisted snapshot is still loading queue up in the channel and are applied
// once loading completes, never dropped.
type Actor struct {
	tenantID string
	store    store.Store
	registry *Registry
	visitors map[string]model.VisitorRecord
	cfg      Config
	now      func() time.Time

	ops   chan op
	wake  *time.Timer
	wakeC <-chan time.Time
}

func NewActor(tenantID string, st store.Store, cfg Config) *Actor {
	return newActorWithClock(tenantID, st, cfg, time.Now)
}

func newActorWithClock(tenantID string, st store.Store, cfg Config, now func() time.Time) *Actor {
	return &Actor{
		tenantID: tenantID,
		store:    st,
		registry: NewRegistry(),
		visitors: make(map[string]model.VisitorRecord),
		cfg:      cfg.withDefaults(),
		now:      now,
		ops:      make(chan op, 64),
	}
}

func (a *Actor) TenantID() string {
	return a.tenantID
}

func (a *Actor) Start() {
	incActors()
	go a.run()
}

func (a *Actor) run() {
	a.load()

	for {
		select {
		case o := <-a.ops:
			a.handle(o)
		case <-a.wakeC:
			a.cleanup(context.Background())
		}
	}
}

// load restores the snapshot and the wake schedule before any queued
// operation is applied.
func (a *Actor) load() {
	ctx := context.Background()

	visitors, err := a.store.LoadState(ctx, a.tenantID)
	if err != nil {
		log.Printf("Tenant %s: failed to load snapshot, starting empty: %v", a.tenantID, err)
		visitors = make(map[string]model.VisitorRecord)
	}
	a.visitors = visitors

	wakeAt, err := a.store.GetWake(ctx, a.tenantID)
	switch {
	case err == nil:
		a.armTimer(wakeAt)
	case errors.Is(err, store.ErrNotFound):
		a.scheduleWake(ctx, a.now().Add(a.cfg.CleanupInterval))
	default:
		log.Printf("Tenant %s: failed to read wake, rescheduling: %v", a.tenantID, err)
		a.scheduleWake(ctx, a.now().Add(a.cfg.CleanupInterval))
	}
}

func (a *Actor) handle(o op) {
	switch o.kind {
	case opAttach:
		err := a.attach(o.ctx, o.conn)
		o.reply <- err
	case opDetach:
		a.detach(o.ctx, o.conn)
	case opPing:
		o.reply <- a.applyPing(o.ctx, o.ping)
	case opInvite:
		o.reply <- a.sendInvite(o.ctx, o.visitorID, o.guestURL)
	case opFrame:
		a.applyFrame(o.ctx, o.conn, o.frame)
	case opCleanup:
		a.cleanup(o.ctx)
		if o.reply != nil {
			o.reply <- nil
		}
	}
}

// Attach registers a freshly upgraded socket, persists its identity metadata,
// sends the initial snapshot and re-arms the cleanup schedule.
func (a *Actor) Attach(ctx context.Context, c *Conn) error {
	reply := make(chan error, 1)
	a.ops <- op{kind: opAttach, ctx: ctx, conn: c, reply: reply}
	return <-reply
}

// ApplyPing upserts the visitor named by the delta and fans the update out to
// dashboards. Returns ErrNotPersisted when the snapshot write fails.
func (a *Actor) ApplyPing(ctx context.Context, d PingDelta) error {
	reply := make(chan error, 1)
	a.ops <- op{kind: opPing, ctx: ctx, ping: d, reply: reply}
	return <-reply
}

// SendInvite pushes a video-call invite into the visitor's browser and echoes
// the event to dashboards.
func (a *Actor) SendInvite(ctx context.Context, visitorID, guestURL string) error {
	reply := make(chan error, 1)
	a.ops <- op{kind: opInvite, ctx: ctx, visitorID: visitorID, guestURL: guestURL, reply: reply}
	return <-reply
}

func (a *Actor) connectionClosed(c *Conn) {
	a.ops <- op{kind: opDetach, ctx: context.Background(), conn: c}
}

// handleFrame parses one inbound socket frame. Malformed frames are logged
// and dropped before any mutation; socket-level failures never become
// structured error frames.
func (a *Actor) handleFrame(c *Conn, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Connection %s: malformed frame: %v", c.ID, err)
		return
	}
	a.ops <- op{kind: opFrame, ctx: context.Background(), conn: c, frame: frame}
}

// forceCleanup runs one cleanup pass synchronously. Used by tests to fire the
// wake deterministically; the timer path runs the same code.
func (a *Actor) forceCleanup(ctx context.Context) {
	reply := make(chan error, 1)
	a.ops <- op{kind: opCleanup, ctx: ctx, reply: reply}
	<-reply
}

func (a *Actor) attach(ctx context.Context, c *Conn) error {
	a.registry.Add(c)

	if err := a.store.PutConnection(ctx, c.Meta); err != nil {
		// The registry still serves this conn; only restart recovery of
		// its identity is degraded.
		log.Printf("Tenant %s: failed to persist connection metadata %s: %v", a.tenantID, c.ID, err)
	}

	switch c.Meta.Role {
	case model.RoleDashboard:
		c.enqueue(InitialVisitorsMsg{Type: MsgInitialVisitors, Visitors: a.visitorList()})
	case model.RoleVisitor:
		c.enqueue(ConnectedMsg{Type: MsgConnected, VisitorID: c.Meta.VisitorID})
	}

	a.ensureWake(ctx)
	return nil
}

func (a *Actor) detach(ctx context.Context, c *Conn) {
	a.registry.Remove(c)
	if err := a.store.DeleteConnection(ctx, a.tenantID, c.ID); err != nil {
		log.Printf("Tenant %s: failed to delete connection metadata %s: %v", a.tenantID, c.ID, err)
	}
	// The visitor record stays; only the cleanup pass prunes it.
}

func (a *Actor) applyPing(ctx context.Context, d PingDelta) error {
	if d.VisitorID == "" {
		return fmt.Errorf("visitor id is required")
	}

	rec, ok := a.visitors[d.VisitorID]
	if !ok {
		rec = model.VisitorRecord{
			ID:     d.VisitorID,
			Status: model.VisitorStatusActive,
		}
	}

	if d.Company != "" {
		rec.Company = d.Company
	}
	if d.Location != "" {
		rec.Location = d.Location
	}
	if d.LastRole != "" {
		rec.LastRole = d.LastRole
	}
	if d.Website != "" {
		rec.Website = d.Website
	}

	rec.PageViews++
	if ts := a.now().Unix(); ts > rec.LastActivity {
		rec.LastActivity = ts
	}
	a.visitors[d.VisitorID] = rec

	if err := a.store.SaveState(ctx, a.tenantID, a.visitors); err != nil {
		log.Printf("Tenant %s: snapshot write failed after ping for %s: %v", a.tenantID, d.VisitorID, err)
		return fmt.Errorf("apply ping %s: %w", d.VisitorID, ErrNotPersisted)
	}

	a.registry.BroadcastDashboards(VisitorUpdateMsg{
		Type:    MsgVisitorUpdate,
		Visitor: rec,
		Event:   d.Event,
	})

	a.ensureWake(ctx)
	return nil
}

func (a *Actor) sendInvite(ctx context.Context, visitorID, guestURL string) error {
	rec, ok := a.visitors[visitorID]
	if !ok {
		return fmt.Errorf("invite %s: %w", visitorID, ErrVisitorNotFound)
	}

	rec.Status = model.VisitorStatusVideoInvited
	rec.GuestURL = guestURL
	a.visitors[visitorID] = rec

	if err := a.store.SaveState(ctx, a.tenantID, a.visitors); err != nil {
		log.Printf("Tenant %s: snapshot write failed after invite for %s: %v", a.tenantID, visitorID, err)
		return fmt.Errorf("invite %s: %w", visitorID, ErrNotPersisted)
	}

	// Unicast to the visitor first, then echo to dashboards. Existing
	// clients rely on this ordering.
	if !a.registry.UnicastVisitor(visitorID, VideoInviteMsg{
		Type:      MsgVideoInvite,
		GuestURL:  guestURL,
		VisitorID: visitorID,
	}) {
		log.Printf("Tenant %s: no live connection for invited visitor %s", a.tenantID, visitorID)
	}

	a.registry.BroadcastDashboards(VideoInviteSentMsg{
		Type:      MsgVideoInviteSent,
		VisitorID: visitorID,
		GuestURL:  guestURL,
	})

	return nil
}

func (a *Actor) applyFrame(ctx context.Context, c *Conn, frame Frame) {
	switch frame.Type {
	case MsgPing:
		c.enqueue(PongMsg{Type: MsgPong, Timestamp: a.now().Unix()})
	case MsgGetVisitors:
		c.enqueue(VisitorListMsg{Type: MsgVisitorList, Visitors: a.visitorList()})
	case MsgCallAccepted:
		a.markInCall(ctx, c)
	default:
		log.Printf("Connection %s: unknown frame type %q", c.ID, frame.Type)
	}
}

// markInCall records a client-reported call acceptance for the visitor the
// frame arrived from.
func (a *Actor) markInCall(ctx context.Context, c *Conn) {
	if c.Meta.Role != model.RoleVisitor || c.Meta.VisitorID == "" {
		log.Printf("Connection %s: CALL_ACCEPTED from non-visitor connection", c.ID)
		return
	}

	rec, ok := a.visitors[c.Meta.VisitorID]
	if !ok {
		return
	}
	rec.Status = model.VisitorStatusInCall
	a.visitors[c.Meta.VisitorID] = rec

	if err := a.store.SaveState(ctx, a.tenantID, a.visitors); err != nil {
		log.Printf("Tenant %s: snapshot write failed after call accept for %s: %v", a.tenantID, c.Meta.VisitorID, err)
	}

	a.registry.BroadcastDashboards(VisitorUpdateMsg{
		Type:    MsgVisitorUpdate,
		Visitor: rec,
		Event:   "call_accepted",
	})
}

// cleanup evicts visitors idle past the threshold, persists the survivors,
// publishes the pruned list and conditionally rearms the wake. Both a missed
// and a duplicated firing are safe; the pass is idempotent.
func (a *Actor) cleanup(ctx context.Context) {
	now := a.now()

	evicted := 0
	for id, rec := range a.visitors {
		if now.Sub(time.Unix(rec.LastActivity, 0)) > a.cfg.InactivityThreshold {
			delete(a.visitors, id)
			evicted++
		}
	}
	if evicted > 0 {
		addEvictions(evicted)
	}

	if err := a.store.SaveState(ctx, a.tenantID, a.visitors); err != nil {
		log.Printf("Tenant %s: snapshot write failed after cleanup: %v", a.tenantID, err)
	}

	a.registry.BroadcastDashboards(VisitorListMsg{Type: MsgVisitorList, Visitors: a.visitorList()})

	if a.registry.Len() > 0 || len(a.visitors) > 0 {
		a.scheduleWake(ctx, now.Add(a.cfg.CleanupInterval))
	} else {
		// Fully idle: leave no wake. A new connection or ping re-arms it.
		if err := a.store.ClearWake(ctx, a.tenantID); err != nil {
			log.Printf("Tenant %s: failed to clear wake: %v", a.tenantID, err)
		}
		a.stopTimer()
	}
}

// ensureWake arms the schedule if none is pending. Every path that creates a
// new reason to stay alive goes through here.
func (a *Actor) ensureWake(ctx context.Context) {
	if a.wakeC != nil {
		return
	}
	a.scheduleWake(ctx, a.now().Add(a.cfg.CleanupInterval))
}

func (a *Actor) scheduleWake(ctx context.Context, at time.Time) {
	if err := a.store.SetWake(ctx, a.tenantID, at); err != nil {
		log.Printf("Tenant %s: failed to persist wake: %v", a.tenantID, err)
	}
	a.armTimer(at)
}

func (a *Actor) armTimer(at time.Time) {
	d := at.Sub(a.now())
	if d < 0 {
		d = 0
	}
	if a.wake == nil {
		a.wake = time.NewTimer(d)
	} else {
		if !a.wake.Stop() {
			select {
			case <-a.wake.C:
			default:
			}
		}
		a.wake.Reset(d)
	}
	a.wakeC = a.wake.C
}

func (a *Actor) stopTimer() {
	if a.wake != nil {
		if !a.wake.Stop() {
			select {
			case <-a.wake.C:
			default:
			}
		}
	}
	a.wakeC = nil
}

func (a *Actor) visitorList() []model.VisitorRecord {
	out := make([]model.VisitorRecord, 0, len(a.visitors))
	for _, rec := range a.visitors {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
