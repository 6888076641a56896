package presence

import "visitor-tracker-backend/internal/model"

// Wire message types. Existing dashboard and widget clients depend on this
// envelope set, so the names and field layout must stay stable.
const (
	MsgConnected       = "CONNECTED"
	MsgInitialVisitors = "INITIAL_VISITORS"
	MsgVisitorUpdate   = "VISITOR_UPDATE"
	MsgVisitorList     = "VISITOR_LIST"
	MsgVideoInvite     = "VIDEO_INVITE"
	MsgVideoInviteSent = "VIDEO_INVITE_SENT"
	MsgPong            = "PONG"

	MsgNewVisitor      = "NEW_VISITOR"
	MsgSendVideoInvite = "SEND_VIDEO_INVITE"
	MsgPing            = "PING"
	MsgGetVisitors     = "GET_VISITORS"
	MsgCallAccepted    = "CALL_ACCEPTED"
)

type ConnectedMsg struct {
	Type      string `json:"type"`
	VisitorID string `json:"visitorId"`
}

type InitialVisitorsMsg struct {
	Type     string                `json:"type"`
	Visitors []model.VisitorRecord `json:"visitors"`
}

type VisitorUpdateMsg struct {
	Type    string              `json:"type"`
	Visitor model.VisitorRecord `json:"visitor"`
	Event   string              `json:"event,omitempty"`
}

type VisitorListMsg struct {
	Type     string                `json:"type"`
	Visitors []model.VisitorRecord `json:"visitors"`
}

type VideoInviteMsg struct {
	Type      string `json:"type"`
	GuestURL  string `json:"guestUrl"`
	VisitorID string `json:"visitorId"`
}

type VideoInviteSentMsg struct {
	Type      string `json:"type"`
	VisitorID string `json:"visitorId"`
	GuestURL  string `json:"guestUrl"`
}

type PongMsg struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// CommandEnvelope is the JSON command body accepted over plain POST.
type CommandEnvelope struct {
	Type      string          `json:"type"`
	Visitor   *VisitorPayload `json:"visitor,omitempty"`
	Event     string          `json:"event,omitempty"`
	Website   string          `json:"website,omitempty"`
	VisitorID string          `json:"visitorId,omitempty"`
	GuestURL  string          `json:"guestUrl,omitempty"`
}

type VisitorPayload struct {
	ID       string `json:"id"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	LastRole string `json:"lastRole,omitempty"`
}

// Frame is an inbound message on an established socket.
type Frame struct {
	Type string `json:"type"`
}

// PingDelta is one visitor ping after enrichment, ready to upsert.
type PingDelta struct {
	VisitorID string
	Company   string
	Location  string
	LastRole  string
	Website   string
	Event     string
}
