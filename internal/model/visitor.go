package model

type VisitorStatus string

const (
	VisitorStatusActive       VisitorStatus = "active"
	VisitorStatusVideoInvited VisitorStatus = "video_invited"
	VisitorStatusInCall       VisitorStatus = "in_call"
)

// VisitorRecord is one tracked visitor within a tenant. The same shape is
// persisted in the tenant snapshot and sent over the wire to dashboards.
type VisitorRecord struct {
	ID           string        `dynamodbav:"id" json:"id"`
	Company      string        `dynamodbav:"company,omitempty" json:"company,omitempty"`
	Location     string        `dynamodbav:"location,omitempty" json:"location,omitempty"`
	LastRole     string        `dynamodbav:"lastRole,omitempty" json:"lastRole,omitempty"`
	Website      string        `dynamodbav:"website,omitempty" json:"website,omitempty"`
	PageViews    int           `dynamodbav:"pageViews" json:"pageViews"`
	Status       VisitorStatus `dynamodbav:"status" json:"status"`
	LastActivity int64         `dynamodbav:"lastActivity" json:"lastActivity"`
	GuestURL     string        `dynamodbav:"guestUrl,omitempty" json:"guestUrl,omitempty"`
}

type ConnectionRole string

const (
	RoleDashboard ConnectionRole = "dashboard"
	RoleVisitor   ConnectionRole = "visitor"
)

// ConnectionMetaItem is the durable identity of one live socket. The in-memory
// registry is a rebuildable cache; this item is the ground truth for who a
// connection belongs to after a process restart.
type ConnectionMetaItem struct {
	PK          string         `dynamodbav:"pk"`
	TenantID    string         `dynamodbav:"tenantId"`
	ConnID      string         `dynamodbav:"connId"`
	Role        ConnectionRole `dynamodbav:"role"`
	VisitorID   string         `dynamodbav:"visitorId,omitempty"`
	ConnectedAt int64          `dynamodbav:"connectedAt"`
}

// TenantStateItem is the whole-map snapshot for one tenant, replaced on every
// mutation. Re-serialising the full map per write is a known scaling ceiling
// for tenants with very large concurrent visitor counts.
type TenantStateItem struct {
	PK       string                   `dynamodbav:"pk"`
	TenantID string                   `dynamodbav:"tenantId"`
	Visitors map[string]VisitorRecord `dynamodbav:"visitors"`
}

// TenantWakeItem holds the single pending cleanup timestamp for a tenant.
// Kept as a separate item so snapshot replacement never clobbers the schedule.
type TenantWakeItem struct {
	PK       string `dynamodbav:"pk"`
	TenantID string `dynamodbav:"tenantId"`
	WakeAt   int64  `dynamodbav:"wakeAt"`
}
