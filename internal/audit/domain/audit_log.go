package domain

import "time"

// AuditLog is one recorded operation against a product. Written best-effort
// by the audit middleware; a failed write never fails the request.
type AuditLog struct {
	ID        string
	ProductID string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
