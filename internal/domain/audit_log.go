package domain

import "time"

// AuditLog is an immutable record of an action taken against another entity.
// Entries are never mutated after creation.
type AuditLog struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"user_id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   *int64            `json:"entity_id,omitempty"`
	Details    map[string]string `json:"details"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
