package store

import (
	"sort"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// LogActionInput describes one audited action.
type LogActionInput struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   *int64
	Details    map[string]string
	IPAddress  *string
}

// LogAction appends an immutable audit entry. There is no update path.
func (s *Store) LogAction(input LogActionInput) domain.AuditLog {
	// Copy the caller's map; stored entries are immutable and must not
	// alias caller state.
	details := make(map[string]string, len(input.Details))
	for k, v := range input.Details {
		details[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := domain.AuditLog{
		ID:         s.nextIDLocked(bucketAuditLogs),
		UserID:     input.UserID,
		Action:     input.Action,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Details:    details,
		IPAddress:  input.IPAddress,
		CreatedAt:  now(),
	}
	s.auditLogs[entry.ID] = entry
	s.persistLocked()
	return cloneAuditLog(entry)
}

// ListAuditLogs returns audit entries ordered by id, newest last.
func (s *Store) ListAuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		out = append(out, cloneAuditLog(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
