package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// snapshot is the complete serialized state of the store. Timestamps encode
// as RFC 3339 UTC, which sorts lexicographically.
type snapshot struct {
	Counters      map[string]int64      `json:"counters"`
	Users         []domain.User         `json:"users"`
	Complaints    []domain.Complaint    `json:"complaints"`
	Attachments   []domain.Attachment   `json:"attachments"`
	Replies       []domain.Reply        `json:"replies"`
	Categories    []domain.Category     `json:"categories"`
	AuditLogs     []domain.AuditLog     `json:"audit_logs"`
	Reports       []domain.Report       `json:"reports"`
	Notifications []domain.Notification `json:"notifications"`
}

// persistLocked rewrites the full snapshot document. A failed write is
// logged and counted but does not roll back the in-memory mutation; the
// running process stays authoritative. Callers must hold the write lock.
func (s *Store) persistLocked() {
	if s.suppressPersist || s.path == "" {
		return
	}
	if s.metrics != nil {
		s.metrics.SnapshotWrites.Inc()
	}
	if err := s.writeSnapshot(); err != nil {
		if s.metrics != nil {
			s.metrics.SnapshotWriteFailures.Inc()
		}
		s.logger.Error("snapshot write failed; in-memory state remains authoritative",
			zap.String("path", s.path), zap.Error(err))
	}
}

// writeSnapshot writes to a temp file in the same directory and renames it
// over the target, so a crash mid-write never leaves a torn snapshot.
func (s *Store) writeSnapshot() error {
	payload, err := json.MarshalIndent(s.buildSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *Store) buildSnapshot() snapshot {
	snap := snapshot{
		Counters:      make(map[string]int64, len(s.counters)),
		Users:         make([]domain.User, 0, len(s.users)),
		Complaints:    make([]domain.Complaint, 0, len(s.complaints)),
		Attachments:   make([]domain.Attachment, 0, len(s.attachments)),
		Replies:       make([]domain.Reply, 0, len(s.replies)),
		Categories:    make([]domain.Category, 0, len(s.categories)),
		AuditLogs:     make([]domain.AuditLog, 0, len(s.auditLogs)),
		Reports:       make([]domain.Report, 0, len(s.reports)),
		Notifications: make([]domain.Notification, 0, len(s.notifications)),
	}
	for name, value := range s.counters {
		snap.Counters[name] = value
	}
	for _, user := range s.users {
		snap.Users = append(snap.Users, user)
	}
	for _, complaint := range s.complaints {
		snap.Complaints = append(snap.Complaints, cloneComplaint(complaint))
	}
	for _, attachment := range s.attachments {
		snap.Attachments = append(snap.Attachments, attachment)
	}
	for _, reply := range s.replies {
		snap.Replies = append(snap.Replies, reply)
	}
	for _, category := range s.categories {
		snap.Categories = append(snap.Categories, category)
	}
	for _, entry := range s.auditLogs {
		snap.AuditLogs = append(snap.AuditLogs, cloneAuditLog(entry))
	}
	for _, report := range s.reports {
		snap.Reports = append(snap.Reports, cloneReport(report))
	}
	for _, notification := range s.notifications {
		snap.Notifications = append(snap.Notifications, notification)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Complaints, func(i, j int) bool { return snap.Complaints[i].ID < snap.Complaints[j].ID })
	sort.Slice(snap.Attachments, func(i, j int) bool { return snap.Attachments[i].ID < snap.Attachments[j].ID })
	sort.Slice(snap.Replies, func(i, j int) bool { return snap.Replies[i].ID < snap.Replies[j].ID })
	sort.Slice(snap.Categories, func(i, j int) bool { return snap.Categories[i].ID < snap.Categories[j].ID })
	sort.Slice(snap.AuditLogs, func(i, j int) bool { return snap.AuditLogs[i].ID < snap.AuditLogs[j].ID })
	sort.Slice(snap.Reports, func(i, j int) bool { return snap.Reports[i].ID < snap.Reports[j].ID })
	sort.Slice(snap.Notifications, func(i, j int) bool { return snap.Notifications[i].ID < snap.Notifications[j].ID })
	return snap
}

// CheckSnapshot verifies the snapshot location is writable. Used by
// readiness probes; a store without a snapshot path is always ready.
func (s *Store) CheckSnapshot() error {
	if s.path == "" {
		return nil
	}
	probe := s.path + ".probe"
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("snapshot location not writable: %w", err)
	}
	return os.Remove(probe)
}

// loadSnapshot rehydrates state from disk. Counters come from the persisted
// high-water marks and default to zero when absent; they are deliberately
// not reconciled against the maximum id present.
func (s *Store) loadSnapshot() error {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range bucketNames {
		if value, ok := snap.Counters[name]; ok {
			s.counters[name] = value
		}
	}
	for _, user := range snap.Users {
		s.users[user.ID] = user
	}
	for _, complaint := range snap.Complaints {
		s.complaints[complaint.ID] = complaint
	}
	for _, attachment := range snap.Attachments {
		s.attachments[attachment.ID] = attachment
		indexAdd(s.attachmentsByComplaint, attachment.ComplaintID, attachment.ID)
		if attachment.ReplyID != nil {
			indexAdd(s.attachmentsByReply, *attachment.ReplyID, attachment.ID)
		}
	}
	for _, reply := range snap.Replies {
		s.replies[reply.ID] = reply
		indexAdd(s.repliesByComplaint, reply.ComplaintID, reply.ID)
	}
	for _, category := range snap.Categories {
		s.categories[category.ID] = category
	}
	for _, entry := range snap.AuditLogs {
		s.auditLogs[entry.ID] = entry
	}
	for _, report := range snap.Reports {
		s.reports[report.ID] = report
	}
	for _, notification := range snap.Notifications {
		s.notifications[notification.ID] = notification
	}

	s.logger.Info("snapshot loaded",
		zap.Int("users", len(s.users)),
		zap.Int("complaints", len(s.complaints)),
		zap.Int("replies", len(s.replies)),
		zap.Int("attachments", len(s.attachments)))
	return nil
}
