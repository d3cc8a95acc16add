package store

import "github.com/spec-kit/feedback-service/internal/domain"

// Entities handed to consumers are copies; nothing outside the store may
// alias its internal slices or maps.

// cloneComplaint deep-copies the slice fields, preserving empty slices so
// they serialize as [] rather than null.
func cloneComplaint(c domain.Complaint) domain.Complaint {
	out := c
	out.AttachmentIDs = make([]int64, len(c.AttachmentIDs))
	copy(out.AttachmentIDs, c.AttachmentIDs)
	out.InternalNotes = make([]domain.InternalNote, len(c.InternalNotes))
	copy(out.InternalNotes, c.InternalNotes)
	out.Watchers = make([]int64, len(c.Watchers))
	copy(out.Watchers, c.Watchers)
	return out
}

func cloneAuditLog(entry domain.AuditLog) domain.AuditLog {
	out := entry
	out.Details = make(map[string]string, len(entry.Details))
	for k, v := range entry.Details {
		out.Details[k] = v
	}
	return out
}

func cloneReport(r domain.Report) domain.Report {
	out := r
	out.Recipients = make([]string, len(r.Recipients))
	copy(out.Recipients, r.Recipients)
	out.Metadata = make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	return out
}
