package store

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateComplaintInput carries the validated fields of a new submission.
// Classification fields are optional; absent values fall back to the
// defaults a record holds before the Classification Engine has run.
type CreateComplaintInput struct {
	EmpID         string
	Email         string
	Phone         string
	ComplaintText string
	Plant         *string
	Kind          domain.ComplaintKind
	Category      string
	Priority      domain.Priority
	SourceChannel string
}

// ComplaintPatch is an explicit partial update for a complaint; nil fields
// are left untouched. Fields are validated before the merge.
type ComplaintPatch struct {
	Kind             *domain.ComplaintKind
	Category         *string
	Priority         *domain.Priority
	Status           *domain.ComplaintStatus
	AIConfidence     *float64
	KindConfidence   *float64
	AssignedTo       *int64
	AssignmentSource *string
	AssignmentNotes  *string
	FirstResponseAt  *time.Time
	ResolvedAt       *time.Time
}

// ComplaintFilter narrows ListComplaints; nil fields match everything.
type ComplaintFilter struct {
	Status      *domain.ComplaintStatus
	Priority    *domain.Priority
	Kind        *domain.ComplaintKind
	Category    *string
	Plant       *string
	AssignedTo  *int64
	EmpID       *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

func (p ComplaintPatch) validate() error {
	if p.Kind != nil && *p.Kind != domain.KindComplaint && *p.Kind != domain.KindFeedback {
		return apperrors.NewValidationError("invalid kind", map[string]any{"kind": *p.Kind})
	}
	if p.Priority != nil && *p.Priority != domain.PriorityNormal && *p.Priority != domain.PriorityUrgent {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *p.Priority})
	}
	if p.Status != nil {
		switch *p.Status {
		case domain.StatusPending, domain.StatusInProgress, domain.StatusResolved:
		default:
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *p.Status})
		}
	}
	for _, conf := range []*float64{p.AIConfidence, p.KindConfidence} {
		if conf != nil && (*conf < 0 || *conf > 1) {
			return apperrors.NewValidationError("confidence out of range", map[string]any{"value": *conf})
		}
	}
	return nil
}

// CreateComplaint stores a record in its default state.
func (s *Store) CreateComplaint(input CreateComplaintInput) (domain.Complaint, error) {
	if strings.TrimSpace(input.ComplaintText) == "" {
		return domain.Complaint{}, apperrors.NewValidationError("complaint text required", nil)
	}
	kind := input.Kind
	if kind == "" {
		kind = domain.KindComplaint
	}
	category := input.Category
	if category == "" {
		category = domain.CategoryUnclassified
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	channel := input.SourceChannel
	if channel == "" {
		channel = "web"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now()
	complaint := domain.Complaint{
		ID:            s.nextIDLocked(bucketComplaints),
		EmpID:         input.EmpID,
		Email:         input.Email,
		Phone:         input.Phone,
		ComplaintText: input.ComplaintText,
		Plant:         input.Plant,
		Kind:          kind,
		Category:      category,
		Priority:      priority,
		Status:        domain.StatusPending,
		AttachmentIDs: []int64{},
		InternalNotes: []domain.InternalNote{},
		Watchers:      []int64{},
		SourceChannel: channel,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	s.complaints[complaint.ID] = complaint
	s.persistLocked()
	return cloneComplaint(complaint), nil
}

// GetComplaint returns a copy of one complaint.
func (s *Store) GetComplaint(id int64) (domain.Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	complaint, ok := s.complaints[id]
	if !ok {
		return domain.Complaint{}, false
	}
	return cloneComplaint(complaint), true
}

// ListComplaints returns all complaints ordered by id.
func (s *Store) ListComplaints() []domain.Complaint {
	return s.FilterComplaints(ComplaintFilter{})
}

// FilterComplaints returns all complaints matching the filter, ordered by id.
func (s *Store) FilterComplaints(filter ComplaintFilter) []domain.Complaint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Complaint, 0, len(s.complaints))
	for _, complaint := range s.complaints {
		if !matchesFilter(complaint, filter) {
			continue
		}
		out = append(out, cloneComplaint(complaint))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchesFilter(c domain.Complaint, f ComplaintFilter) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.Priority != nil && c.Priority != *f.Priority {
		return false
	}
	if f.Kind != nil && c.Kind != *f.Kind {
		return false
	}
	if f.Category != nil && c.Category != *f.Category {
		return false
	}
	if f.Plant != nil && (c.Plant == nil || *c.Plant != *f.Plant) {
		return false
	}
	if f.AssignedTo != nil && (c.AssignedTo == nil || *c.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.EmpID != nil && c.EmpID != *f.EmpID {
		return false
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// UpdateComplaint merges a validated patch and persists.
func (s *Store) UpdateComplaint(id int64, patch ComplaintPatch) (domain.Complaint, error) {
	if err := patch.validate(); err != nil {
		return domain.Complaint{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	complaint, ok := s.complaints[id]
	if !ok {
		return domain.Complaint{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	if patch.Kind != nil {
		complaint.Kind = *patch.Kind
	}
	if patch.Category != nil {
		complaint.Category = *patch.Category
	}
	if patch.Priority != nil {
		complaint.Priority = *patch.Priority
	}
	if patch.Status != nil {
		complaint.Status = *patch.Status
	}
	if patch.AIConfidence != nil {
		complaint.AIConfidence = patch.AIConfidence
	}
	if patch.KindConfidence != nil {
		complaint.KindConfidence = patch.KindConfidence
	}
	if patch.AssignedTo != nil {
		complaint.AssignedTo = patch.AssignedTo
	}
	if patch.AssignmentSource != nil {
		complaint.AssignmentSource = patch.AssignmentSource
	}
	if patch.AssignmentNotes != nil {
		complaint.AssignmentNotes = patch.AssignmentNotes
	}
	if patch.FirstResponseAt != nil && complaint.FirstResponseAt == nil {
		// First-response is written exactly once.
		complaint.FirstResponseAt = patch.FirstResponseAt
	}
	if patch.ResolvedAt != nil {
		complaint.ResolvedAt = patch.ResolvedAt
		hours := patch.ResolvedAt.Sub(complaint.CreatedAt).Hours()
		complaint.ResolutionTimeHours = &hours
	}
	complaint.UpdatedAt = now()
	s.complaints[id] = complaint
	s.persistLocked()
	return cloneComplaint(complaint), nil
}

// DeleteComplaint removes a complaint and cascades to every reply and
// attachment referencing it, via the maintained indices.
func (s *Store) DeleteComplaint(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[id]; !ok {
		return apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	for replyID := range s.repliesByComplaint[id] {
		delete(s.replies, replyID)
		for attachmentID := range s.attachmentsByReply[replyID] {
			delete(s.attachments, attachmentID)
		}
		delete(s.attachmentsByReply, replyID)
	}
	delete(s.repliesByComplaint, id)
	for attachmentID := range s.attachmentsByComplaint[id] {
		delete(s.attachments, attachmentID)
	}
	delete(s.attachmentsByComplaint, id)
	delete(s.complaints, id)
	s.persistLocked()
	return nil
}

// AddInternalNote appends a collaboration note to a complaint.
func (s *Store) AddInternalNote(complaintID, authorID int64, authorName, content string, pinned bool) (domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	complaint, ok := s.complaints[complaintID]
	if !ok {
		return domain.Complaint{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
	}
	note := domain.InternalNote{
		ID:         int64(len(complaint.InternalNotes) + 1),
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		Pinned:     pinned,
		CreatedAt:  now(),
	}
	complaint.InternalNotes = append(append([]domain.InternalNote(nil), complaint.InternalNotes...), note)
	complaint.UpdatedAt = now()
	s.complaints[complaintID] = complaint
	s.persistLocked()
	return cloneComplaint(complaint), nil
}

// AddWatcher subscribes an account to updates on a complaint; adding an
// existing watcher is a no-op.
func (s *Store) AddWatcher(complaintID, userID int64) (domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	complaint, ok := s.complaints[complaintID]
	if !ok {
		return domain.Complaint{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
	}
	for _, watcher := range complaint.Watchers {
		if watcher == userID {
			return cloneComplaint(complaint), nil
		}
	}
	complaint.Watchers = append(append([]int64(nil), complaint.Watchers...), userID)
	complaint.UpdatedAt = now()
	s.complaints[complaintID] = complaint
	s.persistLocked()
	return cloneComplaint(complaint), nil
}
