package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/ai"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/routing"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// ComplaintService coordinates the submission workflow: persistence,
// classification, routing and event publication.
type ComplaintService struct {
	store      *store.Store
	classifier *ai.Classifier
	router     *routing.Engine
	dispatcher events.Dispatcher
	plants     []string
	logger     *zap.Logger
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	Store      *store.Store
	Classifier *ai.Classifier
	Router     *routing.Engine
	Dispatcher events.Dispatcher
	Plants     []string
	Logger     *zap.Logger
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	return &ComplaintService{
		store:      deps.Store,
		classifier: deps.Classifier,
		router:     deps.Router,
		dispatcher: deps.Dispatcher,
		plants:     deps.Plants,
		logger:     deps.Logger,
	}
}

// ComplaintQuery narrows and pages a listing.
type ComplaintQuery struct {
	Filter   store.ComplaintFilter
	Search   string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// ComplaintPage is one page of results.
type ComplaintPage struct {
	Items      []domain.Complaint `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// Create ingests a submission: the record is stored immediately with
// defaults, then classified and routed. Classification can degrade but
// never blocks creation.
func (s *ComplaintService) Create(ctx context.Context, input store.CreateComplaintInput) (domain.Complaint, error) {
	if input.Plant == nil || strings.TrimSpace(*input.Plant) == "" {
		return domain.Complaint{}, apperrors.NewValidationError("plant is required", nil)
	}
	if len(s.plants) > 0 && !s.validPlant(*input.Plant) {
		return domain.Complaint{}, apperrors.NewValidationError("invalid plant selected", map[string]any{"plant": *input.Plant})
	}

	complaint, err := s.store.CreateComplaint(input)
	if err != nil {
		return domain.Complaint{}, err
	}
	s.publish(ctx, events.New(events.EventComplaintCreated, complaint.ID, nil, events.ComplaintCreatedPayload{
		EmpID:    complaint.EmpID,
		Category: complaint.Category,
		Priority: complaint.Priority,
		Plant:    complaint.Plant,
	}))

	complaint = s.classifyAndRoute(ctx, complaint)

	s.store.LogAction(store.LogActionInput{
		Action:     "complaint_created",
		EntityType: "complaint",
		EntityID:   &complaint.ID,
		Details: map[string]string{
			"emp_id":   complaint.EmpID,
			"category": complaint.Category,
			"priority": string(complaint.Priority),
		},
	})
	return complaint, nil
}

func (s *ComplaintService) validPlant(plant string) bool {
	for _, known := range s.plants {
		if known == plant {
			return true
		}
	}
	return false
}

// classifyAndRoute runs the classifier, writes the verdict back, and
// applies the routing rules. Failures leave the record in its last good
// state rather than aborting the caller's operation.
func (s *ComplaintService) classifyAndRoute(ctx context.Context, complaint domain.Complaint) domain.Complaint {
	verdict := s.classifier.Classify(ctx, complaint.ComplaintText)

	kind := verdict.Kind
	priority := verdict.Priority
	updated, err := s.store.UpdateComplaint(complaint.ID, store.ComplaintPatch{
		Kind:           &kind,
		Category:       &verdict.Category,
		Priority:       &priority,
		AIConfidence:   &verdict.Confidence,
		KindConfidence: &verdict.KindConfidence,
	})
	if err != nil {
		s.logger.Warn("classification write-back failed",
			zap.Int64("complaint_id", complaint.ID), zap.Error(err))
		updated = complaint
	} else {
		s.publish(ctx, events.New(events.EventComplaintClassified, updated.ID, nil, events.ComplaintClassifiedPayload{
			Kind:       verdict.Kind,
			Category:   verdict.Category,
			Priority:   verdict.Priority,
			Confidence: verdict.Confidence,
			Outcome:    string(verdict.Outcome),
		}))
	}

	return s.route(ctx, updated)
}

// route applies the assignment rules and publishes an event when ownership
// changed hands.
func (s *ComplaintService) route(ctx context.Context, complaint domain.Complaint) domain.Complaint {
	before := complaint.AssignedTo
	routed, err := s.router.Apply(complaint)
	if err != nil {
		s.logger.Warn("routing failed", zap.Int64("complaint_id", complaint.ID), zap.Error(err))
		return complaint
	}
	if routed.AssignedTo != nil && (before == nil || *before != *routed.AssignedTo) {
		source := ""
		if routed.AssignmentSource != nil {
			source = *routed.AssignmentSource
		}
		notes := ""
		if routed.AssignmentNotes != nil {
			notes = *routed.AssignmentNotes
		}
		s.publish(ctx, events.New(events.EventComplaintAssigned, routed.ID, nil, events.ComplaintAssignedPayload{
			AssigneeID: *routed.AssignedTo,
			Source:     source,
			Notes:      notes,
		}))
	}
	return routed
}

// Get returns one complaint, re-running the routing rules first so stale
// assignments are corrected on read, as listings do.
func (s *ComplaintService) Get(ctx context.Context, id int64) (domain.Complaint, error) {
	complaint, ok := s.store.GetComplaint(id)
	if !ok {
		return domain.Complaint{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	return s.route(ctx, complaint), nil
}

var (
	priorityWeight = map[domain.Priority]int{domain.PriorityUrgent: 2, domain.PriorityNormal: 1}
	statusWeight   = map[domain.ComplaintStatus]int{domain.StatusPending: 3, domain.StatusInProgress: 2, domain.StatusResolved: 1}
)

// List pages through complaints after refreshing assignments.
func (s *ComplaintService) List(ctx context.Context, query ComplaintQuery) (ComplaintPage, error) {
	if err := s.router.RefreshAll(); err != nil {
		s.logger.Warn("assignment refresh failed", zap.Error(err))
	}

	complaints := s.store.FilterComplaints(query.Filter)
	if term := strings.TrimSpace(strings.ToLower(query.Search)); term != "" {
		complaints = filterBySearch(complaints, term)
	}

	sortField := query.Sort
	switch sortField {
	case "priority", "status", "created_at":
	default:
		sortField = "created_at"
	}
	descending := strings.ToLower(query.Order) != "asc"
	sort.SliceStable(complaints, func(i, j int) bool {
		var less bool
		switch sortField {
		case "priority":
			less = priorityWeight[complaints[i].Priority] < priorityWeight[complaints[j].Priority]
		case "status":
			less = statusWeight[complaints[i].Status] < statusWeight[complaints[j].Status]
		default:
			less = complaints[i].CreatedAt.Before(complaints[j].CreatedAt)
		}
		if descending {
			return !less && !equalSortKey(complaints[i], complaints[j], sortField)
		}
		return less
	})

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 25
	}
	if pageSize > 100 {
		pageSize = 100
	}

	total := len(complaints)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return ComplaintPage{
		Items:      complaints[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func equalSortKey(a, b domain.Complaint, field string) bool {
	switch field {
	case "priority":
		return priorityWeight[a.Priority] == priorityWeight[b.Priority]
	case "status":
		return statusWeight[a.Status] == statusWeight[b.Status]
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

// filterBySearch matches a lowercased term against id, submitter fields and
// text. A numeric term, optionally prefixed with '#', matches the id.
func filterBySearch(complaints []domain.Complaint, term string) []domain.Complaint {
	var searchID int64 = -1
	if stripped := strings.TrimPrefix(term, "#"); stripped != "" {
		if id, err := strconv.ParseInt(stripped, 10, 64); err == nil {
			searchID = id
		}
	}

	matches := func(c domain.Complaint) bool {
		if searchID >= 0 && c.ID == searchID {
			return true
		}
		plant := ""
		if c.Plant != nil {
			plant = *c.Plant
		}
		haystacks := []string{
			c.EmpID, c.Email, c.Phone, c.ComplaintText,
			c.Category, plant, string(c.Status), string(c.Priority),
		}
		for _, value := range haystacks {
			if strings.Contains(strings.ToLower(value), term) {
				return true
			}
		}
		return false
	}

	out := complaints[:0]
	for _, c := range complaints {
		if matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Update applies an admin edit. Setting AssignedTo marks the assignment
// manual, which makes it terminal for automation; other edits are followed
// by a routing pass so classification changes re-route.
func (s *ComplaintService) Update(ctx context.Context, id int64, patch store.ComplaintPatch, actorID int64) (domain.Complaint, error) {
	existing, ok := s.store.GetComplaint(id)
	if !ok {
		return domain.Complaint{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}

	// Provenance rides in the same patch as the assignee so no concurrent
	// routing pass can observe the new assignee without the manual tag.
	if patch.AssignedTo != nil {
		source := domain.AssignmentSourceManual
		note := "Manually reassigned by admin."
		patch.AssignmentSource = &source
		patch.AssignmentNotes = &note
	}

	updated, err := s.store.UpdateComplaint(id, patch)
	if err != nil {
		return domain.Complaint{}, err
	}

	if patch.AssignedTo != nil {
		s.publish(ctx, events.New(events.EventComplaintAssigned, id, &actorID, events.ComplaintAssignedPayload{
			AssigneeID: *patch.AssignedTo,
			Source:     *patch.AssignmentSource,
			Notes:      *patch.AssignmentNotes,
		}))
	}

	if patch.Status != nil && existing.Status != *patch.Status {
		s.publish(ctx, events.New(events.EventComplaintStatusChanged, id, &actorID, events.ComplaintStatusChangedPayload{
			OldStatus: existing.Status,
			NewStatus: *patch.Status,
		}))
	}

	updated = s.route(ctx, updated)

	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "complaint_updated",
		EntityType: "complaint",
		EntityID:   &id,
		Details:    map[string]string{"status": string(updated.Status)},
	})
	return updated, nil
}

// Delete removes a complaint and its dependent records.
func (s *ComplaintService) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.store.DeleteComplaint(id); err != nil {
		return err
	}
	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "complaint_deleted",
		EntityType: "complaint",
		EntityID:   &id,
	})
	return nil
}

// Classify re-runs classification for an existing complaint on demand and
// writes the verdict back.
func (s *ComplaintService) Classify(ctx context.Context, id int64) (ai.Classification, error) {
	complaint, ok := s.store.GetComplaint(id)
	if !ok {
		return ai.Classification{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	verdict := s.classifier.Classify(ctx, complaint.ComplaintText)
	s.classifyWriteBack(ctx, complaint, verdict)
	return verdict, nil
}

func (s *ComplaintService) classifyWriteBack(ctx context.Context, complaint domain.Complaint, verdict ai.Classification) {
	kind := verdict.Kind
	priority := verdict.Priority
	updated, err := s.store.UpdateComplaint(complaint.ID, store.ComplaintPatch{
		Kind:           &kind,
		Category:       &verdict.Category,
		Priority:       &priority,
		AIConfidence:   &verdict.Confidence,
		KindConfidence: &verdict.KindConfidence,
	})
	if err != nil {
		s.logger.Warn("classification write-back failed",
			zap.Int64("complaint_id", complaint.ID), zap.Error(err))
		return
	}
	s.publish(ctx, events.New(events.EventComplaintClassified, updated.ID, nil, events.ComplaintClassifiedPayload{
		Kind:       verdict.Kind,
		Category:   verdict.Category,
		Priority:   verdict.Priority,
		Confidence: verdict.Confidence,
		Outcome:    string(verdict.Outcome),
	}))
	s.route(ctx, updated)
}

// SuggestCategories ranks likely categories for an existing complaint.
func (s *ComplaintService) SuggestCategories(ctx context.Context, id int64) ([]ai.CategorySuggestion, error) {
	complaint, ok := s.store.GetComplaint(id)
	if !ok {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	return s.classifier.SuggestCategories(ctx, complaint.ComplaintText), nil
}

// Summarize produces a short overview of one complaint.
func (s *ComplaintService) Summarize(ctx context.Context, id int64) (ai.ComplaintInsight, error) {
	complaint, ok := s.store.GetComplaint(id)
	if !ok {
		return ai.ComplaintInsight{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	return s.classifier.SummarizeComplaint(ctx, complaint), nil
}

// Assist drafts a suggested reply for the complaint.
func (s *ComplaintService) Assist(ctx context.Context, id int64) (ai.ReplyAssistance, error) {
	complaint, ok := s.store.GetComplaint(id)
	if !ok {
		return ai.ReplyAssistance{}, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
	}
	replies := s.store.ListRepliesForComplaint(id)
	return s.classifier.GenerateReplyAssistance(ctx, complaint, replies)
}

// AddNote attaches an internal collaboration note.
func (s *ComplaintService) AddNote(ctx context.Context, complaintID int64, author domain.User, content string, pinned bool) (domain.Complaint, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Complaint{}, apperrors.NewValidationError("note content required", nil)
	}
	return s.store.AddInternalNote(complaintID, author.ID, author.Username, content, pinned)
}

// Watch subscribes a user to complaint activity.
func (s *ComplaintService) Watch(ctx context.Context, complaintID, userID int64) (domain.Complaint, error) {
	return s.store.AddWatcher(complaintID, userID)
}

func (s *ComplaintService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
