package routing

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/store"
)

// autoSourcePrefix tags assignments made by the engine so later passes can
// distinguish them from manual decisions.
const autoSourcePrefix = "auto:"

// rule is one routing entry. Keyword rules match on submission text;
// category/priority rules match on classification output. A rule with no
// conditions always matches.
type rule struct {
	name     string
	keywords []string
	category string
	priority domain.Priority
	assignTo string
	note     string
}

// rules are evaluated in order; the first match wins. Cross-cutting keyword
// rules come before category rules so a VPN complaint reaches the network
// specialist even when classified outside IT.
var rules = []rule{
	{
		name:     "vpn-network-specialist",
		keywords: []string{"vpn", "network", "disconnect", "latency"},
		assignTo: "network_specialist",
		note:     "Detected network connectivity keywords; routed to Network Specialist.",
	},
	{
		name:     "it-urgent",
		category: "IT",
		priority: domain.PriorityUrgent,
		assignTo: "it_lead",
		note:     "Urgent IT ticket automatically routed to IT Lead.",
	},
}

var defaultRule = rule{
	name:     "service-desk-default",
	assignTo: "service_desk",
	note:     "No specific routing rule matched; assigned to Service Desk for triage.",
}

// Engine applies the assignment rules against the entity store.
type Engine struct {
	store   *store.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEngine wires the routing engine.
func NewEngine(s *store.Store, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	return &Engine{store: s, metrics: metrics, logger: logger}
}

// update is the assignment delta a rule produced. An empty update means the
// complaint is already routed correctly.
type update struct {
	assignedTo       *int64
	assignmentSource *string
	assignmentNotes  *string
}

func (u update) empty() bool {
	return u.assignedTo == nil && u.assignmentSource == nil && u.assignmentNotes == nil
}

func matchAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// shouldAutoAssign reports whether the engine may touch ownership. Manual
// assignments are terminal; records with no recorded source are treated as
// legacy data that automation may upgrade.
func shouldAutoAssign(complaint domain.Complaint) bool {
	if complaint.AssignedTo == nil {
		return true
	}
	if complaint.AssignmentSource == nil || *complaint.AssignmentSource == "" {
		return true
	}
	return strings.HasPrefix(*complaint.AssignmentSource, autoSourcePrefix)
}

func (r rule) matches(complaint domain.Complaint) bool {
	if len(r.keywords) > 0 && !matchAnyKeyword(complaint.ComplaintText, r.keywords) {
		return false
	}
	if r.category != "" && complaint.Category != r.category {
		return false
	}
	if r.priority != "" && complaint.Priority != r.priority {
		return false
	}
	return true
}

// buildUpdate resolves a rule's target and computes the resulting delta.
// The second return is false when the target username does not resolve, in
// which case evaluation proceeds to the next tier.
func (e *Engine) buildUpdate(complaint domain.Complaint, r rule) (update, string, bool) {
	assignee, ok := e.store.GetUserByUsername(r.assignTo)
	if !ok {
		e.logger.Warn("auto-assignment user not found", zap.String("username", r.assignTo))
		return update{}, "", false
	}

	source := autoSourcePrefix + r.name
	if complaint.AssignedTo != nil && *complaint.AssignedTo == assignee.ID &&
		complaint.AssignmentSource != nil && *complaint.AssignmentSource == source {
		// Already assigned per this rule; refresh the note at most.
		if complaint.AssignmentNotes != nil && strings.Contains(*complaint.AssignmentNotes, r.note) {
			return update{}, r.name, true
		}
		note := r.note
		return update{assignmentNotes: &note}, r.name, true
	}

	note := r.note
	assigneeID := assignee.ID
	return update{
		assignedTo:       &assigneeID,
		assignmentSource: &source,
		assignmentNotes:  &note,
	}, r.name, true
}

// plantRule builds the per-category rule for a complaint, preferring an
// admin registered for the complaint's plant over a global one.
func (e *Engine) plantRule(complaint domain.Complaint) (rule, bool) {
	if complaint.Category == "" {
		return rule{}, false
	}
	admin, ok := e.store.FindAdminForCategory(complaint.Category, complaint.Plant)
	if !ok {
		return rule{}, false
	}
	plantSuffix := "global"
	note := fmt.Sprintf("Routed to %s admin", complaint.Category)
	if complaint.Plant != nil && *complaint.Plant != "" {
		plantSuffix = strings.ToLower(*complaint.Plant)
		note = fmt.Sprintf("%s for plant %s", note, *complaint.Plant)
	}
	return rule{
		name:     fmt.Sprintf("plant-routing-%s-%s", strings.ToLower(complaint.Category), plantSuffix),
		assignTo: admin.Username,
		note:     note + ".",
	}, true
}

func (e *Engine) determineAssignment(complaint domain.Complaint) (update, string, bool) {
	if !shouldAutoAssign(complaint) {
		return update{}, "", false
	}

	for _, r := range rules {
		if !r.matches(complaint) {
			continue
		}
		if upd, name, ok := e.buildUpdate(complaint, r); ok {
			return upd, name, true
		}
	}

	if pr, ok := e.plantRule(complaint); ok {
		if upd, name, ok := e.buildUpdate(complaint, pr); ok {
			return upd, name, true
		}
	}

	return e.buildUpdate(complaint, defaultRule)
}

// Apply evaluates the rules for one complaint and persists any resulting
// delta. The returned complaint reflects the applied update.
func (e *Engine) Apply(complaint domain.Complaint) (domain.Complaint, error) {
	upd, ruleName, ok := e.determineAssignment(complaint)
	if !ok || upd.empty() {
		return complaint, nil
	}

	updated, err := e.store.UpdateComplaint(complaint.ID, store.ComplaintPatch{
		AssignedTo:       upd.assignedTo,
		AssignmentSource: upd.assignmentSource,
		AssignmentNotes:  upd.assignmentNotes,
	})
	if err != nil {
		return complaint, err
	}
	if e.metrics != nil {
		e.metrics.RoutingDecisions.WithLabelValues(ruleName).Inc()
	}
	e.logger.Info("applied assignment update",
		zap.Int64("complaint_id", complaint.ID),
		zap.String("rule", ruleName))
	return updated, nil
}

// RefreshAll re-evaluates the rules for every complaint, for example after
// the seed accounts or rule targets change.
func (e *Engine) RefreshAll() error {
	for _, complaint := range e.store.ListComplaints() {
		if _, err := e.Apply(complaint); err != nil {
			return err
		}
	}
	return nil
}
