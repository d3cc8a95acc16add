package store

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
)

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

type sampleComplaint struct {
	empID           string
	email           string
	phone           string
	plant           string
	text            string
	kind            domain.ComplaintKind
	category        string
	priority        domain.Priority
	status          domain.ComplaintStatus
	aiConfidence    float64
	kindConfidence  float64
	createdHoursAgo int
}

// seedDefaults performs the one-time default population on first boot:
// seed accounts, seed categories, and representative sample records.
func (s *Store) seedDefaults() error {
	if _, err := s.CreateUser(CreateUserInput{
		Username:   "superadmin",
		Email:      "super.admin@example.com",
		Password:   "superadmin123",
		Role:       domain.RoleSuperAdmin,
		Department: strPtr("Executive"),
	}); err != nil {
		return err
	}
	admin, err := s.CreateUser(CreateUserInput{
		Username:   "admin",
		Email:      "admin@example.com",
		Password:   "admin123",
		Role:       domain.RoleAdmin,
		Department: strPtr("IT"),
		Plant:      strPtr("P1"),
	})
	if err != nil {
		return err
	}

	// Functional leads referenced by the auto-assignment rules.
	leads := []CreateUserInput{
		{Username: "it_lead", Email: "it.lead@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("IT")},
		{Username: "network_specialist", Email: "network.team@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("IT")},
		{Username: "payroll_lead", Email: "payroll.lead@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("Payroll"), Plant: strPtr("P1")},
		{Username: "facilities_lead", Email: "facilities.lead@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("Facilities"), Plant: strPtr("P1")},
		{Username: "service_desk", Email: "service.desk@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr(domain.CategoryUnclassified)},
		{Username: "operations_manager", Email: "ops.manager@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("Facilities")},
		{Username: "facilities_p2", Email: "facilities.p2@example.com", Password: "temps3cret", Role: domain.RoleAdmin, Department: strPtr("Facilities"), Plant: strPtr("P2")},
	}
	for _, lead := range leads {
		if _, err := s.CreateUser(lead); err != nil {
			return err
		}
	}

	categories := []struct{ name, description string }{
		{"HR", "Human Resources related complaints"},
		{"Payroll", "Salary and payment issues"},
		{"Facilities", "Office facilities and maintenance"},
		{"IT", "Information Technology and systems"},
		{"Safety", "Workplace safety concerns"},
		{domain.CategoryUnclassified, "Complaints needing manual classification"},
	}
	for _, category := range categories {
		if _, err := s.CreateCategory(category.name, category.description); err != nil {
			return err
		}
	}

	return s.seedSampleData(admin.ID)
}

func (s *Store) seedSampleData(adminID int64) error {
	samples := []sampleComplaint{
		{
			empID: "EMP1001", email: "linda.ong@example.com", phone: "+60123456781", plant: "P1",
			text:     "Laptop keyboard intermittently fails and VPN disconnects during calls.",
			kind:     domain.KindComplaint, category: "IT", priority: domain.PriorityUrgent,
			status:   domain.StatusInProgress, aiConfidence: 0.84, kindConfidence: 0.82, createdHoursAgo: 6,
		},
		{
			empID: "EMP2044", email: "rahim.yusof@example.com", phone: "+60123456782", plant: "P2",
			text:     "Air-conditioning on level 12 is not functioning and meeting rooms are too warm.",
			kind:     domain.KindComplaint, category: "Facilities", priority: domain.PriorityNormal,
			status:   domain.StatusPending, aiConfidence: 0.76, kindConfidence: 0.74, createdHoursAgo: 30,
		},
		{
			empID: "EMP3307", email: "meera.chan@example.com", phone: "+60123456783", plant: "BK",
			text:     "Salary for September is short by two days and reimbursement is missing.",
			kind:     domain.KindComplaint, category: "Payroll", priority: domain.PriorityUrgent,
			status:   domain.StatusResolved, aiConfidence: 0.9, kindConfidence: 0.88, createdHoursAgo: 12,
		},
		{
			empID: "EMP5521", email: "adrian.lim@example.com", phone: "+60123456784", plant: "P1",
			text:     "Kudos to the facilities team, the new collaboration space looks amazing and boosts team morale.",
			kind:     domain.KindFeedback, category: "Facilities", priority: domain.PriorityNormal,
			status:   domain.StatusResolved, aiConfidence: 0.78, kindConfidence: 0.86, createdHoursAgo: 4,
		},
	}

	for _, sample := range samples {
		complaint, err := s.CreateComplaint(CreateComplaintInput{
			EmpID:         sample.empID,
			Email:         sample.email,
			Phone:         sample.phone,
			ComplaintText: sample.text,
			Plant:         strPtr(sample.plant),
			Kind:          sample.kind,
			Category:      sample.category,
			Priority:      sample.priority,
		})
		if err != nil {
			return err
		}
		status := sample.status
		if _, err := s.UpdateComplaint(complaint.ID, ComplaintPatch{
			Status:         &status,
			AIConfidence:   floatPtr(sample.aiConfidence),
			KindConfidence: floatPtr(sample.kindConfidence),
		}); err != nil {
			return err
		}
		createdAt := now().Add(-time.Duration(sample.createdHoursAgo) * time.Hour)
		s.mu.Lock()
		stored := s.complaints[complaint.ID]
		stored.CreatedAt = createdAt
		stored.UpdatedAt = createdAt
		s.complaints[complaint.ID] = stored
		s.mu.Unlock()
	}

	// Reply on the payroll case so the sample data exercises the
	// first-response path.
	payroll := s.FilterComplaints(ComplaintFilter{Category: strPtr("Payroll")})
	if len(payroll) > 0 {
		ts := now()
		if _, err := s.CreateReply(CreateReplyInput{
			ComplaintID: payroll[0].ID,
			AdminID:     adminID,
			ReplyText:   "Payroll team recalculated your hours and the adjustment will be in the next cycle.",
			EmailSent:   true,
			EmailSentAt: &ts,
		}); err != nil {
			return err
		}
	}

	// Sample attachment on the IT complaint; the placeholder file is best
	// effort and never blocks startup.
	itCases := s.FilterComplaints(ComplaintFilter{Category: strPtr("IT")})
	if len(itCases) > 0 {
		placeholder := filepath.Join(s.uploadDir, "sample-error-screenshot.png")
		var size int64
		if err := os.MkdirAll(s.uploadDir, 0o755); err == nil {
			if _, err := os.Stat(placeholder); os.IsNotExist(err) {
				_ = os.WriteFile(placeholder, []byte("PNG\r\nplaceholder screenshot bytes"), 0o644)
			}
			if info, err := os.Stat(placeholder); err == nil {
				size = info.Size()
			}
		} else {
			s.logger.Warn("upload dir unavailable; seeding attachment metadata only", zap.Error(err))
		}
		if _, err := s.CreateAttachment(CreateAttachmentInput{
			ComplaintID: itCases[0].ID,
			FileName:    "error-screenshot.png",
			FilePath:    placeholder,
			FileType:    "image/png",
			FileSize:    size,
		}); err != nil {
			return err
		}
	}
	return nil
}
