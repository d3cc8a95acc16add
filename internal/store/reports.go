package store

import (
	"sort"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// CreateReportInput describes one generated report.
type CreateReportInput struct {
	Period      domain.ReportPeriod
	FromDate    time.Time
	ToDate      time.Time
	Summary     string
	HTMLContent string
	Recipients  []string
	DownloadURL *string
	Metadata    map[string]any
}

// ReportPatch is an explicit partial update for a report.
type ReportPatch struct {
	Summary     *string
	HTMLContent *string
	Recipients  []string
	DownloadURL *string
	Metadata    map[string]any
}

// CreateReport persists a generated report.
func (s *Store) CreateReport(input CreateReportInput) (domain.Report, error) {
	recipients := input.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	report := domain.Report{
		ID:          s.nextIDLocked(bucketReports),
		Period:      input.Period,
		FromDate:    input.FromDate,
		ToDate:      input.ToDate,
		Summary:     input.Summary,
		HTMLContent: input.HTMLContent,
		Recipients:  recipients,
		DownloadURL: input.DownloadURL,
		Metadata:    metadata,
		CreatedAt:   now(),
	}
	s.reports[report.ID] = report
	s.persistLocked()
	return cloneReport(report), nil
}

// GetReport returns one report by id.
func (s *Store) GetReport(id int64) (domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return domain.Report{}, false
	}
	return cloneReport(report), true
}

// ListReports returns all reports ordered by id.
func (s *Store) ListReports() []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Report, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, cloneReport(report))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindReportByPeriod returns the report already generated for an exact
// (period, from, to) window, if any.
func (s *Store) FindReportByPeriod(period domain.ReportPeriod, from, to time.Time) (domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, report := range s.reports {
		if report.Period == period && report.FromDate.Equal(from) && report.ToDate.Equal(to) {
			return cloneReport(report), true
		}
	}
	return domain.Report{}, false
}

// UpdateReport applies a partial update to a report.
func (s *Store) UpdateReport(id int64, patch ReportPatch) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return domain.Report{}, apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	if patch.Summary != nil {
		report.Summary = *patch.Summary
	}
	if patch.HTMLContent != nil {
		report.HTMLContent = *patch.HTMLContent
	}
	if patch.Recipients != nil {
		report.Recipients = append([]string(nil), patch.Recipients...)
	}
	if patch.DownloadURL != nil {
		report.DownloadURL = patch.DownloadURL
	}
	if patch.Metadata != nil {
		report.Metadata = patch.Metadata
	}
	s.reports[id] = report
	s.persistLocked()
	return cloneReport(report), nil
}

// DeleteReport removes a report by id.
func (s *Store) DeleteReport(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	delete(s.reports, id)
	s.persistLocked()
	return nil
}
