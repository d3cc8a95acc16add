package domain

import "time"

// ReportPeriod enumerates supported reporting windows.
type ReportPeriod string

const (
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
	PeriodYearly  ReportPeriod = "yearly"
)

// Report holds one generated summary over a bounded date range.
type Report struct {
	ID          int64          `json:"id"`
	Period      ReportPeriod   `json:"period"`
	FromDate    time.Time      `json:"from_date"`
	ToDate      time.Time      `json:"to_date"`
	Summary     string         `json:"summary"`
	HTMLContent string         `json:"html_content,omitempty"`
	Recipients  []string       `json:"recipients"`
	DownloadURL *string        `json:"download_url,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}
