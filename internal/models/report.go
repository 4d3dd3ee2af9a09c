package models

import (
	"fmt"
	"strings"
	"time"
)

// ReportReason is why a user flagged a post.
type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonFake          ReportReason = "fake"
	ReasonAnimalAbuse   ReportReason = "animal_abuse"
	ReasonCommercial    ReportReason = "commercial"
	ReasonOffensive     ReportReason = "offensive"
	ReasonPersonalData  ReportReason = "personal_data"
	ReasonOther         ReportReason = "other"
)

// ReportReasons lists the accepted reasons.
var ReportReasons = []ReportReason{
	ReasonSpam, ReasonInappropriate, ReasonFake, ReasonAnimalAbuse,
	ReasonCommercial, ReasonOffensive, ReasonPersonalData, ReasonOther,
}

// ParseReportReason rejects unknown reasons.
func ParseReportReason(s string) (ReportReason, error) {
	r := ReportReason(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ReportReasons {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid report reason %q", s)
}

// ReportStatus tracks moderation of a report.
type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a user complaint about a post. It does not reference the post table.
type Report struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	PostID         string       `gorm:"size:36;not null;index:idx_report_post" json:"post_id"`
	PostType       PostKind     `gorm:"size:16;not null;index:idx_report_post" json:"post_type"`
	Reason         ReportReason `gorm:"size:32;not null" json:"reason"`
	Message        string       `gorm:"type:text" json:"message,omitempty"`
	ReporterID     *uint        `gorm:"index" json:"reporter_id,omitempty"`
	Status         ReportStatus `gorm:"size:16;not null;default:open;index" json:"status"`
	ResolvedBy     *uint        `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
	ResolutionNote string       `gorm:"type:text" json:"resolution_note,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
