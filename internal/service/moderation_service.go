package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"huellas/internal/cache"
	"huellas/internal/events"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/notifications"
	"huellas/internal/observability"
	"huellas/internal/repository"
)

const (
	maxReportMessageLength = 2000
	defaultModerationLimit = 100
)

// FileReportInput is a user complaint about a post.
type FileReportInput struct {
	PostID     string
	PostType   models.PostKind
	Reason     string
	Message    string
	ReporterID uint
}

// ModerationService provides reporting and admin moderation logic.
type ModerationService struct {
	posts       PostStore
	reports     repository.ReportRepository
	suspensions repository.SuspensionRepository
	notifier    *notifications.Notifier
	events      *events.Publisher
	cache       *cache.Store
}

// NewModerationService returns a new ModerationService. notifier, publisher
// and store may be nil.
func NewModerationService(
	posts PostStore,
	reports repository.ReportRepository,
	suspensions repository.SuspensionRepository,
	notifier *notifications.Notifier,
	publisher *events.Publisher,
	store *cache.Store,
) *ModerationService {
	if publisher == nil {
		publisher = events.NewPublisher(nil)
	}
	return &ModerationService{
		posts:       posts,
		reports:     reports,
		suspensions: suspensions,
		notifier:    notifier,
		events:      publisher,
		cache:       store,
	}
}

func (s *ModerationService) notify(ctx context.Context, ev notifications.AdminEvent) {
	if err := s.notifier.PublishAdmin(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish admin event", slog.String("type", ev.Type), slog.String("error", err.Error()))
	}
}

// FileReport validates and stores a report. The post itself is not changed.
func (s *ModerationService) FileReport(ctx context.Context, in FileReportInput) (*models.Report, error) {
	in.PostID = strings.TrimSpace(in.PostID)
	in.Message = strings.TrimSpace(in.Message)
	if in.PostID == "" {
		return nil, models.NewValidationError("post_id is required")
	}
	kind, err := models.ParseKind(string(in.PostType))
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	reason, err := models.ParseReportReason(in.Reason)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if reason == models.ReasonOther && in.Message == "" {
		return nil, models.NewValidationError("A message is required when the reason is other")
	}
	if utf8.RuneCountInString(in.Message) > maxReportMessageLength {
		return nil, models.NewValidationError(fmt.Sprintf("message too long (max %d characters)", maxReportMessageLength))
	}
	if _, err := s.posts.For(kind).GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	report := &models.Report{
		PostID:   in.PostID,
		PostType: kind,
		Reason:   reason,
		Message:  in.Message,
	}
	if in.ReporterID != 0 {
		reporter := in.ReporterID
		report.ReporterID = &reporter
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	observability.ReportsFiled.WithLabelValues(string(reason)).Inc()
	s.notify(ctx, notifications.AdminEvent{
		Type:     notifications.EventReportFiled,
		PostID:   report.PostID,
		PostType: kind,
		ReportID: report.ID,
		Reason:   string(reason),
		ActorID:  report.ReporterID,
	})
	s.events.ReportFiled(ctx, report)
	return report, nil
}

// ListReports returns the moderation queue, newest first.
func (s *ModerationService) ListReports(ctx context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultModerationLimit
	}
	return s.reports.List(ctx, filter)
}

// ResolveReport closes an open report as resolved or dismissed.
func (s *ModerationService) ResolveReport(ctx context.Context, id uint, status string, by uint, note string) (*models.Report, error) {
	st := models.ReportStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != models.ReportResolved && st != models.ReportDismissed {
		return nil, models.NewValidationError("status must be resolved or dismissed")
	}
	report, err := s.reports.Resolve(ctx, id, st, by, strings.TrimSpace(note))
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notifications.AdminEvent{
		Type:     notifications.EventReportResolved,
		PostID:   report.PostID,
		PostType: report.PostType,
		ReportID: report.ID,
		Reason:   string(st),
		ActorID:  &by,
	})
	return report, nil
}

// SuspendPost forces a post inactive, logs a snapshot and resolves its open reports.
func (s *ModerationService) SuspendPost(ctx context.Context, kind models.PostKind, postID, reason, reasonCode string, by uint) (*models.SuspendedPostLog, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("A reason is required to suspend a post")
	}
	if reasonCode != "" {
		code, err := models.ParseReportReason(reasonCode)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		reasonCode = string(code)
	}

	entry, _, err := s.suspensions.Suspend(ctx, kind, postID, reason, reasonCode, by)
	if err != nil {
		return nil, err
	}

	s.cache.BumpVersion(ctx, cache.ListingVersionKey(string(kind)))
	observability.Suspensions.WithLabelValues(string(kind)).Inc()
	s.notify(ctx, notifications.AdminEvent{
		Type:     notifications.EventPostSuspended,
		PostID:   postID,
		PostType: kind,
		Reason:   reason,
		ActorID:  &by,
	})
	s.events.PostSuspended(ctx, kind, postID, reason)

	open, err := s.reports.List(ctx, repository.ReportFilter{Status: models.ReportOpen, PostType: kind, PostID: postID})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load open reports after suspension", slog.String("post_id", postID), slog.String("error", err.Error()))
		return entry, nil
	}
	for _, r := range open {
		if _, err := s.reports.Resolve(ctx, r.ID, models.ReportResolved, by, "Post suspended"); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to resolve report after suspension", slog.Uint64("report_id", uint64(r.ID)), slog.String("error", err.Error()))
		}
	}
	return entry, nil
}

// ListSuspensions returns the suspension log, newest first.
func (s *ModerationService) ListSuspensions(ctx context.Context, limit int) ([]models.SuspendedPostLog, error) {
	if limit <= 0 {
		limit = defaultModerationLimit
	}
	return s.suspensions.List(ctx, limit)
}
