package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// ReportFilter narrows the moderation queue. Zero values match everything.
type ReportFilter struct {
	Status   models.ReportStatus
	PostType models.PostKind
	PostID   string
	Limit    int
}

// ReportRepository stores user reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	Resolve(ctx context.Context, id uint, status models.ReportStatus, by uint, note string) (*models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a ReportRepository backed by db.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportOpen
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := readDB(r.db).WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, storageError(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	q := readDB(r.db).WithContext(ctx).Order("created_at DESC, id DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PostType != "" {
		q = q.Where("post_type = ?", filter.PostType)
	}
	if filter.PostID != "" {
		q = q.Where("post_id = ?", filter.PostID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []models.Report
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	return out, nil
}

// Resolve closes an open report as resolved or dismissed.
func (r *reportRepository) Resolve(ctx context.Context, id uint, status models.ReportStatus, by uint, note string) (*models.Report, error) {
	if status != models.ReportResolved && status != models.ReportDismissed {
		return nil, models.NewValidationError("status must be resolved or dismissed")
	}
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, storageError(err, "Report", id)
	}
	if report.Status != models.ReportOpen {
		return nil, models.NewValidationError("Report is already closed")
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&report).Updates(map[string]any{
		"status":          status,
		"resolved_by":     by,
		"resolved_at":     now,
		"resolution_note": note,
	}).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	report.Status = status
	report.ResolvedBy = &by
	report.ResolvedAt = &now
	report.ResolutionNote = note
	return &report, nil
}
