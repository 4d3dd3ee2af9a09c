// Package events publishes domain events on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"huellas/internal/middleware"
	"huellas/internal/models"
)

// Subjects.
const (
	SubjectPostCreated       = "post.created"
	SubjectPostStatusChanged = "post.status_changed"
	SubjectPostDeleted       = "post.deleted"
	SubjectPostSuspended     = "post.suspended"
	SubjectReportFiled       = "report.filed"
)

// PostEvent describes a change to a post.
type PostEvent struct {
	PostID    string          `json:"post_id"`
	Kind      models.PostKind `json:"kind"`
	Status    models.Status   `json:"status,omitempty"`
	UserID    *uint           `json:"user_id,omitempty"`
	Anonymous bool            `json:"anonymous,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ReportEvent describes a filed report.
type ReportEvent struct {
	ReportID  uint                `json:"report_id"`
	PostID    string              `json:"post_id"`
	Kind      models.PostKind     `json:"kind"`
	Reason    models.ReportReason `json:"reason"`
	Timestamp string              `json:"timestamp"`
}

// Conn is the part of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends events. A Publisher without a connection drops everything.
type Publisher struct {
	conn Conn
	now  func() time.Time
}

// NewPublisher wraps conn, which may be nil.
func NewPublisher(conn Conn) *Publisher {
	return &Publisher{conn: conn, now: time.Now}
}

// Connect dials NATS. An empty url returns a nil connection and no error.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("huellas-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func (p *Publisher) stamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

// publish is best-effort: failures are logged and never returned.
func (p *Publisher) publish(ctx context.Context, subject string, v any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to encode event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

// PostCreated announces a new post.
func (p *Publisher) PostCreated(ctx context.Context, post models.Post) {
	b := post.Base()
	p.publish(ctx, SubjectPostCreated, PostEvent{
		PostID:    b.ID,
		Kind:      post.Kind(),
		Status:    b.Status,
		UserID:    b.UserID,
		Anonymous: b.UserID == nil,
		Timestamp: p.stamp(),
	})
}

// PostStatusChanged announces a status transition with the logical status.
func (p *Publisher) PostStatusChanged(ctx context.Context, kind models.PostKind, id string, status models.Status) {
	p.publish(ctx, SubjectPostStatusChanged, PostEvent{PostID: id, Kind: kind, Status: status, Timestamp: p.stamp()})
}

// PostDeleted announces a hard delete.
func (p *Publisher) PostDeleted(ctx context.Context, kind models.PostKind, id string) {
	p.publish(ctx, SubjectPostDeleted, PostEvent{PostID: id, Kind: kind, Timestamp: p.stamp()})
}

// PostSuspended announces a moderator suspension.
func (p *Publisher) PostSuspended(ctx context.Context, kind models.PostKind, id, reason string) {
	p.publish(ctx, SubjectPostSuspended, PostEvent{
		PostID:    id,
		Kind:      kind,
		Status:    models.StatusInactive,
		Reason:    reason,
		Timestamp: p.stamp(),
	})
}

// ReportFiled announces a new report.
func (p *Publisher) ReportFiled(ctx context.Context, r *models.Report) {
	p.publish(ctx, SubjectReportFiled, ReportEvent{
		ReportID:  r.ID,
		PostID:    r.PostID,
		Kind:      r.PostType,
		Reason:    r.Reason,
		Timestamp: p.stamp(),
	})
}
