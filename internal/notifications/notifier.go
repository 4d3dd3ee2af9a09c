// Package notifications fans moderation events out to administrators over Redis.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"

	"huellas/internal/middleware"
	"huellas/internal/models"
)

// AdminChannel carries every moderation event.
const AdminChannel = "admin:events"

// Admin event types.
const (
	EventReportFiled    = "report_filed"
	EventReportResolved = "report_resolved"
	EventPostSuspended  = "post_suspended"
)

// AdminEvent is the payload published on AdminChannel.
type AdminEvent struct {
	Type     string          `json:"type"`
	PostID   string          `json:"post_id,omitempty"`
	PostType models.PostKind `json:"post_type,omitempty"`
	ReportID uint            `json:"report_id,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	ActorID  *uint           `json:"actor_id,omitempty"`
	At       time.Time       `json:"at"`
}

// Notifier publishes admin events. A Notifier with a nil client is a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using rdb, which may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishAdmin sends ev to AdminChannel, stamping it when At is zero.
func (n *Notifier) PublishAdmin(ctx context.Context, ev AdminEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal admin event: %w", err)
	}
	return n.rdb.Publish(ctx, AdminChannel, payload).Err()
}

// StartAdminSubscriber calls onEvent for every admin event until ctx is done.
// Malformed payloads are logged and skipped.
func (n *Notifier) StartAdminSubscriber(ctx context.Context, onEvent func(AdminEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, AdminChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", AdminChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev AdminEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("Dropping malformed admin event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("PANIC in admin subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
