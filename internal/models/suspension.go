package models

import (
	"encoding/json"
	"time"
)

// SuspendedPostLog records a moderator suspension with a snapshot of the post.
type SuspendedPostLog struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OriginalPostID string          `gorm:"size:36;not null;index:idx_suspension_post" json:"original_post_id"`
	PostType       PostKind        `gorm:"size:16;not null;index:idx_suspension_post" json:"post_type"`
	Reason         string          `gorm:"type:text" json:"reason"`
	ReasonCode     string          `gorm:"size:32" json:"reason_code,omitempty"`
	Data           json.RawMessage `gorm:"type:text" json:"data"`
	SuspendedBy    uint            `json:"suspended_by"`
	SuspendedAt    time.Time       `gorm:"autoCreateTime" json:"suspended_at"`
}

func (SuspendedPostLog) TableName() string { return "suspended_posts_log" }
