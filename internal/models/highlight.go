package models

import "time"

// Highlight is a post saved by a user. Posts may disappear underneath it.
type Highlight struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_highlight_user_post" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_highlight_user_post" json:"post_id"`
	PostType  PostKind  `gorm:"size:16;not null;uniqueIndex:idx_highlight_user_post" json:"post_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (Highlight) TableName() string { return "user_highlights" }
