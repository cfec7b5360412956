package models

import "time"

// RouteRecord is an audit entry of one delivery attempt.
// Exactly one of ToID and ToGroupID is set.
type RouteRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FromID    uint      `json:"from_id" gorm:"index"`
	ToID      *uint     `json:"to_id,omitempty" gorm:"index"`
	ToGroupID *uint     `json:"to_group_id,omitempty" gorm:"index"`
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at" gorm:"index"`
}

func (v RouteRecord) IsGroup() bool {
	return v.ToGroupID != nil
}
