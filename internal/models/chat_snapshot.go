package models

import "time"

// ChatSnapshot persists an archived chat session for a signed-in account.
type ChatSnapshot struct {
	ID           uint      `gorm:"primaryKey"`
	OwnerEmail   string    `gorm:"size:254;not null;index:idx_snapshot_owner_key,unique"`
	Key          string    `gorm:"size:64;not null;index:idx_snapshot_owner_key,unique"`
	Provider     string    `gorm:"size:32;not null"`
	MessagesJSON string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
}
