package models

import "time"

// SyncState carries the dirty-tracking columns shared by every synchronised kind.
// UpdatedAt is written explicitly by the store's clock, never by gorm.
type SyncState struct {
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;index" json:"updated_at"`
	Synced    bool      `gorm:"not null;index" json:"synced"`
}

// Version identifies the write a row was last touched by.
func (s SyncState) Version() time.Time { return s.UpdatedAt }

// IsSynced reports whether the server has acknowledged the current row.
func (s SyncState) IsSynced() bool { return s.Synced }
