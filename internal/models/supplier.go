package models

type Supplier struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Name    string `gorm:"size:200;not null;index" json:"name"`
	Phone   string `gorm:"size:50" json:"phone"`
	Address string `gorm:"size:255" json:"address"`
	SyncState
}

func (s Supplier) RecordID() string { return s.ID }
