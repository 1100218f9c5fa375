package audit

import (
	"fmt"
	"strings"

	"kasir-sync/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	IDs         []string
	Action      models.AuditAction
	Description string
}

// WriteLog records one audit row. db may be an open transaction so the entry
// commits together with the change it describes.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityIDs:   strings.Join(opts.IDs, ","),
		Count:       len(opts.IDs),
		Action:      opts.Action,
		Description: opts.Description,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
