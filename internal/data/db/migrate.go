package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
)

// ActiveClaimIndex enforces claim exclusivity: one in-progress work log per
// recognition.
const ActiveClaimIndex = "ux_work_logs_active_recognition"

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + ActiveClaimIndex + ` ON work_logs (recognition_id) WHERE status = 'in_progress'`,
		`CREATE INDEX IF NOT EXISTS ix_work_logs_assignee_status ON work_logs (assigned_to, status)`,
		`CREATE INDEX IF NOT EXISTS ix_step_snapshots_log_step ON step_snapshots (work_log_id, step_order, revision)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate index: %w", err)
		}
	}
	return nil
}
