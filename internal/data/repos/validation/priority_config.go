package validation

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type PriorityConfigRepo interface {
	ListActive(dbc dbctx.Context, at time.Time) ([]*types.PriorityConfig, error)
	CurrentVersion(dbc dbctx.Context) (int, error)
	// ReplaceActive deactivates every active row and inserts rows as a new
	// version. Callers run it inside a transaction.
	ReplaceActive(dbc dbctx.Context, rows []*types.PriorityConfig) (int, error)
	Count(dbc dbctx.Context) (int64, error)
}

type priorityConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorityConfigRepo(db *gorm.DB, baseLog *logger.Logger) PriorityConfigRepo {
	return &priorityConfigRepo{
		db:  db,
		log: baseLog.With("repo", "PriorityConfigRepo"),
	}
}

// ListActive returns the active rows of the highest active version that
// apply at at, ordered by position.
func (r *priorityConfigRepo) ListActive(dbc dbctx.Context, at time.Time) ([]*types.PriorityConfig, error) {
	var rows []*types.PriorityConfig
	err := dbc.DB(r.db).
		Where("is_active = ?", true).
		Order("version DESC, position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*types.PriorityConfig, 0, len(rows))
	version := -1
	for _, row := range rows {
		if version == -1 {
			version = row.Version
		}
		if row.Version != version {
			break
		}
		if row.ActiveAt(at) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *priorityConfigRepo) CurrentVersion(dbc dbctx.Context) (int, error) {
	var v int
	err := dbc.DB(r.db).
		Model(&types.PriorityConfig{}).
		Select("COALESCE(MAX(version), 0)").
		Scan(&v).Error
	return v, err
}

func (r *priorityConfigRepo) ReplaceActive(dbc dbctx.Context, rows []*types.PriorityConfig) (int, error) {
	version, err := r.CurrentVersion(dbc)
	if err != nil {
		return 0, err
	}
	version++
	now := time.Now().UTC()
	if err := dbc.DB(r.db).
		Model(&types.PriorityConfig{}).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now}).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return version, nil
	}
	for _, row := range rows {
		row.Version = version
		row.IsActive = true
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return 0, err
	}
	return version, nil
}

func (r *priorityConfigRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.PriorityConfig{}).Count(&n).Error
	return n, err
}
