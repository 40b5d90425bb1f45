package validation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type WorkChangeRepo interface {
	Append(dbc dbctx.Context, change *types.WorkChange) error
	ListDraft(dbc dbctx.Context, workLogID uuid.UUID) ([]*types.WorkChange, error)
	// StampDraft assigns stepOrder to every draft change of the work log,
	// closing the draft.
	StampDraft(dbc dbctx.Context, workLogID uuid.UUID, stepOrder int) (int64, error)
	DeleteDraft(dbc dbctx.Context, workLogID uuid.UUID) (int64, error)
}

type workChangeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkChangeRepo(db *gorm.DB, baseLog *logger.Logger) WorkChangeRepo {
	return &workChangeRepo{
		db:  db,
		log: baseLog.With("repo", "WorkChangeRepo"),
	}
}

// Append stores change with the next sequence number of its work log. Callers
// hold the work log row lock, so sequence numbers do not collide.
func (r *workChangeRepo) Append(dbc dbctx.Context, change *types.WorkChange) error {
	if change == nil {
		return nil
	}
	var maxSeq int64
	if err := dbc.DB(r.db).
		Model(&types.WorkChange{}).
		Where("work_log_id = ?", change.WorkLogID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	change.Seq = maxSeq + 1
	return dbc.DB(r.db).Create(change).Error
}

func (r *workChangeRepo) ListDraft(dbc dbctx.Context, workLogID uuid.UUID) ([]*types.WorkChange, error) {
	var out []*types.WorkChange
	err := dbc.DB(r.db).
		Where("work_log_id = ? AND step_order IS NULL", workLogID).
		Order("seq ASC").
		Find(&out).Error
	return out, err
}

func (r *workChangeRepo) StampDraft(dbc dbctx.Context, workLogID uuid.UUID, stepOrder int) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.WorkChange{}).
		Where("work_log_id = ? AND step_order IS NULL", workLogID).
		Update("step_order", stepOrder)
	return res.RowsAffected, res.Error
}

func (r *workChangeRepo) DeleteDraft(dbc dbctx.Context, workLogID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("work_log_id = ? AND step_order IS NULL", workLogID).
		Delete(&types.WorkChange{})
	return res.RowsAffected, res.Error
}
