package validation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type CorrectionRepo interface {
	Create(dbc dbctx.Context, rec *types.CorrectionRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CorrectionRecord, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CorrectionRecord, error)
	ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.CorrectionRecord, error)
	CountOpenByTarget(dbc dbctx.Context, recognitionID uuid.UUID, targetStage string) (int64, error)
	// ResolveOpen closes every open record of the recognition whose target
	// stage is in targetStages.
	ResolveOpen(dbc dbctx.Context, recognitionID uuid.UUID, targetStages []string, at time.Time) (int64, error)
	MarkResolved(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type correctionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCorrectionRepo(db *gorm.DB, baseLog *logger.Logger) CorrectionRepo {
	return &correctionRepo{
		db:  db,
		log: baseLog.With("repo", "CorrectionRepo"),
	}
}

func (r *correctionRepo) Create(dbc dbctx.Context, rec *types.CorrectionRecord) error {
	if rec == nil {
		return nil
	}
	return dbc.DB(r.db).Create(rec).Error
}

func (r *correctionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CorrectionRecord, error) {
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *correctionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CorrectionRecord, error) {
	return r.first(dbc.DB(r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *correctionRepo) ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.CorrectionRecord, error) {
	var out []*types.CorrectionRecord
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *correctionRepo) CountOpenByTarget(dbc dbctx.Context, recognitionID uuid.UUID, targetStage string) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.CorrectionRecord{}).
		Where("recognition_id = ? AND target_stage = ? AND status = ?", recognitionID, targetStage, types.CorrectionOpen).
		Count(&n).Error
	return n, err
}

func (r *correctionRepo) ResolveOpen(dbc dbctx.Context, recognitionID uuid.UUID, targetStages []string, at time.Time) (int64, error) {
	if len(targetStages) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Model(&types.CorrectionRecord{}).
		Where("recognition_id = ? AND status = ? AND target_stage IN ?", recognitionID, types.CorrectionOpen, targetStages).
		Updates(map[string]interface{}{
			"status":      types.CorrectionResolved,
			"resolved_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *correctionRepo) MarkResolved(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return dbc.DB(r.db).
		Model(&types.CorrectionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      types.CorrectionResolved,
			"resolved_at": at,
			"updated_at":  at,
		}).Error
}

func (r *correctionRepo) first(q *gorm.DB) (*types.CorrectionRecord, error) {
	var rec types.CorrectionRecord
	err := q.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
