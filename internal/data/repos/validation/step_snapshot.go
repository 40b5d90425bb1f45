package validation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// StepSnapshotRepo is append-only. The model's hooks refuse updates and
// deletes, so the interface offers neither.
type StepSnapshotRepo interface {
	Create(dbc dbctx.Context, snap *types.StepSnapshot) error
	ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) ([]*types.StepSnapshot, error)
	NextRevision(dbc dbctx.Context, workLogID uuid.UUID, stepOrder int) (int, error)
}

type stepSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStepSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) StepSnapshotRepo {
	return &stepSnapshotRepo{
		db:  db,
		log: baseLog.With("repo", "StepSnapshotRepo"),
	}
}

func (r *stepSnapshotRepo) Create(dbc dbctx.Context, snap *types.StepSnapshot) error {
	if snap == nil {
		return nil
	}
	return dbc.DB(r.db).Create(snap).Error
}

func (r *stepSnapshotRepo) ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) ([]*types.StepSnapshot, error) {
	var out []*types.StepSnapshot
	err := dbc.DB(r.db).
		Where("work_log_id = ?", workLogID).
		Order("step_order ASC, revision ASC").
		Find(&out).Error
	return out, err
}

func (r *stepSnapshotRepo) NextRevision(dbc dbctx.Context, workLogID uuid.UUID, stepOrder int) (int, error) {
	var maxRev int
	err := dbc.DB(r.db).
		Model(&types.StepSnapshot{}).
		Where("work_log_id = ? AND step_order = ?", workLogID, stepOrder).
		Select("COALESCE(MAX(revision), 0)").
		Scan(&maxRev).Error
	if err != nil {
		return 0, err
	}
	return maxRev + 1, nil
}
