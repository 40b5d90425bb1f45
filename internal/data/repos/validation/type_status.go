package validation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// TypeStatusRepo maintains the derived per-(recognition, type) resolution
// flags the claim query filters on.
type TypeStatusRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.RecognitionValidationStatus) error
	ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.RecognitionValidationStatus, error)
	ResolvedTypes(dbc dbctx.Context, recognitionID uuid.UUID) (map[types.ValidationType]bool, error)
}

type typeStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTypeStatusRepo(db *gorm.DB, baseLog *logger.Logger) TypeStatusRepo {
	return &typeStatusRepo{
		db:  db,
		log: baseLog.With("repo", "TypeStatusRepo"),
	}
}

func (r *typeStatusRepo) Upsert(dbc dbctx.Context, rows []*types.RecognitionValidationStatus) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recognition_id"}, {Name: "validation_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "work_log_id", "updated_at"}),
		}).
		Create(&rows).Error
}

func (r *typeStatusRepo) ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.RecognitionValidationStatus, error) {
	var out []*types.RecognitionValidationStatus
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("validation_type ASC").
		Find(&out).Error
	return out, err
}

func (r *typeStatusRepo) ResolvedTypes(dbc dbctx.Context, recognitionID uuid.UUID) (map[types.ValidationType]bool, error) {
	rows, err := r.ListByRecognition(dbc, recognitionID)
	if err != nil {
		return nil, err
	}
	out := make(map[types.ValidationType]bool, len(rows))
	for _, row := range rows {
		if row.Status == types.TypeStatusResolved {
			out[row.ValidationType] = true
		}
	}
	return out, nil
}
