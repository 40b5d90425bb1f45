package validation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type WorkAnnotationRepo interface {
	Create(dbc dbctx.Context, anns []*types.WorkAnnotation) error
	GetByID(dbc dbctx.Context, workLogID uuid.UUID, id uuid.UUID) (*types.WorkAnnotation, error)
	ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID, includeDeleted bool) ([]*types.WorkAnnotation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByItem(dbc dbctx.Context, workLogID uuid.UUID, itemID uuid.UUID) ([]uuid.UUID, error)
	SoftDeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error)
	DeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error)
}

type workAnnotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) WorkAnnotationRepo {
	return &workAnnotationRepo{
		db:  db,
		log: baseLog.With("repo", "WorkAnnotationRepo"),
	}
}

func (r *workAnnotationRepo) Create(dbc dbctx.Context, anns []*types.WorkAnnotation) error {
	if len(anns) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&anns).Error
}

func (r *workAnnotationRepo) GetByID(dbc dbctx.Context, workLogID uuid.UUID, id uuid.UUID) (*types.WorkAnnotation, error) {
	var ann types.WorkAnnotation
	err := dbc.DB(r.db).
		Where("id = ? AND work_log_id = ?", id, workLogID).
		First(&ann).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ann, nil
}

func (r *workAnnotationRepo) ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID, includeDeleted bool) ([]*types.WorkAnnotation, error) {
	var out []*types.WorkAnnotation
	q := dbc.DB(r.db).Where("work_log_id = ?", workLogID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *workAnnotationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.WorkAnnotation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SoftDeleteByItem marks every live annotation of itemID deleted and returns
// the affected ids.
func (r *workAnnotationRepo) SoftDeleteByItem(dbc dbctx.Context, workLogID uuid.UUID, itemID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.WorkAnnotation{}).
		Where("work_log_id = ? AND work_item_id = ? AND is_deleted = ?", workLogID, itemID, false).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	err := dbc.DB(r.db).
		Model(&types.WorkAnnotation{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *workAnnotationRepo) DeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("work_log_id = ?", workLogID).
		Delete(&types.WorkAnnotation{})
	return res.RowsAffected, res.Error
}

// SoftDeleteByWorkLog marks every live row of an active claim deleted.
func (r *workAnnotationRepo) SoftDeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.WorkAnnotation{}).
		Where("work_log_id = ? AND is_deleted = ?", workLogID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
