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

type WorkItemRepo interface {
	Create(dbc dbctx.Context, items []*types.WorkItem) error
	GetByID(dbc dbctx.Context, workLogID uuid.UUID, id uuid.UUID) (*types.WorkItem, error)
	ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID, includeDeleted bool) ([]*types.WorkItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error)
	DeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error)
}

type workItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkItemRepo(db *gorm.DB, baseLog *logger.Logger) WorkItemRepo {
	return &workItemRepo{
		db:  db,
		log: baseLog.With("repo", "WorkItemRepo"),
	}
}

func (r *workItemRepo) Create(dbc dbctx.Context, items []*types.WorkItem) error {
	if len(items) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&items).Error
}

func (r *workItemRepo) GetByID(dbc dbctx.Context, workLogID uuid.UUID, id uuid.UUID) (*types.WorkItem, error) {
	var item types.WorkItem
	err := dbc.DB(r.db).
		Where("id = ? AND work_log_id = ?", id, workLogID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *workItemRepo) ListByWorkLog(dbc dbctx.Context, workLogID uuid.UUID, includeDeleted bool) ([]*types.WorkItem, error) {
	var out []*types.WorkItem
	q := dbc.DB(r.db).Where("work_log_id = ?", workLogID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	err := q.Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *workItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.WorkItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteByWorkLog hard-deletes the working items of a finished or abandoned
// claim.
func (r *workItemRepo) DeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("work_log_id = ?", workLogID).
		Delete(&types.WorkItem{})
	return res.RowsAffected, res.Error
}

// SoftDeleteByWorkLog marks every live row of an active claim deleted.
func (r *workItemRepo) SoftDeleteByWorkLog(dbc dbctx.Context, workLogID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.WorkItem{}).
		Where("work_log_id = ? AND is_deleted = ?", workLogID, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
