package recognition

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type RecognitionRepo interface {
	Create(dbc dbctx.Context, recs []*types.Recognition) ([]*types.Recognition, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recognition, error)
	GetByKey(dbc dbctx.Context, key string) (*types.Recognition, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Recognition, error)
	Count(dbc dbctx.Context) (int64, error)
}

type recognitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecognitionRepo(db *gorm.DB, baseLog *logger.Logger) RecognitionRepo {
	return &recognitionRepo{
		db:  db,
		log: baseLog.With("repo", "RecognitionRepo"),
	}
}

func (r *recognitionRepo) Create(dbc dbctx.Context, recs []*types.Recognition) ([]*types.Recognition, error) {
	if len(recs) == 0 {
		return []*types.Recognition{}, nil
	}
	if err := dbc.DB(r.db).Create(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *recognitionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recognition, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.Recognition
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *recognitionRepo) GetByKey(dbc dbctx.Context, key string) (*types.Recognition, error) {
	if key == "" {
		return nil, nil
	}
	var rec types.Recognition
	err := dbc.DB(r.db).Where("recognition_key = ?", key).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

// LockByID takes a row lock on the recognition for the rest of the
// transaction. Returns nil when the row does not exist.
func (r *recognitionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Recognition, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.Recognition
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recognitionRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Recognition{}).Count(&n).Error
	return n, err
}
