package recognition

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

// BaselineRepo reads and writes the immutable ingestion records of a
// recognition: its images, initial items/annotations and recipe lines. The
// create methods exist for ingestion fixtures and seeding only.
type BaselineRepo interface {
	CreateImages(dbc dbctx.Context, images []*types.Image) error
	CreateItems(dbc dbctx.Context, items []*types.InitialItem) error
	CreateAnnotations(dbc dbctx.Context, anns []*types.InitialAnnotation) error
	CreateRecipeLines(dbc dbctx.Context, lines []*types.RecipeLine) error

	ListImages(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.Image, error)
	ListItems(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.InitialItem, error)
	ListAnnotations(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.InitialAnnotation, error)
	ListRecipeLines(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.RecipeLine, error)
}

type baselineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBaselineRepo(db *gorm.DB, baseLog *logger.Logger) BaselineRepo {
	return &baselineRepo{
		db:  db,
		log: baseLog.With("repo", "BaselineRepo"),
	}
}

func (r *baselineRepo) CreateImages(dbc dbctx.Context, images []*types.Image) error {
	if len(images) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&images).Error
}

func (r *baselineRepo) CreateItems(dbc dbctx.Context, items []*types.InitialItem) error {
	if len(items) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&items).Error
}

func (r *baselineRepo) CreateAnnotations(dbc dbctx.Context, anns []*types.InitialAnnotation) error {
	if len(anns) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&anns).Error
}

func (r *baselineRepo) CreateRecipeLines(dbc dbctx.Context, lines []*types.RecipeLine) error {
	if len(lines) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&lines).Error
}

func (r *baselineRepo) ListImages(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.Image, error) {
	var out []*types.Image
	if recognitionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("camera_number ASC").
		Find(&out).Error
	return out, err
}

func (r *baselineRepo) ListItems(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.InitialItem, error) {
	var out []*types.InitialItem
	if recognitionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *baselineRepo) ListAnnotations(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.InitialAnnotation, error) {
	var out []*types.InitialAnnotation
	if recognitionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *baselineRepo) ListRecipeLines(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.RecipeLine, error) {
	var out []*types.RecipeLine
	if recognitionID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Preload("Options").
		Where("recognition_id = ?", recognitionID).
		Order("line_number ASC").
		Find(&out).Error
	return out, err
}
