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

type RouteRepo interface {
	Get(dbc dbctx.Context, recognitionID uuid.UUID) (*types.RecognitionRoute, error)
	Upsert(dbc dbctx.Context, route *types.RecognitionRoute) error
}

type routeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRouteRepo(db *gorm.DB, baseLog *logger.Logger) RouteRepo {
	return &routeRepo{
		db:  db,
		log: baseLog.With("repo", "RouteRepo"),
	}
}

func (r *routeRepo) Get(dbc dbctx.Context, recognitionID uuid.UUID) (*types.RecognitionRoute, error) {
	var route types.RecognitionRoute
	err := dbc.DB(r.db).Where("recognition_id = ?", recognitionID).First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *routeRepo) Upsert(dbc dbctx.Context, route *types.RecognitionRoute) error {
	if route == nil || route.RecognitionID == uuid.Nil {
		return nil
	}
	if route.UpdatedAt.IsZero() {
		route.UpdatedAt = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recognition_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"queue", "stage", "updated_at"}),
		}).
		Create(route).Error
}
