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

// CandidateQuery narrows the recognitions FindCandidate may return for one
// validation type.
type CandidateQuery struct {
	Type types.ValidationType
	// Claims with a heartbeat before StaleBefore do not block selection.
	StaleBefore        time.Time
	BatchID            string
	AmbiguousLinesOnly bool
	RequireResolved    []types.ValidationType
	ExcludeIDs         []uuid.UUID
	OnlyID             uuid.UUID
	// RoutedStage keeps recognitions a flag pointed at this stage of the
	// validation queue.
	RoutedStage string
}

type WorkLogRepo interface {
	Create(dbc dbctx.Context, wl *types.WorkLog) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkLog, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkLog, error)
	GetActiveByAssignee(dbc dbctx.Context, assignee uuid.UUID) (*types.WorkLog, error)
	GetActiveByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) (*types.WorkLog, error)
	LastCompletedRecognition(dbc dbctx.Context, assignee uuid.UUID) (uuid.UUID, error)
	ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.WorkLog, error)
	ListStale(dbc dbctx.Context, staleBefore time.Time, limit int) ([]*types.WorkLog, error)
	FindCandidate(dbc dbctx.Context, q CandidateQuery) (*types.Recognition, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, status types.WorkLogStatus, updates map[string]interface{}) (bool, error)
}

type workLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkLogRepo(db *gorm.DB, baseLog *logger.Logger) WorkLogRepo {
	return &workLogRepo{
		db:  db,
		log: baseLog.With("repo", "WorkLogRepo"),
	}
}

func (r *workLogRepo) Create(dbc dbctx.Context, wl *types.WorkLog) error {
	if wl == nil {
		return nil
	}
	return dbc.DB(r.db).Create(wl).Error
}

func (r *workLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkLog, error) {
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *workLogRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.WorkLog, error) {
	return r.first(dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *workLogRepo) GetActiveByAssignee(dbc dbctx.Context, assignee uuid.UUID) (*types.WorkLog, error) {
	return r.first(dbc.DB(r.db).
		Where("assigned_to = ? AND status = ?", assignee, types.WorkLogInProgress).
		Order("started_at DESC"))
}

func (r *workLogRepo) GetActiveByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) (*types.WorkLog, error) {
	return r.first(dbc.DB(r.db).
		Where("recognition_id = ? AND status = ?", recognitionID, types.WorkLogInProgress))
}

func (r *workLogRepo) LastCompletedRecognition(dbc dbctx.Context, assignee uuid.UUID) (uuid.UUID, error) {
	wl, err := r.first(dbc.DB(r.db).
		Where("assigned_to = ? AND status = ?", assignee, types.WorkLogCompleted).
		Order("completed_at DESC"))
	if err != nil || wl == nil {
		return uuid.Nil, err
	}
	return wl.RecognitionID, nil
}

func (r *workLogRepo) ListByRecognition(dbc dbctx.Context, recognitionID uuid.UUID) ([]*types.WorkLog, error) {
	var out []*types.WorkLog
	err := dbc.DB(r.db).
		Where("recognition_id = ?", recognitionID).
		Order("started_at ASC").
		Find(&out).Error
	return out, err
}

func (r *workLogRepo) ListStale(dbc dbctx.Context, staleBefore time.Time, limit int) ([]*types.WorkLog, error) {
	var out []*types.WorkLog
	q := dbc.DB(r.db).
		Where("status = ? AND heartbeat_at < ?", types.WorkLogInProgress, staleBefore).
		Order("heartbeat_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// FindCandidate returns the first recognition, by recognition key, that is
// unresolved for q.Type, not held by a fresh claim and not parked in the
// remediation queue. The row is locked with SKIP LOCKED so concurrent
// claimers fan out over different recognitions.
func (r *workLogRepo) FindCandidate(dbc dbctx.Context, q CandidateQuery) (*types.Recognition, error) {
	tx := dbc.DB(r.db).
		Model(&types.Recognition{}).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where(`NOT EXISTS (
      SELECT 1 FROM recognition_validation_statuses s
      WHERE s.recognition_id = recognitions.id AND s.validation_type = ? AND s.status = ?
    )`, q.Type, types.TypeStatusResolved).
		Where(`NOT EXISTS (
      SELECT 1 FROM work_logs w
      WHERE w.recognition_id = recognitions.id AND w.status = ? AND w.heartbeat_at >= ?
    )`, types.WorkLogInProgress, q.StaleBefore).
		Where(`NOT EXISTS (
      SELECT 1 FROM recognition_routes rr
      WHERE rr.recognition_id = recognitions.id AND rr.queue = ?
    )`, types.QueueRemediation)

	for _, req := range q.RequireResolved {
		tx = tx.Where(`EXISTS (
      SELECT 1 FROM recognition_validation_statuses s
      WHERE s.recognition_id = recognitions.id AND s.validation_type = ? AND s.status = ?
    )`, req, types.TypeStatusResolved)
	}
	if q.AmbiguousLinesOnly {
		tx = tx.Where(`EXISTS (
      SELECT 1 FROM recipe_lines l
      WHERE l.recognition_id = recognitions.id
        AND (SELECT COUNT(*) FROM recipe_line_options o WHERE o.recipe_line_id = l.id) > 1
    )`)
	}
	if q.BatchID != "" {
		tx = tx.Where("recognitions.batch_id = ?", q.BatchID)
	}
	if len(q.ExcludeIDs) > 0 {
		tx = tx.Where("recognitions.id NOT IN ?", q.ExcludeIDs)
	}
	if q.OnlyID != uuid.Nil {
		tx = tx.Where("recognitions.id = ?", q.OnlyID)
	}
	if q.RoutedStage != "" {
		tx = tx.Where(`EXISTS (
      SELECT 1 FROM recognition_routes rr
      WHERE rr.recognition_id = recognitions.id AND rr.queue = ? AND rr.stage = ?
    )`, types.QueueValidation, q.RoutedStage)
	}

	var rec types.Recognition
	err := tx.Order("recognitions.recognition_key ASC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *workLogRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.WorkLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateFieldsIfStatus applies updates only while the row still has status.
// It reports whether a row changed, which lets callers detect a lost race.
func (r *workLogRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, status types.WorkLogStatus, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.WorkLog{}).
		Where("id = ? AND status = ?", id, status).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *workLogRepo) first(q *gorm.DB) (*types.WorkLog, error) {
	var wl types.WorkLog
	err := q.First(&wl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wl, nil
}
