package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/data/repos/recognition"
	"github.com/yungbote/tray-validation-backend/internal/data/repos/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type RecognitionRepo = recognition.RecognitionRepo
type BaselineRepo = recognition.BaselineRepo

type PriorityConfigRepo = validation.PriorityConfigRepo
type WorkLogRepo = validation.WorkLogRepo
type WorkItemRepo = validation.WorkItemRepo
type WorkAnnotationRepo = validation.WorkAnnotationRepo
type WorkChangeRepo = validation.WorkChangeRepo
type StepSnapshotRepo = validation.StepSnapshotRepo
type CorrectionRepo = validation.CorrectionRepo
type RouteRepo = validation.RouteRepo
type TypeStatusRepo = validation.TypeStatusRepo

type CandidateQuery = validation.CandidateQuery

// Repos bundles every repository over one database handle.
type Repos struct {
	Recognition    RecognitionRepo
	Baseline       BaselineRepo
	Priority       PriorityConfigRepo
	WorkLog        WorkLogRepo
	WorkItem       WorkItemRepo
	WorkAnnotation WorkAnnotationRepo
	WorkChange     WorkChangeRepo
	Snapshot       StepSnapshotRepo
	Correction     CorrectionRepo
	Route          RouteRepo
	TypeStatus     TypeStatusRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Recognition:    recognition.NewRecognitionRepo(db, log),
		Baseline:       recognition.NewBaselineRepo(db, log),
		Priority:       validation.NewPriorityConfigRepo(db, log),
		WorkLog:        validation.NewWorkLogRepo(db, log),
		WorkItem:       validation.NewWorkItemRepo(db, log),
		WorkAnnotation: validation.NewWorkAnnotationRepo(db, log),
		WorkChange:     validation.NewWorkChangeRepo(db, log),
		Snapshot:       validation.NewStepSnapshotRepo(db, log),
		Correction:     validation.NewCorrectionRepo(db, log),
		Route:          validation.NewRouteRepo(db, log),
		TypeStatus:     validation.NewTypeStatusRepo(db, log),
	}
}
