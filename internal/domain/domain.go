package domain

import (
	"github.com/yungbote/tray-validation-backend/internal/domain/recognition"
	"github.com/yungbote/tray-validation-backend/internal/domain/validation"
)

type Recognition = recognition.Recognition
type Image = recognition.Image
type RecipeLine = recognition.RecipeLine
type RecipeLineOption = recognition.RecipeLineOption
type InitialItem = recognition.InitialItem
type InitialAnnotation = recognition.InitialAnnotation
type BBox = recognition.BBox
type ItemType = recognition.ItemType

type ValidationType = validation.ValidationType
type ValidationStep = validation.ValidationStep
type StepStatus = validation.StepStatus
type WorkLogStatus = validation.WorkLogStatus
type ValidationMode = validation.ValidationMode
type PriorityConfig = validation.PriorityConfig
type WorkLog = validation.WorkLog
type WorkItem = validation.WorkItem
type WorkAnnotation = validation.WorkAnnotation
type WorkChange = validation.WorkChange
type StepSnapshot = validation.StepSnapshot
type SnapshotItem = validation.SnapshotItem
type SnapshotAnnotation = validation.SnapshotAnnotation
type SnapshotChange = validation.SnapshotChange
type FlagType = validation.FlagType
type CorrectionRecord = validation.CorrectionRecord
type RecognitionRoute = validation.RecognitionRoute
type RecognitionValidationStatus = validation.RecognitionValidationStatus

const (
	ItemFood   = recognition.ItemFood
	ItemPlate  = recognition.ItemPlate
	ItemBuzzer = recognition.ItemBuzzer
	ItemBottle = recognition.ItemBottle
	ItemOther  = recognition.ItemOther

	CameraMain       = recognition.CameraMain
	CameraQualifying = recognition.CameraQualifying

	TypeFood              = validation.TypeFood
	TypePlate             = validation.TypePlate
	TypeBuzzer            = validation.TypeBuzzer
	TypeOcclusion         = validation.TypeOcclusion
	TypeBottleOrientation = validation.TypeBottleOrientation
	TypeNonFood           = validation.TypeNonFood

	StepPending    = validation.StepPending
	StepInProgress = validation.StepInProgress
	StepCompleted  = validation.StepCompleted
	StepSkipped    = validation.StepSkipped

	WorkLogInProgress = validation.WorkLogInProgress
	WorkLogCompleted  = validation.WorkLogCompleted
	WorkLogAbandoned  = validation.WorkLogAbandoned

	ModeQuick = validation.ModeQuick
	ModeEdit  = validation.ModeEdit

	FlagBBoxError         = validation.FlagBBoxError
	FlagSourceDataError   = validation.FlagSourceDataError
	FlagOtherItemsPresent = validation.FlagOtherItemsPresent
	FlagPagerPresent      = validation.FlagPagerPresent

	QueueValidation  = validation.QueueValidation
	QueueRemediation = validation.QueueRemediation
	StageRemediation = validation.StageRemediation
	StageIngestion   = validation.StageIngestion

	CorrectionOpen     = validation.CorrectionOpen
	CorrectionResolved = validation.CorrectionResolved

	TypeStatusResolved = validation.TypeStatusResolved
	TypeStatusReopened = validation.TypeStatusReopened

	ChangeEntityItem       = validation.ChangeEntityItem
	ChangeEntityAnnotation = validation.ChangeEntityAnnotation
	ChangeEntityWorkingSet = validation.ChangeEntityWorkingSet
	ChangeOpCreate         = validation.ChangeOpCreate
	ChangeOpUpdate         = validation.ChangeOpUpdate
	ChangeOpDelete         = validation.ChangeOpDelete
	ChangeOpReset          = validation.ChangeOpReset
)

var AllTypes = validation.AllTypes
var AllFlagTypes = validation.AllFlagTypes
var ParseFlagType = validation.ParseFlagType
var ErrSnapshotImmutable = validation.ErrSnapshotImmutable

// Models lists every table owned by this service, in migration order.
func Models() []any {
	return []any{
		&Recognition{},
		&Image{},
		&RecipeLine{},
		&RecipeLineOption{},
		&InitialItem{},
		&InitialAnnotation{},

		&PriorityConfig{},
		&WorkLog{},
		&WorkItem{},
		&WorkAnnotation{},
		&WorkChange{},
		&StepSnapshot{},
		&CorrectionRecord{},
		&RecognitionRoute{},
		&RecognitionValidationStatus{},
	}
}
