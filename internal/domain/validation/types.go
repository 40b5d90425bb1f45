package validation

import "fmt"

type ValidationType string

const (
	TypeFood              ValidationType = "FOOD_VALIDATION"
	TypePlate             ValidationType = "PLATE_VALIDATION"
	TypeBuzzer            ValidationType = "BUZZER_VALIDATION"
	TypeOcclusion         ValidationType = "OCCLUSION_VALIDATION"
	TypeBottleOrientation ValidationType = "BOTTLE_ORIENTATION_VALIDATION"
	TypeNonFood           ValidationType = "NONFOOD_VALIDATION"
)

// AllTypes lists every validation type in default session order.
var AllTypes = []ValidationType{
	TypeFood,
	TypePlate,
	TypeBuzzer,
	TypeOcclusion,
	TypeBottleOrientation,
	TypeNonFood,
}

func (t ValidationType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ParseValidationType(s string) (ValidationType, error) {
	t := ValidationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown validation type %q", s)
	}
	return t, nil
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
)

// Resolved reports whether the step needs no further annotator action.
func (s StepStatus) Resolved() bool {
	return s == StepCompleted || s == StepSkipped
}

type WorkLogStatus string

const (
	WorkLogInProgress WorkLogStatus = "in_progress"
	WorkLogCompleted  WorkLogStatus = "completed"
	WorkLogAbandoned  WorkLogStatus = "abandoned"
)

// ValidationMode tells the client how much editing a claim is expected to
// need: quick claims only confirm the baseline.
type ValidationMode string

const (
	ModeQuick ValidationMode = "quick"
	ModeEdit  ValidationMode = "edit"
)

// ValidationStep is one entry of a work log's ordered step list. The JSON
// shape {type,status,order} is the persisted progress format.
type ValidationStep struct {
	Type   ValidationType `json:"type"`
	Status StepStatus     `json:"status"`
	Order  int            `json:"order"`
	// Reopened marks a step a flag sent back to pending mid-session; it is
	// never auto-skipped again.
	Reopened bool `json:"reopened,omitempty"`
}
