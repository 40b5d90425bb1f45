package validation

import (
	types "github.com/yungbote/tray-validation-backend/internal/domain"
)

// SkipPolicy reports whether a step can be skipped without annotator action.
// Policies are pure functions of the working set and recipe lines.
type SkipPolicy func(v *WorkingSetView) bool

// SkipTable is the explicit set of automatic skip rules. Types without an
// entry are never skipped.
type SkipTable map[types.ValidationType]SkipPolicy

func DefaultSkipPolicies() SkipTable {
	return SkipTable{
		types.TypeFood: func(v *WorkingSetView) bool {
			return linesUnambiguous(v) && camerasAgree(v, types.ItemFood)
		},
		types.TypePlate: func(v *WorkingSetView) bool {
			return camerasAgree(v, types.ItemPlate)
		},
		types.TypeBuzzer: func(v *WorkingSetView) bool {
			return camerasAgree(v, types.ItemBuzzer)
		},
		types.TypeBottleOrientation: func(v *WorkingSetView) bool {
			return len(v.ItemsOfType(types.ItemBottle)) == 0
		},
	}
}

func (s SkipTable) ShouldSkip(t types.ValidationType, v *WorkingSetView) bool {
	policy, ok := s[t]
	if !ok || policy == nil {
		return false
	}
	return policy(v)
}

// ModeOf is quick when the working set needs no dish decision: every recipe
// line has one candidate and both cameras show the same dishes.
func ModeOf(v *WorkingSetView) types.ValidationMode {
	if linesUnambiguous(v) && camerasAgree(v, types.ItemFood) {
		return types.ModeQuick
	}
	return types.ModeEdit
}

// linesUnambiguous holds when every recipe line has exactly one candidate.
func linesUnambiguous(v *WorkingSetView) bool {
	for _, line := range v.Lines {
		if len(line.Options) != 1 {
			return false
		}
	}
	return true
}

func camerasAgree(v *WorkingSetView, kind types.ItemType) bool {
	return v.CameraCount(kind, types.CameraMain) == v.CameraCount(kind, types.CameraQualifying)
}
