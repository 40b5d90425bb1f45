package validation

import (
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
)

// Guard decides whether the current step of its validation type may be
// completed. A non-nil error blocks advance and is shown to the annotator.
type Guard func(v *WorkingSetView) error

type GuardTable map[types.ValidationType]Guard

func DefaultGuards() GuardTable {
	return GuardTable{
		types.TypeFood:              everyItemAnnotated(types.ItemFood, "dish"),
		types.TypeBuzzer:            everyItemAnnotated(types.ItemBuzzer, "pager"),
		types.TypeNonFood:           everyItemAnnotated(types.ItemOther, "non-food item"),
		types.TypeBottleOrientation: everyBottleOriented,
		types.TypePlate:             pass,
		types.TypeOcclusion:         pass,
	}
}

// Check runs the guard for t. Types without a guard always pass.
func (g GuardTable) Check(t types.ValidationType, v *WorkingSetView) error {
	guard, ok := g[t]
	if !ok || guard == nil {
		return nil
	}
	return guard(v)
}

func pass(*WorkingSetView) error { return nil }

func everyItemAnnotated(kind types.ItemType, label string) Guard {
	return func(v *WorkingSetView) error {
		missing := 0
		for _, it := range v.ItemsOfType(kind) {
			if v.AnnotationCount(it.ID) == 0 {
				missing++
			}
		}
		if missing > 0 {
			return apierr.Validation("%d %s(s) still need a bounding box", missing, label)
		}
		return nil
	}
}

func everyBottleOriented(v *WorkingSetView) error {
	missing := 0
	for _, it := range v.ItemsOfType(types.ItemBottle) {
		if it.BottleOrientation == nil || *it.BottleOrientation == "" {
			missing++
		}
	}
	if missing > 0 {
		return apierr.Validation("%d bottle(s) still need an orientation", missing)
	}
	return nil
}
