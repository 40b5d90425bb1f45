package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
)

func TestCreateAnnotationRejectsBadGeometry(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	fx := h.seed(t, workTray("tray-001"))
	other := h.seed(t, workTray("tray-002"))
	caller := annotator()
	wl := h.acquire(t, caller)

	cases := []types.BBox{
		{X1: 10, Y1: 10, X2: 10, Y2: 40},
		{X1: 10, Y1: 10, X2: 50, Y2: 5},
		{X1: 60, Y1: 10, X2: 50, Y2: 40},
	}
	for _, box := range cases {
		_, err := h.engine.CreateAnnotation(h.ctx, caller, wl.ID, AnnotationInput{ImageID: fx.Main.ID, BBox: box})
		require.Error(t, err)
		assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
		assert.True(t, strings.HasPrefix(err.Error(), "invalid geometry"), err.Error())
	}

	_, err := h.engine.CreateAnnotation(h.ctx, caller, wl.ID, AnnotationInput{
		ImageID: other.Main.ID,
		BBox:    types.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
	})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	missing := uuid.New()
	_, err = h.engine.CreateAnnotation(h.ctx, caller, wl.ID, AnnotationInput{
		WorkItemID: &missing,
		ImageID:    fx.Main.ID,
		BBox:       types.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
	})
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))

	ws, err := h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	assert.Len(t, ws.Annotations, len(fx.Annotations))
}

func TestUpdateAnnotation(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	h.seed(t, workTray("tray-001"))
	caller := annotator()
	wl := h.acquire(t, caller)
	ws, err := h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	ann := ws.Annotations[0]

	box := types.BBox{X1: 5, Y1: 5, X2: 25, Y2: 30}
	occluded := true
	got, err := h.engine.UpdateAnnotation(h.ctx, caller, wl.ID, ann.ID, AnnotationPatch{BBox: &box, IsOccluded: &occluded})
	require.NoError(t, err)
	assert.Equal(t, box, got.BBox)
	assert.True(t, got.IsOccluded)

	bad := types.BBox{X1: 5, Y1: 5, X2: 1, Y2: 30}
	_, err = h.engine.UpdateAnnotation(h.ctx, caller, wl.ID, ann.ID, AnnotationPatch{BBox: &bad})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	_, err = h.engine.UpdateAnnotation(h.ctx, caller, wl.ID, ann.ID, AnnotationPatch{})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	stored, err := h.repos.WorkAnnotation.GetByID(h.dbc(), wl.ID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, box, stored.BBox)

	require.NoError(t, h.engine.DeleteAnnotation(h.ctx, caller, wl.ID, ann.ID))
	err = h.engine.DeleteAnnotation(h.ctx, caller, wl.ID, ann.ID)
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestDeleteItemRemovesItsAnnotations(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	fx := h.seed(t, workTray("tray-001"))
	caller := annotator()
	wl := h.acquire(t, caller)
	ws, err := h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)

	var food *types.WorkItem
	for _, it := range ws.Items {
		if it.Type == types.ItemFood {
			food = it
		}
	}
	require.NotNil(t, food)
	require.NoError(t, h.engine.DeleteItem(h.ctx, caller, wl.ID, food.ID))

	ws, err = h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	assert.Len(t, ws.Items, len(fx.Items)-1)
	for _, a := range ws.Annotations {
		require.NotNil(t, a.WorkItemID)
		assert.NotEqual(t, food.ID, *a.WorkItemID)
	}

	// deleted rows stay for the change history
	all, err := h.repos.WorkItem.ListByWorkLog(h.dbc(), wl.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, len(fx.Items))
}

func TestResetToInitialRestoresBaseline(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	fx := h.seed(t, workTray("tray-001"))
	caller := annotator()
	wl := h.acquire(t, caller)

	_, err := h.engine.CreateItem(h.ctx, caller, wl.ID, ItemInput{Type: types.ItemOther, Quantity: 2})
	require.NoError(t, err)
	ws, err := h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	require.NoError(t, h.engine.DeleteItem(h.ctx, caller, wl.ID, ws.Items[0].ID))

	oldItems, err := h.repos.WorkItem.ListByWorkLog(h.dbc(), wl.ID, true)
	require.NoError(t, err)
	oldAnns, err := h.repos.WorkAnnotation.ListByWorkLog(h.dbc(), wl.ID, true)
	require.NoError(t, err)

	reset, err := h.engine.ResetToInitial(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	assert.Len(t, reset.Items, len(fx.Items))
	assert.Len(t, reset.Annotations, len(fx.Annotations))

	// replaced rows are kept, marked deleted
	allItems, err := h.repos.WorkItem.ListByWorkLog(h.dbc(), wl.ID, true)
	require.NoError(t, err)
	assert.Len(t, allItems, len(oldItems)+len(fx.Items))
	byID := map[uuid.UUID]*types.WorkItem{}
	for _, it := range allItems {
		byID[it.ID] = it
	}
	for _, old := range oldItems {
		require.Contains(t, byID, old.ID)
		assert.True(t, byID[old.ID].IsDeleted)
	}
	allAnns, err := h.repos.WorkAnnotation.ListByWorkLog(h.dbc(), wl.ID, true)
	require.NoError(t, err)
	assert.Len(t, allAnns, len(oldAnns)+len(fx.Annotations))
	deleted := 0
	for _, a := range allAnns {
		if a.IsDeleted {
			deleted++
		}
	}
	assert.Equal(t, len(oldAnns), deleted)

	// step progress is untouched
	assert.Equal(t, 0, h.workLog(t, wl.ID).CurrentStepIndex)
}

func TestCreateItemValidation(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	h.seed(t, workTray("tray-001"))
	caller := annotator()
	wl := h.acquire(t, caller)

	_, err := h.engine.CreateItem(h.ctx, caller, wl.ID, ItemInput{Type: "SPOON"})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
	_, err = h.engine.CreateItem(h.ctx, caller, wl.ID, ItemInput{Type: types.ItemOther, Quantity: -1})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	item, err := h.engine.CreateItem(h.ctx, caller, wl.ID, ItemInput{Type: types.ItemBottle, BottleOrientation: testutil.PtrString("")})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Nil(t, item.BottleOrientation)

	_, err = h.engine.CreateItem(h.ctx, caller, uuid.New(), ItemInput{Type: types.ItemOther})
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestBBoxGeometryProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("boxes pass only with positive width and height", prop.ForAll(
		func(x1, y1, w, hgt float64) bool {
			err := checkGeometry(types.BBox{X1: x1, Y1: y1, X2: x1 + w, Y2: y1 + hgt})
			valid := x1+w > x1 && y1+hgt > y1
			if valid {
				return err == nil
			}
			return apierr.CodeOf(err) == apierr.CodeValidation
		},
		gen.Float64Range(0, 4000),
		gen.Float64Range(0, 4000),
		gen.Float64Range(-200, 200),
		gen.Float64Range(-200, 200),
	))

	properties.Property("zero-area boxes are rejected", prop.ForAll(
		func(x, y float64) bool {
			return checkGeometry(types.BBox{X1: x, Y1: y, X2: x, Y2: y + 1}) != nil &&
				checkGeometry(types.BBox{X1: x, Y1: y, X2: x + 1, Y2: y}) != nil
		},
		gen.Float64Range(0, 4000),
		gen.Float64Range(0, 4000),
	))

	properties.TestingRun(t)
}
