package validation

import (
	"github.com/google/uuid"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
)

// WorkingSetView is a read-only picture of a work log's live working set plus
// the recognition data guards and skip policies need.
type WorkingSetView struct {
	Items       []*types.WorkItem
	Annotations []*types.WorkAnnotation
	// Cameras maps image id to camera number.
	Cameras map[uuid.UUID]int
	Lines   []*types.RecipeLine

	itemsByID map[uuid.UUID]*types.WorkItem
}

func NewWorkingSetView(items []*types.WorkItem, anns []*types.WorkAnnotation, images []*types.Image, lines []*types.RecipeLine) *WorkingSetView {
	v := &WorkingSetView{
		Cameras:   make(map[uuid.UUID]int, len(images)),
		Lines:     lines,
		itemsByID: make(map[uuid.UUID]*types.WorkItem, len(items)),
	}
	for _, it := range items {
		if it == nil || it.IsDeleted {
			continue
		}
		v.Items = append(v.Items, it)
		v.itemsByID[it.ID] = it
	}
	for _, a := range anns {
		if a == nil || a.IsDeleted {
			continue
		}
		v.Annotations = append(v.Annotations, a)
	}
	for _, img := range images {
		v.Cameras[img.ID] = img.CameraNumber
	}
	return v
}

func (v *WorkingSetView) ItemsOfType(t types.ItemType) []*types.WorkItem {
	var out []*types.WorkItem
	for _, it := range v.Items {
		if it.Type == t {
			out = append(out, it)
		}
	}
	return out
}

// AnnotationCount counts live annotations attached to a live item.
func (v *WorkingSetView) AnnotationCount(itemID uuid.UUID) int {
	n := 0
	for _, a := range v.Annotations {
		if a.WorkItemID != nil && *a.WorkItemID == itemID {
			n++
		}
	}
	return n
}

// CameraCount counts live annotations of items of type t on camera.
func (v *WorkingSetView) CameraCount(t types.ItemType, camera int) int {
	n := 0
	for _, a := range v.Annotations {
		if a.WorkItemID == nil || v.Cameras[a.ImageID] != camera {
			continue
		}
		it, ok := v.itemsByID[*a.WorkItemID]
		if ok && it.Type == t {
			n++
		}
	}
	return n
}

func (e *Engine) loadView(dbc dbctx.Context, wl *types.WorkLog) (*WorkingSetView, error) {
	items, err := e.repos.WorkItem.ListByWorkLog(dbc, wl.ID, false)
	if err != nil {
		return nil, err
	}
	anns, err := e.repos.WorkAnnotation.ListByWorkLog(dbc, wl.ID, false)
	if err != nil {
		return nil, err
	}
	images, err := e.repos.Baseline.ListImages(dbc, wl.RecognitionID)
	if err != nil {
		return nil, err
	}
	lines, err := e.repos.Baseline.ListRecipeLines(dbc, wl.RecognitionID)
	if err != nil {
		return nil, err
	}
	return NewWorkingSetView(items, anns, images, lines), nil
}
