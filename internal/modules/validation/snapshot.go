package validation

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
)

// writeSnapshot captures the live working set and the draft change log for
// step, then stamps the draft changes with the step order.
func (e *Engine) writeSnapshot(dbc dbctx.Context, wl *types.WorkLog, step types.ValidationStep, actor uuid.UUID, view *WorkingSetView) (*types.StepSnapshot, error) {
	items := make([]types.SnapshotItem, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, types.SnapshotItem{
			ID:                it.ID,
			InitialItemID:     it.InitialItemID,
			Type:              string(it.Type),
			Quantity:          it.Quantity,
			BottleOrientation: it.BottleOrientation,
			RecipeLineID:      it.RecipeLineID,
			Metadata:          it.Metadata,
		})
	}

	byImage := map[string][]types.SnapshotAnnotation{}
	for _, a := range view.Annotations {
		key := a.ImageID.String()
		byImage[key] = append(byImage[key], types.SnapshotAnnotation{
			ID:                  a.ID,
			WorkItemID:          a.WorkItemID,
			InitialAnnotationID: a.InitialAnnotationID,
			X1:                  a.BBox.X1,
			Y1:                  a.BBox.Y1,
			X2:                  a.BBox.X2,
			Y2:                  a.BBox.Y2,
			IsOccluded:          a.IsOccluded,
			OcclusionMetadata:   a.OcclusionMetadata,
		})
	}
	for _, anns := range byImage {
		sort.Slice(anns, func(i, j int) bool { return anns[i].ID.String() < anns[j].ID.String() })
	}

	drafts, err := e.repos.WorkChange.ListDraft(dbc, wl.ID)
	if err != nil {
		return nil, err
	}
	changes := make([]types.SnapshotChange, 0, len(drafts))
	for _, c := range drafts {
		changes = append(changes, types.SnapshotChange{
			Entity:    c.Entity,
			EntityID:  c.EntityID,
			Op:        c.Op,
			Payload:   c.Payload,
			ActorID:   c.ActorID,
			CreatedAt: c.CreatedAt,
		})
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	annsJSON, err := json.Marshal(byImage)
	if err != nil {
		return nil, err
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}

	rev, err := e.repos.Snapshot.NextRevision(dbc, wl.ID, step.Order)
	if err != nil {
		return nil, err
	}
	snap := &types.StepSnapshot{
		WorkLogID:          wl.ID,
		RecognitionID:      wl.RecognitionID,
		StepOrder:          step.Order,
		ValidationType:     step.Type,
		Revision:           rev,
		Items:              datatypes.JSON(itemsJSON),
		AnnotationsByImage: datatypes.JSON(annsJSON),
		ChangeLog:          datatypes.JSON(changesJSON),
		CreatedBy:          actor,
		CreatedAt:          e.clock(),
	}
	if err := e.repos.Snapshot.Create(dbc, snap); err != nil {
		return nil, err
	}
	if _, err := e.repos.WorkChange.StampDraft(dbc, wl.ID, step.Order); err != nil {
		return nil, err
	}
	return snap, nil
}

// DecodeSnapshot unpacks a snapshot's JSON columns.
func DecodeSnapshot(s *types.StepSnapshot) ([]types.SnapshotItem, map[string][]types.SnapshotAnnotation, []types.SnapshotChange, error) {
	var items []types.SnapshotItem
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, nil, nil, err
	}
	byImage := map[string][]types.SnapshotAnnotation{}
	if err := json.Unmarshal(s.AnnotationsByImage, &byImage); err != nil {
		return nil, nil, nil, err
	}
	var changes []types.SnapshotChange
	if err := json.Unmarshal(s.ChangeLog, &changes); err != nil {
		return nil, nil, nil, err
	}
	return items, byImage, changes, nil
}
