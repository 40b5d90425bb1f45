package validation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/retry"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

type ItemInput struct {
	Type              types.ItemType `json:"type"`
	Quantity          int            `json:"quantity"`
	BottleOrientation *string        `json:"bottle_orientation,omitempty"`
	RecipeLineID      *uuid.UUID     `json:"recipe_line_id,omitempty"`
	Metadata          datatypes.JSON `json:"metadata,omitempty"`
}

// ItemPatch carries optional changes; nil fields are left alone and an empty
// BottleOrientation clears it.
type ItemPatch struct {
	Type              *types.ItemType `json:"type,omitempty"`
	Quantity          *int            `json:"quantity,omitempty"`
	BottleOrientation *string         `json:"bottle_orientation,omitempty"`
	RecipeLineID      *uuid.UUID      `json:"recipe_line_id,omitempty"`
	Metadata          datatypes.JSON  `json:"metadata,omitempty"`
}

type AnnotationInput struct {
	WorkItemID        *uuid.UUID     `json:"work_item_id,omitempty"`
	ImageID           uuid.UUID      `json:"image_id"`
	BBox              types.BBox     `json:"bbox"`
	IsOccluded        bool           `json:"is_occluded"`
	OcclusionMetadata datatypes.JSON `json:"occlusion_metadata,omitempty"`
}

type AnnotationPatch struct {
	WorkItemID        *uuid.UUID     `json:"work_item_id,omitempty"`
	BBox              *types.BBox    `json:"bbox,omitempty"`
	IsOccluded        *bool          `json:"is_occluded,omitempty"`
	OcclusionMetadata datatypes.JSON `json:"occlusion_metadata,omitempty"`
}

type WorkingSet struct {
	Items       []*types.WorkItem       `json:"items"`
	Annotations []*types.WorkAnnotation `json:"annotations"`
}

// WorkingSet returns the live items and annotations of a work log.
func (e *Engine) WorkingSet(ctx context.Context, caller Caller, workLogID uuid.UUID) (*WorkingSet, error) {
	ctx, span := e.start(ctx, "WorkingSet")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "working_set", err)
	}
	var out *WorkingSet
	err := retry.Read(ctx, func() error {
		dbc := dbctx.Context{Ctx: ctx}
		if _, err := e.visibleLog(dbc, caller, workLogID); err != nil {
			return err
		}
		items, err := e.repos.WorkItem.ListByWorkLog(dbc, workLogID, false)
		if err != nil {
			return err
		}
		anns, err := e.repos.WorkAnnotation.ListByWorkLog(dbc, workLogID, false)
		if err != nil {
			return err
		}
		out = &WorkingSet{Items: items, Annotations: anns}
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "working_set", err)
	}
	return out, e.finish(span, "working_set", nil)
}

func (e *Engine) CreateItem(ctx context.Context, caller Caller, workLogID uuid.UUID, in ItemInput) (*types.WorkItem, error) {
	var out *types.WorkItem
	err := e.mutate(ctx, "CreateItem", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		if !in.Type.Valid() {
			return apierr.Validation("unknown item type %q", in.Type)
		}
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return apierr.Validation("quantity must be positive")
		}
		now := e.clock()
		item := &types.WorkItem{
			WorkLogID:         wl.ID,
			RecognitionID:     wl.RecognitionID,
			Type:              in.Type,
			Quantity:          qty,
			BottleOrientation: emptyToNil(in.BottleOrientation),
			RecipeLineID:      in.RecipeLineID,
			Metadata:          in.Metadata,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := e.repos.WorkItem.Create(dbc, []*types.WorkItem{item}); err != nil {
			return err
		}
		out = item
		return e.recordChange(dbc, wl, caller, types.ChangeEntityItem, item.ID, types.ChangeOpCreate, item)
	})
	return out, err
}

func (e *Engine) UpdateItem(ctx context.Context, caller Caller, workLogID uuid.UUID, itemID uuid.UUID, patch ItemPatch) (*types.WorkItem, error) {
	var out *types.WorkItem
	err := e.mutate(ctx, "UpdateItem", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		item, err := e.liveItem(dbc, wl.ID, itemID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				return apierr.Validation("unknown item type %q", *patch.Type)
			}
			item.Type = *patch.Type
			updates["type"] = item.Type
		}
		if patch.Quantity != nil {
			if *patch.Quantity <= 0 {
				return apierr.Validation("quantity must be positive")
			}
			item.Quantity = *patch.Quantity
			updates["quantity"] = item.Quantity
		}
		if patch.BottleOrientation != nil {
			item.BottleOrientation = emptyToNil(patch.BottleOrientation)
			updates["bottle_orientation"] = item.BottleOrientation
		}
		if patch.RecipeLineID != nil {
			item.RecipeLineID = patch.RecipeLineID
			updates["recipe_line_id"] = *patch.RecipeLineID
		}
		if patch.Metadata != nil {
			item.Metadata = patch.Metadata
			updates["metadata"] = patch.Metadata
		}
		if len(updates) == 0 {
			return apierr.Validation("nothing to update")
		}
		item.UpdatedAt = e.clock()
		updates["updated_at"] = item.UpdatedAt
		if err := e.repos.WorkItem.UpdateFields(dbc, item.ID, updates); err != nil {
			return err
		}
		out = item
		return e.recordChange(dbc, wl, caller, types.ChangeEntityItem, item.ID, types.ChangeOpUpdate, patch)
	})
	return out, err
}

// DeleteItem soft-deletes an item together with its annotations.
func (e *Engine) DeleteItem(ctx context.Context, caller Caller, workLogID uuid.UUID, itemID uuid.UUID) error {
	return e.mutate(ctx, "DeleteItem", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		item, err := e.liveItem(dbc, wl.ID, itemID)
		if err != nil {
			return err
		}
		if err := e.repos.WorkItem.UpdateFields(dbc, item.ID, map[string]interface{}{
			"is_deleted": true,
			"updated_at": e.clock(),
		}); err != nil {
			return err
		}
		annIDs, err := e.repos.WorkAnnotation.SoftDeleteByItem(dbc, wl.ID, item.ID)
		if err != nil {
			return err
		}
		if err := e.recordChange(dbc, wl, caller, types.ChangeEntityItem, item.ID, types.ChangeOpDelete, nil); err != nil {
			return err
		}
		for _, id := range annIDs {
			if err := e.recordChange(dbc, wl, caller, types.ChangeEntityAnnotation, id, types.ChangeOpDelete, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) CreateAnnotation(ctx context.Context, caller Caller, workLogID uuid.UUID, in AnnotationInput) (*types.WorkAnnotation, error) {
	var out *types.WorkAnnotation
	err := e.mutate(ctx, "CreateAnnotation", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		if err := checkGeometry(in.BBox); err != nil {
			return err
		}
		if err := e.checkImage(dbc, wl, in.ImageID); err != nil {
			return err
		}
		if in.WorkItemID != nil {
			if _, err := e.liveItem(dbc, wl.ID, *in.WorkItemID); err != nil {
				return err
			}
		}
		now := e.clock()
		ann := &types.WorkAnnotation{
			WorkLogID:         wl.ID,
			WorkItemID:        in.WorkItemID,
			ImageID:           in.ImageID,
			BBox:              in.BBox,
			IsOccluded:        in.IsOccluded,
			OcclusionMetadata: in.OcclusionMetadata,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := e.repos.WorkAnnotation.Create(dbc, []*types.WorkAnnotation{ann}); err != nil {
			return err
		}
		out = ann
		return e.recordChange(dbc, wl, caller, types.ChangeEntityAnnotation, ann.ID, types.ChangeOpCreate, ann)
	})
	return out, err
}

func (e *Engine) UpdateAnnotation(ctx context.Context, caller Caller, workLogID uuid.UUID, annID uuid.UUID, patch AnnotationPatch) (*types.WorkAnnotation, error) {
	var out *types.WorkAnnotation
	err := e.mutate(ctx, "UpdateAnnotation", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		ann, err := e.liveAnnotation(dbc, wl.ID, annID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if patch.BBox != nil {
			if err := checkGeometry(*patch.BBox); err != nil {
				return err
			}
			ann.BBox = *patch.BBox
			updates["x1"] = ann.BBox.X1
			updates["y1"] = ann.BBox.Y1
			updates["x2"] = ann.BBox.X2
			updates["y2"] = ann.BBox.Y2
		}
		if patch.WorkItemID != nil {
			if _, err := e.liveItem(dbc, wl.ID, *patch.WorkItemID); err != nil {
				return err
			}
			ann.WorkItemID = patch.WorkItemID
			updates["work_item_id"] = *patch.WorkItemID
		}
		if patch.IsOccluded != nil {
			ann.IsOccluded = *patch.IsOccluded
			updates["is_occluded"] = ann.IsOccluded
		}
		if patch.OcclusionMetadata != nil {
			ann.OcclusionMetadata = patch.OcclusionMetadata
			updates["occlusion_metadata"] = patch.OcclusionMetadata
		}
		if len(updates) == 0 {
			return apierr.Validation("nothing to update")
		}
		ann.UpdatedAt = e.clock()
		updates["updated_at"] = ann.UpdatedAt
		if err := e.repos.WorkAnnotation.UpdateFields(dbc, ann.ID, updates); err != nil {
			return err
		}
		out = ann
		return e.recordChange(dbc, wl, caller, types.ChangeEntityAnnotation, ann.ID, types.ChangeOpUpdate, patch)
	})
	return out, err
}

func (e *Engine) DeleteAnnotation(ctx context.Context, caller Caller, workLogID uuid.UUID, annID uuid.UUID) error {
	return e.mutate(ctx, "DeleteAnnotation", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		ann, err := e.liveAnnotation(dbc, wl.ID, annID)
		if err != nil {
			return err
		}
		if err := e.repos.WorkAnnotation.UpdateFields(dbc, ann.ID, map[string]interface{}{
			"is_deleted": true,
			"updated_at": e.clock(),
		}); err != nil {
			return err
		}
		return e.recordChange(dbc, wl, caller, types.ChangeEntityAnnotation, ann.ID, types.ChangeOpDelete, nil)
	})
}

// ResetToInitial throws away every working-set edit and copies the baseline
// again. Step progress is left as it is.
func (e *Engine) ResetToInitial(ctx context.Context, caller Caller, workLogID uuid.UUID) (*WorkingSet, error) {
	var out *WorkingSet
	var ev realtime.WorkEvent
	err := e.mutate(ctx, "ResetToInitial", caller, workLogID, func(dbc dbctx.Context, wl *types.WorkLog) error {
		// Replaced rows stay behind as deleted so earlier draft changes still
		// point at something.
		if _, err := e.repos.WorkAnnotation.SoftDeleteByWorkLog(dbc, wl.ID); err != nil {
			return err
		}
		if _, err := e.repos.WorkItem.SoftDeleteByWorkLog(dbc, wl.ID); err != nil {
			return err
		}
		if err := e.copyBaseline(dbc, wl); err != nil {
			return err
		}
		if err := e.recordChange(dbc, wl, caller, types.ChangeEntityWorkingSet, wl.ID, types.ChangeOpReset, nil); err != nil {
			return err
		}
		items, err := e.repos.WorkItem.ListByWorkLog(dbc, wl.ID, false)
		if err != nil {
			return err
		}
		anns, err := e.repos.WorkAnnotation.ListByWorkLog(dbc, wl.ID, false)
		if err != nil {
			return err
		}
		out = &WorkingSet{Items: items, Annotations: anns}
		ev = e.event(realtime.EventWorkReset, wl, caller.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, []realtime.WorkEvent{ev})
	return out, nil
}

// mutate runs fn against the caller's locked, in-progress work log and
// refreshes its heartbeat. Only the assignee may edit the working set.
func (e *Engine) mutate(ctx context.Context, op string, caller Caller, workLogID uuid.UUID, fn func(dbc dbctx.Context, wl *types.WorkLog) error) error {
	ctx, span := e.start(ctx, op)
	if err := requireCaller(caller); err != nil {
		return e.finish(span, op, err)
	}
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		wl, err := e.lockActive(dbc, caller, workLogID, false)
		if err != nil {
			return err
		}
		if err := fn(dbc, wl); err != nil {
			return err
		}
		now := e.clock()
		wl.HeartbeatAt = now
		return e.repos.WorkLog.UpdateFields(dbc, wl.ID, map[string]interface{}{"heartbeat_at": now})
	})
	return e.finish(span, op, err)
}

func (e *Engine) recordChange(dbc dbctx.Context, wl *types.WorkLog, caller Caller, entity string, entityID uuid.UUID, op string, payload any) error {
	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	return e.repos.WorkChange.Append(dbc, &types.WorkChange{
		WorkLogID: wl.ID,
		Entity:    entity,
		EntityID:  entityID,
		Op:        op,
		Payload:   raw,
		ActorID:   caller.ID,
		CreatedAt: e.clock(),
	})
}

func (e *Engine) liveItem(dbc dbctx.Context, workLogID uuid.UUID, itemID uuid.UUID) (*types.WorkItem, error) {
	item, err := e.repos.WorkItem.GetByID(dbc, workLogID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.IsDeleted {
		return nil, apierr.NotFound("item %s not found", itemID)
	}
	return item, nil
}

func (e *Engine) liveAnnotation(dbc dbctx.Context, workLogID uuid.UUID, annID uuid.UUID) (*types.WorkAnnotation, error) {
	ann, err := e.repos.WorkAnnotation.GetByID(dbc, workLogID, annID)
	if err != nil {
		return nil, err
	}
	if ann == nil || ann.IsDeleted {
		return nil, apierr.NotFound("annotation %s not found", annID)
	}
	return ann, nil
}

func (e *Engine) checkImage(dbc dbctx.Context, wl *types.WorkLog, imageID uuid.UUID) error {
	images, err := e.repos.Baseline.ListImages(dbc, wl.RecognitionID)
	if err != nil {
		return err
	}
	for _, img := range images {
		if img.ID == imageID {
			return nil
		}
	}
	return apierr.Validation("image %s does not belong to this recognition", imageID)
}

func checkGeometry(b types.BBox) error {
	if err := b.Validate(); err != nil {
		return apierr.Validation("invalid geometry: %v", err)
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
