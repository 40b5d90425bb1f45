package validation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/tray-validation-backend/internal/data/db"
	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/retry"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

// AcquireFilter narrows the recognitions Acquire may hand out.
type AcquireFilter struct {
	BatchID string `json:"batch_id,omitempty"`
	// AmbiguousLinesOnly keeps recognitions with a recipe line that has more
	// than one candidate dish.
	AmbiguousLinesOnly bool `json:"ambiguous_lines_only,omitempty"`
	// Types restricts the validation types assigned; empty means all active.
	Types []types.ValidationType `json:"types,omitempty"`
	// RequireResolved keeps recognitions already resolved for every listed
	// type.
	RequireResolved []types.ValidationType `json:"require_resolved,omitempty"`
}

func (f AcquireFilter) validate() error {
	for _, t := range f.Types {
		if !t.Valid() {
			return apierr.Validation("unknown validation type %q", t)
		}
	}
	for _, t := range f.RequireResolved {
		if !t.Valid() {
			return apierr.Validation("unknown validation type %q", t)
		}
	}
	return nil
}

type ClaimResult struct {
	WorkLog *types.WorkLog `json:"work"`
	// Resumed is set when the caller already held the returned claim.
	Resumed bool `json:"resumed"`
}

// Acquire hands the caller a claim on the next eligible recognition. A caller
// that already holds a live claim gets it back. A nil result with a nil error
// means no work is available, including when a concurrent caller won the race
// for the chosen recognition; callers retry later.
func (e *Engine) Acquire(ctx context.Context, caller Caller, filter AcquireFilter) (*ClaimResult, error) {
	ctx, span := e.start(ctx, "Acquire")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "acquire", err)
	}
	if err := filter.validate(); err != nil {
		return nil, e.finish(span, "acquire", err)
	}

	var (
		res    *ClaimResult
		events []realtime.WorkEvent
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		var err error
		res, events, err = e.acquireTx(dbc, caller, filter, nil)
		return err
	})
	if errors.Is(err, ErrClaimConflict) {
		e.metrics.Claim(ctx, observability.ClaimConflict)
		e.log.Info("claim lost to a concurrent caller", "caller_id", caller.ID)
		return nil, e.finish(span, "acquire", nil)
	}
	if err != nil {
		return nil, e.finish(span, "acquire", err)
	}
	e.publish(ctx, events)
	switch {
	case res == nil:
		e.metrics.Claim(ctx, observability.ClaimNone)
	case res.Resumed:
		e.metrics.Claim(ctx, observability.ClaimResumed)
	default:
		e.metrics.Claim(ctx, observability.ClaimClaimed)
	}
	return res, e.finish(span, "acquire", nil)
}

// CurrentWork returns the caller's live claim, or nil.
func (e *Engine) CurrentWork(ctx context.Context, caller Caller) (*types.WorkLog, error) {
	ctx, span := e.start(ctx, "CurrentWork")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "current_work", err)
	}
	var wl *types.WorkLog
	err := retry.Read(ctx, func() error {
		var err error
		wl, err = e.repos.WorkLog.GetActiveByAssignee(dbctx.Context{Ctx: ctx}, caller.ID)
		return err
	})
	return wl, e.finish(span, "current_work", err)
}

// acquireTx runs the claim inside dbc's transaction. exclude lists
// recognitions that must not be handed out by this call.
func (e *Engine) acquireTx(dbc dbctx.Context, caller Caller, filter AcquireFilter, exclude []uuid.UUID) (*ClaimResult, []realtime.WorkEvent, error) {
	existing, err := e.repos.WorkLog.GetActiveByAssignee(dbc, caller.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		now := e.clock()
		if err := e.repos.WorkLog.UpdateFields(dbc, existing.ID, map[string]interface{}{"heartbeat_at": now}); err != nil {
			return nil, nil, err
		}
		existing.HeartbeatAt = now
		return &ClaimResult{WorkLog: existing, Resumed: true}, nil, nil
	}

	order, err := e.sessionOrder(dbc, filter)
	if err != nil {
		return nil, nil, err
	}
	if len(order) == 0 {
		return nil, nil, nil
	}

	var events []realtime.WorkEvent
	exclude = append([]uuid.UUID(nil), exclude...)
	for attempt := 0; attempt < e.policy.MaxClaimAttempts; attempt++ {
		rec, err := e.selectCandidate(dbc, caller, filter, order, exclude)
		if err != nil {
			return nil, nil, err
		}
		if rec == nil {
			return nil, events, nil
		}
		wl, evs, err := e.claim(dbc, caller, rec, order)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evs...)
		if wl.Status == types.WorkLogInProgress {
			return &ClaimResult{WorkLog: wl}, events, nil
		}
		// every step auto-skipped; the log completed on the spot
		exclude = append(exclude, rec.ID)
	}
	return nil, events, nil
}

// sessionOrder is the active priority order, restricted to filter.Types.
func (e *Engine) sessionOrder(dbc dbctx.Context, filter AcquireFilter) ([]types.ValidationType, error) {
	rows, err := e.repos.Priority.ListActive(dbc, e.clock())
	if err != nil {
		return nil, err
	}
	allowed := map[types.ValidationType]bool{}
	for _, t := range filter.Types {
		allowed[t] = true
	}
	seen := map[types.ValidationType]bool{}
	order := make([]types.ValidationType, 0, len(rows))
	for _, row := range rows {
		if seen[row.ValidationType] || !row.ValidationType.Valid() {
			continue
		}
		if len(allowed) > 0 && !allowed[row.ValidationType] {
			continue
		}
		seen[row.ValidationType] = true
		order = append(order, row.ValidationType)
	}
	return order, nil
}

// selectCandidate prefers the recognition the caller last completed, then
// recognitions a flag routed back to one of the session's stages, then scans
// types in priority order taking the first eligible recognition.
func (e *Engine) selectCandidate(dbc dbctx.Context, caller Caller, filter AcquireFilter, order []types.ValidationType, exclude []uuid.UUID) (*types.Recognition, error) {
	base := repos.CandidateQuery{
		StaleBefore:        e.clock().Add(-e.policy.StaleAfter),
		BatchID:            filter.BatchID,
		AmbiguousLinesOnly: filter.AmbiguousLinesOnly,
		RequireResolved:    filter.RequireResolved,
		ExcludeIDs:         exclude,
	}

	last, err := e.repos.WorkLog.LastCompletedRecognition(dbc, caller.ID)
	if err != nil {
		return nil, err
	}
	if last != uuid.Nil && !containsID(exclude, last) {
		for _, t := range order {
			q := base
			q.Type = t
			q.OnlyID = last
			rec, err := e.repos.WorkLog.FindCandidate(dbc, q)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
	}

	for _, routed := range []bool{true, false} {
		for _, t := range order {
			q := base
			q.Type = t
			if routed {
				q.RoutedStage = string(t)
			}
			rec, err := e.repos.WorkLog.FindCandidate(dbc, q)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
	}
	return nil, nil
}

// claim creates the work log for rec, copies the baseline and activates the
// first step that does not auto-skip.
func (e *Engine) claim(dbc dbctx.Context, caller Caller, rec *types.Recognition, order []types.ValidationType) (*types.WorkLog, []realtime.WorkEvent, error) {
	now := e.clock()

	prior, err := e.repos.WorkLog.GetActiveByRecognition(dbc, rec.ID)
	if err != nil {
		return nil, nil, err
	}
	if prior != nil {
		if !prior.IsStale(now, e.policy.StaleAfter) {
			return nil, nil, ErrClaimConflict
		}
		if err := e.release(dbc, prior, "stale claim reclaimed"); err != nil {
			return nil, nil, err
		}
		e.metrics.StaleReclaim(dbc.Ctx, "claim", 1)
		e.log.Info("reclaimed stale work log", "work_log_id", prior.ID, "recognition_id", rec.ID)
	}

	resolved, err := e.repos.TypeStatus.ResolvedTypes(dbc, rec.ID)
	if err != nil {
		return nil, nil, err
	}
	steps := make([]types.ValidationStep, 0, len(order))
	for _, t := range order {
		if resolved[t] {
			continue
		}
		steps = append(steps, types.ValidationStep{Type: t, Status: types.StepPending, Order: len(steps)})
	}
	if len(steps) == 0 {
		return nil, nil, ErrClaimConflict
	}

	wl := &types.WorkLog{
		RecognitionID:    rec.ID,
		AssignedTo:       caller.ID,
		Status:           types.WorkLogInProgress,
		ValidationSteps:  steps,
		CurrentStepIndex: 0,
		StartedAt:        now,
		HeartbeatAt:      now,
	}
	if err := e.repos.WorkLog.Create(dbc, wl); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, nil, ErrClaimConflict
		}
		return nil, nil, err
	}
	if err := e.copyBaseline(dbc, wl); err != nil {
		return nil, nil, err
	}

	view, err := e.loadView(dbc, wl)
	if err != nil {
		return nil, nil, err
	}
	wl.ValidationMode = ModeOf(view)
	if err := e.repos.WorkLog.UpdateFields(dbc, wl.ID, map[string]interface{}{"validation_mode": wl.ValidationMode}); err != nil {
		return nil, nil, err
	}
	done := e.activateFrom(dbc, wl, 0, view)
	events := []realtime.WorkEvent{e.event(realtime.EventWorkClaimed, wl, caller.ID)}
	if done {
		if err := e.complete(dbc, wl, caller.ID); err != nil {
			return nil, nil, err
		}
		events = append(events, e.event(realtime.EventWorkCompleted, wl, caller.ID))
		return wl, events, nil
	}
	if err := e.saveProgress(dbc, wl); err != nil {
		return nil, nil, err
	}
	return wl, events, nil
}

// copyBaseline mirrors the recognition's initial items and annotations into
// the work log's working set.
func (e *Engine) copyBaseline(dbc dbctx.Context, wl *types.WorkLog) error {
	items, err := e.repos.Baseline.ListItems(dbc, wl.RecognitionID)
	if err != nil {
		return err
	}
	anns, err := e.repos.Baseline.ListAnnotations(dbc, wl.RecognitionID)
	if err != nil {
		return err
	}
	now := e.clock()

	itemIDs := make(map[uuid.UUID]uuid.UUID, len(items))
	workItems := make([]*types.WorkItem, 0, len(items))
	for _, it := range items {
		initialID := it.ID
		wi := &types.WorkItem{
			ID:                uuid.New(),
			WorkLogID:         wl.ID,
			RecognitionID:     wl.RecognitionID,
			InitialItemID:     &initialID,
			Type:              it.Type,
			Quantity:          it.Quantity,
			BottleOrientation: cloneString(it.BottleOrientation),
			RecipeLineID:      cloneUUID(it.RecipeLineID),
			Metadata:          it.Metadata,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		itemIDs[it.ID] = wi.ID
		workItems = append(workItems, wi)
	}
	if err := e.repos.WorkItem.Create(dbc, workItems); err != nil {
		return err
	}

	workAnns := make([]*types.WorkAnnotation, 0, len(anns))
	for _, a := range anns {
		initialID := a.ID
		wa := &types.WorkAnnotation{
			WorkLogID:           wl.ID,
			InitialAnnotationID: &initialID,
			ImageID:             a.ImageID,
			BBox:                a.BBox,
			IsOccluded:          a.IsOccluded,
			OcclusionMetadata:   a.OcclusionMetadata,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if itemID, ok := itemIDs[a.InitialItemID]; ok {
			wa.WorkItemID = &itemID
		}
		workAnns = append(workAnns, wa)
	}
	return e.repos.WorkAnnotation.Create(dbc, workAnns)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
