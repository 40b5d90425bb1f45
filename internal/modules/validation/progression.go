package validation

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/retry"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

type AdvanceResult struct {
	NewStepIndex int                   `json:"new_step_index"`
	CurrentStep  *types.ValidationStep `json:"current_step"`
	AllCompleted bool                  `json:"all_completed"`
	// Skipped lists the steps auto-skipped while moving forward.
	Skipped  []types.ValidationType `json:"skipped,omitempty"`
	Snapshot *types.StepSnapshot    `json:"snapshot,omitempty"`
	WorkLog  *types.WorkLog         `json:"work"`
}

type JumpResult struct {
	NewStepIndex int                   `json:"new_step_index"`
	CurrentStep  *types.ValidationStep `json:"current_step"`
	WorkLog      *types.WorkLog        `json:"work"`
}

// AllStepsCompleted reports whether every step is completed or skipped.
func AllStepsCompleted(steps []types.ValidationStep) bool {
	for _, s := range steps {
		if !s.Status.Resolved() {
			return false
		}
	}
	return true
}

// Advance completes the current step: it runs the type's guard, writes the
// step snapshot and moves to the next pending step, auto-skipping where the
// skip policy allows. The work log completes once no step is left.
func (e *Engine) Advance(ctx context.Context, caller Caller, workLogID uuid.UUID) (*AdvanceResult, error) {
	ctx, span := e.start(ctx, "Advance")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "advance", err)
	}

	var (
		res    *AdvanceResult
		events []realtime.WorkEvent
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		wl, err := e.lockActive(dbc, caller, workLogID, true)
		if err != nil {
			return err
		}
		cur := wl.CurrentStepIndex
		step := wl.CurrentStep()
		if step == nil || step.Status != types.StepInProgress {
			return apierr.InvalidTransition("no step is in progress on this work log")
		}

		view, err := e.loadView(dbc, wl)
		if err != nil {
			return err
		}
		if err := e.guards.Check(step.Type, view); err != nil {
			return err
		}
		snap, err := e.writeSnapshot(dbc, wl, *step, caller.ID, view)
		if err != nil {
			return err
		}

		steps := wl.Steps()
		steps[cur].Status = types.StepCompleted
		wl.ValidationSteps = steps
		e.metrics.Step(ctx, string(step.Type), string(types.StepCompleted))

		before := skippedSet(wl.ValidationSteps)
		done := e.activateFrom(dbc, wl, cur+1, view)
		res = &AdvanceResult{Snapshot: snap, Skipped: newlySkipped(before, wl.ValidationSteps)}

		events = append(events, e.event(realtime.EventStepAdvanced, wl, caller.ID))
		if done {
			if err := e.complete(dbc, wl, caller.ID); err != nil {
				return err
			}
			events = append(events, e.event(realtime.EventWorkCompleted, wl, caller.ID))
		} else if err := e.saveProgress(dbc, wl); err != nil {
			return err
		}

		res.NewStepIndex = wl.CurrentStepIndex
		res.AllCompleted = done
		res.WorkLog = wl
		if !done {
			res.CurrentStep = wl.CurrentStep()
		}
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "advance", err)
	}
	e.publish(ctx, events)
	return res, e.finish(span, "advance", nil)
}

// JumpTo moves back to an earlier completed or skipped step so the annotator
// can correct it. The step being left returns to pending.
func (e *Engine) JumpTo(ctx context.Context, caller Caller, workLogID uuid.UUID, target int) (*JumpResult, error) {
	ctx, span := e.start(ctx, "JumpTo")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "jump", err)
	}

	var (
		res *JumpResult
		ev  realtime.WorkEvent
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		wl, err := e.lockActive(dbc, caller, workLogID, true)
		if err != nil {
			return err
		}
		steps := wl.Steps()
		cur := wl.CurrentStepIndex
		if target < 0 || target >= len(steps) {
			return apierr.Validation("step index %d is out of range", target)
		}
		if target >= cur {
			return apierr.InvalidTransition("finish the current step before moving ahead; only earlier steps can be revisited")
		}
		if !steps[target].Status.Resolved() {
			return apierr.InvalidTransition("step %d has not been completed yet; finish the current step before jumping back", target)
		}

		if steps[cur].Status == types.StepInProgress {
			steps[cur].Status = types.StepPending
		}
		steps[target].Status = types.StepInProgress
		wl.ValidationSteps = steps
		wl.CurrentStepIndex = target
		if err := e.saveProgress(dbc, wl); err != nil {
			return err
		}
		res = &JumpResult{NewStepIndex: target, CurrentStep: wl.CurrentStep(), WorkLog: wl}
		ev = e.event(realtime.EventStepJumped, wl, caller.ID)
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "jump", err)
	}
	e.publish(ctx, []realtime.WorkEvent{ev})
	return res, e.finish(span, "jump", nil)
}

// GetWorkLog returns a work log visible to caller: its assignee or an admin.
func (e *Engine) GetWorkLog(ctx context.Context, caller Caller, workLogID uuid.UUID) (*types.WorkLog, error) {
	ctx, span := e.start(ctx, "GetWorkLog")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "get_work_log", err)
	}
	var wl *types.WorkLog
	err := retry.Read(ctx, func() error {
		var err error
		wl, err = e.visibleLog(dbctx.Context{Ctx: ctx}, caller, workLogID)
		return err
	})
	if err != nil {
		return nil, e.finish(span, "get_work_log", err)
	}
	return wl, e.finish(span, "get_work_log", nil)
}

func (e *Engine) ListSnapshots(ctx context.Context, caller Caller, workLogID uuid.UUID) ([]*types.StepSnapshot, error) {
	ctx, span := e.start(ctx, "ListSnapshots")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "list_snapshots", err)
	}
	var out []*types.StepSnapshot
	err := retry.Read(ctx, func() error {
		dbc := dbctx.Context{Ctx: ctx}
		if _, err := e.visibleLog(dbc, caller, workLogID); err != nil {
			return err
		}
		var err error
		out, err = e.repos.Snapshot.ListByWorkLog(dbc, workLogID)
		return err
	})
	if err != nil {
		return nil, e.finish(span, "list_snapshots", err)
	}
	return out, e.finish(span, "list_snapshots", nil)
}

func (e *Engine) visibleLog(dbc dbctx.Context, caller Caller, workLogID uuid.UUID) (*types.WorkLog, error) {
	wl, err := e.repos.WorkLog.GetByID(dbc, workLogID)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, apierr.NotFound("work log %s not found", workLogID)
	}
	if !canManage(caller, wl) {
		return nil, apierr.AccessDenied("work log %s is assigned to another annotator", workLogID)
	}
	return wl, nil
}

// activateFrom makes the first pending step at or after start the current
// step, skipping steps whose skip policy holds. It reports true when no
// step is left to work on. Only wl's in-memory step list is changed.
func (e *Engine) activateFrom(dbc dbctx.Context, wl *types.WorkLog, start int, view *WorkingSetView) bool {
	steps := wl.Steps()
	for i := start; i < len(steps); i++ {
		if steps[i].Status != types.StepPending {
			continue
		}
		if !steps[i].Reopened && e.skips.ShouldSkip(steps[i].Type, view) {
			steps[i].Status = types.StepSkipped
			e.metrics.Step(dbc.Ctx, string(steps[i].Type), string(types.StepSkipped))
			continue
		}
		steps[i].Status = types.StepInProgress
		wl.ValidationSteps = steps
		wl.CurrentStepIndex = i
		return false
	}
	wl.ValidationSteps = steps
	if AllStepsCompleted(steps) {
		return true
	}
	// A flag can send a step before start back to pending.
	if start > 0 {
		return e.activateFrom(dbc, wl, 0, view)
	}
	return false
}

func (e *Engine) saveProgress(dbc dbctx.Context, wl *types.WorkLog) error {
	now := e.clock()
	wl.HeartbeatAt = now
	return e.repos.WorkLog.UpdateFields(dbc, wl.ID, map[string]interface{}{
		"validation_steps":   wl.ValidationSteps,
		"current_step_index": wl.CurrentStepIndex,
		"heartbeat_at":       now,
	})
}

// complete closes a work log whose steps are all resolved: it records the
// completion, marks the recognition resolved for the log's types, closes
// open corrections aimed at them and discards the working set.
func (e *Engine) complete(dbc dbctx.Context, wl *types.WorkLog, actor uuid.UUID) error {
	now := e.clock()
	wl.Status = types.WorkLogCompleted
	wl.CompletedAt = &now
	wl.CompletedBy = &actor
	wl.HeartbeatAt = now
	if err := e.repos.WorkLog.UpdateFields(dbc, wl.ID, map[string]interface{}{
		"status":             wl.Status,
		"validation_steps":   wl.ValidationSteps,
		"current_step_index": wl.CurrentStepIndex,
		"heartbeat_at":       now,
		"completed_at":       now,
		"completed_by":       actor,
	}); err != nil {
		return err
	}

	logID := wl.ID
	statuses := make([]*types.RecognitionValidationStatus, 0, len(wl.ValidationSteps))
	stages := make([]string, 0, len(wl.ValidationSteps))
	for _, s := range wl.ValidationSteps {
		statuses = append(statuses, &types.RecognitionValidationStatus{
			RecognitionID:  wl.RecognitionID,
			ValidationType: s.Type,
			Status:         types.TypeStatusResolved,
			WorkLogID:      &logID,
			UpdatedAt:      now,
		})
		stages = append(stages, string(s.Type))
	}
	if err := e.repos.TypeStatus.Upsert(dbc, statuses); err != nil {
		return err
	}
	if _, err := e.repos.Correction.ResolveOpen(dbc, wl.RecognitionID, stages, now); err != nil {
		return err
	}
	if err := e.clearRoute(dbc, wl.RecognitionID, stages, now); err != nil {
		return err
	}
	if err := e.discardWorkingSet(dbc, wl.ID); err != nil {
		return err
	}
	e.metrics.Completed(dbc.Ctx)
	return nil
}

// clearRoute drops a validation-queue stage pointer once that stage has been
// worked. Remediation routes are left to ResolveCorrection.
func (e *Engine) clearRoute(dbc dbctx.Context, recognitionID uuid.UUID, stages []string, now time.Time) error {
	route, err := e.repos.Route.Get(dbc, recognitionID)
	if err != nil || route == nil {
		return err
	}
	if route.Queue != types.QueueValidation || !slices.Contains(stages, route.Stage) {
		return nil
	}
	return e.repos.Route.Upsert(dbc, &types.RecognitionRoute{
		RecognitionID: recognitionID,
		Queue:         types.QueueValidation,
		Stage:         "",
		UpdatedAt:     now,
	})
}

func (e *Engine) discardWorkingSet(dbc dbctx.Context, workLogID uuid.UUID) error {
	if _, err := e.repos.WorkAnnotation.DeleteByWorkLog(dbc, workLogID); err != nil {
		return err
	}
	if _, err := e.repos.WorkItem.DeleteByWorkLog(dbc, workLogID); err != nil {
		return err
	}
	_, err := e.repos.WorkChange.DeleteDraft(dbc, workLogID)
	return err
}

func skippedSet(steps []types.ValidationStep) map[int]bool {
	out := make(map[int]bool, len(steps))
	for i, s := range steps {
		if s.Status == types.StepSkipped {
			out[i] = true
		}
	}
	return out
}

func newlySkipped(before map[int]bool, steps []types.ValidationStep) []types.ValidationType {
	var out []types.ValidationType
	for i, s := range steps {
		if s.Status == types.StepSkipped && !before[i] {
			out = append(out, s.Type)
		}
	}
	return out
}
