package validation

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

// FlagRoute is where a flag sends a recognition.
type FlagRoute struct {
	Queue       string
	TargetStage string
	// Reopen is the validation type whose resolution the flag clears.
	Reopen types.ValidationType
}

// FlagRoutes is the static flag type to target stage mapping.
var FlagRoutes = map[types.FlagType]FlagRoute{
	types.FlagBBoxError: {
		Queue:       types.QueueValidation,
		TargetStage: string(types.TypeFood),
		Reopen:      types.TypeFood,
	},
	types.FlagSourceDataError: {
		Queue:       types.QueueRemediation,
		TargetStage: types.StageRemediation,
	},
	types.FlagOtherItemsPresent: {
		Queue:       types.QueueValidation,
		TargetStage: string(types.TypeNonFood),
		Reopen:      types.TypeNonFood,
	},
	types.FlagPagerPresent: {
		Queue:       types.QueueValidation,
		TargetStage: string(types.TypeBuzzer),
		Reopen:      types.TypeBuzzer,
	},
}

// Flag records a correction against a recognition and redirects it per
// FlagRoutes. The recognition row is locked so the redirect cannot interleave
// with a claim on it.
func (e *Engine) Flag(ctx context.Context, caller Caller, recognitionID uuid.UUID, flagType string, reason string) (*types.CorrectionRecord, error) {
	ctx, span := e.start(ctx, "Flag")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "flag", err)
	}
	ft, err := types.ParseFlagType(flagType)
	if err != nil {
		return nil, e.finish(span, "flag", apierr.Validation("unknown flag type %q", flagType))
	}
	route := FlagRoutes[ft]

	var (
		rec *types.CorrectionRecord
		ev  realtime.WorkEvent
	)
	err = e.inTx(ctx, func(dbc dbctx.Context) error {
		recognition, err := e.repos.Recognition.LockByID(dbc, recognitionID)
		if err != nil {
			return err
		}
		if recognition == nil {
			return apierr.NotFound("recognition %s not found", recognitionID)
		}

		now := e.clock()
		source := types.StageIngestion
		var workLogID *uuid.UUID
		active, err := e.repos.WorkLog.GetActiveByRecognition(dbc, recognitionID)
		if err != nil {
			return err
		}
		if active != nil {
			// lock the claim so the reopen cannot interleave with a step
			// change on it
			if active, err = e.repos.WorkLog.LockByID(dbc, active.ID); err != nil {
				return err
			}
		}
		if active != nil && active.Status == types.WorkLogInProgress {
			id := active.ID
			workLogID = &id
			if step := active.CurrentStep(); step != nil {
				source = string(step.Type)
			}
			if route.Reopen != "" {
				if err := e.reopenStep(dbc, active, route.Reopen); err != nil {
					return err
				}
			}
		}

		rec = &types.CorrectionRecord{
			RecognitionID: recognitionID,
			WorkLogID:     workLogID,
			FlagType:      ft,
			SourceStage:   source,
			TargetStage:   route.TargetStage,
			Reason:        reason,
			Status:        types.CorrectionOpen,
			CreatedBy:     caller.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.repos.Correction.Create(dbc, rec); err != nil {
			return err
		}
		if err := e.repos.Route.Upsert(dbc, &types.RecognitionRoute{
			RecognitionID: recognitionID,
			Queue:         route.Queue,
			Stage:         route.TargetStage,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}
		if route.Reopen != "" {
			if err := e.repos.TypeStatus.Upsert(dbc, []*types.RecognitionValidationStatus{{
				RecognitionID:  recognitionID,
				ValidationType: route.Reopen,
				Status:         types.TypeStatusReopened,
				UpdatedAt:      now,
			}}); err != nil {
				return err
			}
		}
		ev = e.event(realtime.EventRecognitionFlagged, nil, caller.ID)
		ev.RecognitionID = recognitionID
		ev.Data = map[string]any{
			"flag_type":    string(ft),
			"target_stage": route.TargetStage,
			"source_stage": source,
		}
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "flag", err)
	}
	e.metrics.Flag(ctx, string(ft))
	e.publish(ctx, []realtime.WorkEvent{ev})
	return rec, e.finish(span, "flag", nil)
}

// reopenStep sends a finished step of the live claim back to pending so the
// session works it again before completing. A step still pending is pinned
// so it cannot auto-skip.
func (e *Engine) reopenStep(dbc dbctx.Context, wl *types.WorkLog, t types.ValidationType) error {
	steps := wl.Steps()
	for i := range steps {
		if steps[i].Type != t {
			continue
		}
		switch steps[i].Status {
		case types.StepInProgress:
			return nil
		case types.StepCompleted, types.StepSkipped:
			steps[i].Status = types.StepPending
		}
		steps[i].Reopened = true
		wl.ValidationSteps = steps
		return e.repos.WorkLog.UpdateFields(dbc, wl.ID, map[string]interface{}{
			"validation_steps": wl.ValidationSteps,
		})
	}
	return nil
}

// ResolveCorrection closes an open correction. Closing the last open
// remediation correction returns the recognition to the validation queue.
func (e *Engine) ResolveCorrection(ctx context.Context, caller Caller, correctionID uuid.UUID) (*types.CorrectionRecord, error) {
	ctx, span := e.start(ctx, "ResolveCorrection")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "resolve_correction", err)
	}
	if !caller.IsAdmin {
		return nil, e.finish(span, "resolve_correction", apierr.AccessDenied("only administrators can resolve corrections"))
	}

	var (
		rec *types.CorrectionRecord
		ev  realtime.WorkEvent
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		var err error
		rec, err = e.repos.Correction.LockByID(dbc, correctionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound("correction %s not found", correctionID)
		}
		if rec.Status != types.CorrectionOpen {
			return apierr.InvalidTransition("correction is already %s", rec.Status)
		}
		now := e.clock()
		if err := e.repos.Correction.MarkResolved(dbc, rec.ID, now); err != nil {
			return err
		}
		rec.Status = types.CorrectionResolved
		rec.ResolvedAt = &now
		rec.UpdatedAt = now

		if rec.TargetStage == types.StageRemediation {
			open, err := e.repos.Correction.CountOpenByTarget(dbc, rec.RecognitionID, types.StageRemediation)
			if err != nil {
				return err
			}
			if open == 0 {
				if err := e.repos.Route.Upsert(dbc, &types.RecognitionRoute{
					RecognitionID: rec.RecognitionID,
					Queue:         types.QueueValidation,
					Stage:         "",
					UpdatedAt:     now,
				}); err != nil {
					return err
				}
			}
		}
		ev = e.event(realtime.EventCorrectionResolved, nil, caller.ID)
		ev.RecognitionID = rec.RecognitionID
		ev.Data = map[string]any{"correction_id": rec.ID.String()}
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "resolve_correction", err)
	}
	e.publish(ctx, []realtime.WorkEvent{ev})
	return rec, e.finish(span, "resolve_correction", nil)
}
