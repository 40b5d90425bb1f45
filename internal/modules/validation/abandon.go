package validation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

type AbandonResult struct {
	WorkLog *types.WorkLog `json:"work"`
	// Next is the claim handed out by a requeue; nil when none was asked for
	// or no work was available.
	Next *types.WorkLog `json:"next_work"`
}

// Abandon releases a claim. The working set is discarded, completed and
// skipped steps keep their status and snapshots, and the log is retained as
// abandoned. With requeue the caller is handed the next claim in the same
// transaction; the recognition just released is never handed back.
func (e *Engine) Abandon(ctx context.Context, caller Caller, workLogID uuid.UUID, reason string, requeue bool) (*AbandonResult, error) {
	ctx, span := e.start(ctx, "Abandon")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "abandon", err)
	}

	var (
		res         *AbandonResult
		events      []realtime.WorkEvent
		requeueLost bool
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		wl, err := e.lockActive(dbc, caller, workLogID, true)
		if err != nil {
			return err
		}
		if reason == "" {
			reason = "abandoned by annotator"
		}
		if err := e.release(dbc, wl, reason); err != nil {
			return err
		}
		res = &AbandonResult{WorkLog: wl}
		events = append(events, e.event(realtime.EventWorkAbandoned, wl, caller.ID))

		if !requeue {
			return nil
		}
		// The requeue runs in a savepoint: losing the claim race leaves the
		// abandon in place and hands back no work.
		var next *ClaimResult
		err = dbc.Tx.Transaction(func(sp *gorm.DB) error {
			var evs []realtime.WorkEvent
			var err error
			next, evs, err = e.acquireTx(dbctx.Context{Ctx: dbc.Ctx, Tx: sp}, caller, AcquireFilter{}, []uuid.UUID{wl.RecognitionID})
			if err != nil {
				return err
			}
			events = append(events, evs...)
			return nil
		})
		if errors.Is(err, ErrClaimConflict) {
			requeueLost = true
			return nil
		}
		if err != nil {
			return err
		}
		if next != nil {
			res.Next = next.WorkLog
		}
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "abandon", err)
	}
	e.metrics.Abandon(ctx, requeue)
	if requeueLost {
		e.metrics.Claim(ctx, observability.ClaimConflict)
		e.log.Info("requeue lost claim to a concurrent caller", "caller_id", caller.ID)
	}
	e.publish(ctx, events)
	return res, e.finish(span, "abandon", nil)
}

// SweepStale abandons in-progress claims whose heartbeat is older than the
// staleness window. Claims are otherwise only reclaimed lazily, by a
// conflicting Acquire.
func (e *Engine) SweepStale(ctx context.Context) (int, error) {
	ctx, span := e.start(ctx, "SweepStale")
	cutoff := e.clock().Add(-e.policy.StaleAfter)

	var (
		n      int
		events []realtime.WorkEvent
	)
	err := e.inTx(ctx, func(dbc dbctx.Context) error {
		stale, err := e.repos.WorkLog.ListStale(dbc, cutoff, e.policy.SweepBatch)
		if err != nil {
			return err
		}
		for _, candidate := range stale {
			wl, err := e.repos.WorkLog.LockByID(dbc, candidate.ID)
			if err != nil {
				return err
			}
			if wl == nil || !wl.IsStale(e.clock(), e.policy.StaleAfter) {
				continue
			}
			if err := e.release(dbc, wl, "stale claim swept"); err != nil {
				return err
			}
			n++
			events = append(events, e.event(realtime.EventWorkAbandoned, wl, uuid.Nil))
		}
		return nil
	})
	if err != nil {
		return 0, e.finish(span, "sweep_stale", err)
	}
	if n > 0 {
		e.metrics.StaleReclaim(ctx, "sweep", n)
		e.log.Info("swept stale work logs", "count", n)
	}
	e.publish(ctx, events)
	return n, e.finish(span, "sweep_stale", nil)
}

// release marks wl abandoned and discards its working set. A step still in
// progress goes back to pending; completed and skipped steps are kept.
func (e *Engine) release(dbc dbctx.Context, wl *types.WorkLog, reason string) error {
	steps := wl.Steps()
	for i := range steps {
		if steps[i].Status == types.StepInProgress {
			steps[i].Status = types.StepPending
		}
	}
	now := e.clock()
	ok, err := e.repos.WorkLog.UpdateFieldsIfStatus(dbc, wl.ID, types.WorkLogInProgress, map[string]interface{}{
		"status":           types.WorkLogAbandoned,
		"validation_steps": datatypes.JSONSlice[types.ValidationStep](steps),
		"completed_at":     now,
		"abandon_reason":   reason,
	})
	if err != nil {
		return err
	}
	if !ok {
		return apierr.InvalidTransition("work log is no longer in progress")
	}
	if err := e.discardWorkingSet(dbc, wl.ID); err != nil {
		return err
	}
	wl.Status = types.WorkLogAbandoned
	wl.ValidationSteps = steps
	wl.CompletedAt = &now
	wl.AbandonReason = reason
	return nil
}
