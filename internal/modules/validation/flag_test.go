package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

func TestFlagRoutesCoverEveryFlagType(t *testing.T) {
	for _, ft := range types.AllFlagTypes {
		route, ok := FlagRoutes[ft]
		require.True(t, ok, "no route for %s", ft)
		assert.NotEmpty(t, route.Queue)
		assert.NotEmpty(t, route.TargetStage)
	}
}

func TestFlagSourceDataErrorLeavesAnnotatorPool(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	fx := h.seed(t, workTray("tray-001"))
	reporter := annotator()

	rec, err := h.engine.Flag(h.ctx, reporter, fx.Recognition.ID, string(types.FlagSourceDataError), "images swapped")
	require.NoError(t, err)
	assert.Equal(t, types.StageIngestion, rec.SourceStage)
	assert.Equal(t, types.StageRemediation, rec.TargetStage)
	assert.Equal(t, types.CorrectionOpen, rec.Status)
	assert.Nil(t, rec.WorkLogID)

	route, err := h.repos.Route.Get(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.Equal(t, types.QueueRemediation, route.Queue)

	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{})
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = h.engine.ResolveCorrection(h.ctx, reporter, rec.ID)
	assert.Equal(t, apierr.CodeAccessDenied, apierr.CodeOf(err))

	resolved, err := h.engine.ResolveCorrection(h.ctx, admin(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.CorrectionResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = h.engine.ResolveCorrection(h.ctx, admin(), rec.ID)
	assert.Equal(t, apierr.CodeInvalidTransition, apierr.CodeOf(err))

	route, err = h.repos.Route.Get(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	assert.Equal(t, types.QueueValidation, route.Queue)

	wl := h.acquire(t, annotator())
	assert.Equal(t, fx.Recognition.ID, wl.RecognitionID)

	assert.Contains(t, h.bus.Types(), realtime.EventRecognitionFlagged)
	assert.Contains(t, h.bus.Types(), realtime.EventCorrectionResolved)
}

func TestRemediationHoldsUntilLastCorrectionResolved(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	fx := h.seed(t, workTray("tray-001"))
	boss := admin()

	first, err := h.engine.Flag(h.ctx, annotator(), fx.Recognition.ID, string(types.FlagSourceDataError), "")
	require.NoError(t, err)
	_, err = h.engine.Flag(h.ctx, annotator(), fx.Recognition.ID, string(types.FlagSourceDataError), "")
	require.NoError(t, err)

	_, err = h.engine.ResolveCorrection(h.ctx, boss, first.ID)
	require.NoError(t, err)
	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFlagBBoxErrorReopensFoodOnly(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	fx := h.seed(t, workTray("tray-001"))
	a := annotator()

	wl := h.acquire(t, a)
	for i := 0; i < 2; i++ {
		_, err := h.engine.Advance(h.ctx, a, wl.ID)
		require.NoError(t, err)
	}

	b := annotator()
	rec, err := h.engine.Flag(h.ctx, b, fx.Recognition.ID, string(types.FlagBBoxError), "box misses the bowl")
	require.NoError(t, err)
	assert.Equal(t, string(types.TypeFood), rec.TargetStage)

	second := h.acquire(t, b)
	require.Len(t, second.ValidationSteps, 1)
	assert.Equal(t, types.TypeFood, second.ValidationSteps[0].Type)

	// the flag names the step the live claim was on
	pager, err := h.engine.Flag(h.ctx, b, fx.Recognition.ID, string(types.FlagPagerPresent), "")
	require.NoError(t, err)
	assert.Equal(t, string(types.TypeFood), pager.SourceStage)
	require.NotNil(t, pager.WorkLogID)
	assert.Equal(t, second.ID, *pager.WorkLogID)

	res, err := h.engine.Advance(h.ctx, b, second.ID)
	require.NoError(t, err)
	require.True(t, res.AllCompleted)

	corrections, err := h.repos.Correction.ListByRecognition(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	require.Len(t, corrections, 2)
	for _, c := range corrections {
		switch c.FlagType {
		case types.FlagBBoxError:
			assert.Equal(t, types.CorrectionResolved, c.Status)
		case types.FlagPagerPresent:
			// BUZZER was never part of this session
			assert.Equal(t, types.CorrectionOpen, c.Status)
		}
	}
}

func TestFlagValidation(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	fx := h.seed(t, workTray("tray-001"))

	_, err := h.engine.Flag(h.ctx, annotator(), fx.Recognition.ID, "SPILLED_SOUP", "")
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	_, err = h.engine.Flag(h.ctx, annotator(), uuid.New(), string(types.FlagBBoxError), "")
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))

	_, err = h.engine.Flag(h.ctx, Caller{}, fx.Recognition.ID, string(types.FlagBBoxError), "")
	assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err))

	_, err = h.engine.ResolveCorrection(h.ctx, admin(), uuid.New())
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestFlagReopensFinishedStepOfLiveClaim(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypePlate, types.TypeOcclusion)
	fx := h.seed(t, workTray("tray-001"))
	a := annotator()
	wl := h.acquire(t, a)

	_, err := h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)

	rec, err := h.engine.Flag(h.ctx, annotator(), fx.Recognition.ID, string(types.FlagBBoxError), "box misses the bowl")
	require.NoError(t, err)
	assert.Equal(t, string(types.TypePlate), rec.SourceStage)
	require.NotNil(t, rec.WorkLogID)
	assert.Equal(t, wl.ID, *rec.WorkLogID)

	flagged := h.workLog(t, wl.ID)
	assert.Equal(t, []types.StepStatus{types.StepPending, types.StepInProgress, types.StepPending}, stepStatuses(flagged))
	assert.True(t, flagged.ValidationSteps[0].Reopened)
	assert.Equal(t, 1, flagged.CurrentStepIndex)

	_, err = h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)
	res, err := h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)
	assert.False(t, res.AllCompleted, "FOOD has to be worked again")
	assert.Equal(t, 0, res.NewStepIndex)
	require.NotNil(t, res.CurrentStep)
	assert.Equal(t, types.TypeFood, res.CurrentStep.Type)

	open, err := h.repos.Correction.ListByRecognition(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, types.CorrectionOpen, open[0].Status)

	res, err = h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)
	assert.True(t, res.AllCompleted)

	closed, err := h.repos.Correction.ListByRecognition(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, types.CorrectionResolved, closed[0].Status)

	snaps, err := h.engine.ListSnapshots(h.ctx, a, wl.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 4)
	revisions := map[int]int{}
	for _, s := range snaps {
		if s.Revision > revisions[s.StepOrder] {
			revisions[s.StepOrder] = s.Revision
		}
	}
	assert.Equal(t, 2, revisions[0], "FOOD was snapshotted twice")
}

func TestFlagReopenedStepIsNotAutoSkipped(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	fx := h.seed(t, cleanTray("tray-001"))
	a := annotator()
	wl := h.acquire(t, a)
	require.Equal(t, []types.StepStatus{types.StepSkipped, types.StepInProgress}, stepStatuses(wl))

	_, err := h.engine.Flag(h.ctx, annotator(), fx.Recognition.ID, string(types.FlagBBoxError), "")
	require.NoError(t, err)

	res, err := h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)
	assert.False(t, res.AllCompleted)
	require.NotNil(t, res.CurrentStep)
	assert.Equal(t, types.TypeFood, res.CurrentStep.Type)
	assert.Equal(t, types.StepInProgress, res.CurrentStep.Status)

	res, err = h.engine.Advance(h.ctx, a, wl.ID)
	require.NoError(t, err)
	assert.True(t, res.AllCompleted)

	resolved, err := h.repos.TypeStatus.ResolvedTypes(h.dbc(), fx.Recognition.ID)
	require.NoError(t, err)
	assert.True(t, resolved[types.TypeFood])
}
