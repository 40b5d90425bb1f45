package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

func TestAcquireBuildsStepsInPriorityOrder(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypePlate, types.TypeOcclusion)
	fx := h.seed(t, workTray("tray-001"))

	caller := annotator()
	wl := h.acquire(t, caller)

	assert.Equal(t, fx.Recognition.ID, wl.RecognitionID)
	assert.Equal(t, caller.ID, wl.AssignedTo)
	assert.Equal(t, types.WorkLogInProgress, wl.Status)
	assert.Equal(t, 0, wl.CurrentStepIndex)
	require.Len(t, wl.ValidationSteps, 3)
	for i, want := range []types.ValidationType{types.TypeFood, types.TypePlate, types.TypeOcclusion} {
		assert.Equal(t, want, wl.ValidationSteps[i].Type)
		assert.Equal(t, i, wl.ValidationSteps[i].Order)
	}
	assert.Equal(t, []types.StepStatus{types.StepInProgress, types.StepPending, types.StepPending}, stepStatuses(wl))
	assert.Equal(t, []realtime.EventType{realtime.EventWorkClaimed}, h.bus.Types())
}

func TestAcquireCopiesBaselineIntoWorkingSet(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypePlate)
	fx := h.seed(t, workTray("tray-001"))
	caller := annotator()
	wl := h.acquire(t, caller)

	ws, err := h.engine.WorkingSet(h.ctx, caller, wl.ID)
	require.NoError(t, err)
	require.Len(t, ws.Items, len(fx.Items))
	require.Len(t, ws.Annotations, len(fx.Annotations))

	byInitial := map[uuid.UUID]*types.WorkItem{}
	for _, it := range ws.Items {
		require.NotNil(t, it.InitialItemID)
		assert.NotEqual(t, *it.InitialItemID, it.ID)
		byInitial[*it.InitialItemID] = it
	}
	for _, orig := range fx.Items {
		copied, ok := byInitial[orig.ID]
		require.True(t, ok, "item %s not copied", orig.ID)
		assert.Equal(t, orig.Type, copied.Type)
		assert.Equal(t, orig.Quantity, copied.Quantity)
		assert.Equal(t, orig.RecipeLineID, copied.RecipeLineID)
	}

	annByInitial := map[uuid.UUID]*types.WorkAnnotation{}
	for _, a := range ws.Annotations {
		require.NotNil(t, a.InitialAnnotationID)
		annByInitial[*a.InitialAnnotationID] = a
	}
	for _, orig := range fx.Annotations {
		copied, ok := annByInitial[orig.ID]
		require.True(t, ok, "annotation %s not copied", orig.ID)
		assert.Equal(t, orig.BBox, copied.BBox)
		assert.Equal(t, orig.ImageID, copied.ImageID)
		require.NotNil(t, copied.WorkItemID)
		assert.Equal(t, byInitial[orig.InitialItemID].ID, *copied.WorkItemID)
	}
}

func TestAcquireResumesLiveClaim(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	h.seed(t, workTray("tray-001"))
	h.seed(t, workTray("tray-002"))
	caller := annotator()

	first := h.acquire(t, caller)
	h.clock.Advance(5 * time.Minute)
	res, err := h.engine.Acquire(h.ctx, caller, AcquireFilter{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Resumed)
	assert.Equal(t, first.ID, res.WorkLog.ID)
	assert.True(t, res.WorkLog.HeartbeatAt.After(first.HeartbeatAt))

	cur, err := h.engine.CurrentWork(h.ctx, caller)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, first.ID, cur.ID)
}

func TestAcquireIsExclusiveUnderConcurrency(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	const trays = 3
	for i := 0; i < trays; i++ {
		h.seed(t, workTray(uuid.NewString()))
	}

	const callers = 8
	results := make([]*ClaimResult, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{})
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := map[uuid.UUID]bool{}
	claimed := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		claimed++
		assert.False(t, seen[res.WorkLog.RecognitionID], "recognition %s handed out twice", res.WorkLog.RecognitionID)
		seen[res.WorkLog.RecognitionID] = true
	}
	assert.Equal(t, trays, claimed)

	var active int64
	require.NoError(t, h.db.Model(&types.WorkLog{}).Where("status = ?", types.WorkLogInProgress).Count(&active).Error)
	assert.Equal(t, int64(trays), active)
}

func TestAcquireReturnsNothingWhenQueueIsEmpty(t *testing.T) {
	h := newHarness(t, types.TypeFood)
	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{})
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = h.engine.Acquire(h.ctx, Caller{}, AcquireFilter{})
	assert.Equal(t, apierr.CodeUnauthorized, apierr.CodeOf(err))

	_, err = h.engine.Acquire(h.ctx, annotator(), AcquireFilter{Types: []types.ValidationType{"SMELL_VALIDATION"}})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
}

func TestAcquireAutoCompletesWhenEveryStepSkips(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeBottleOrientation)
	clean := h.seed(t, cleanTray("tray-001"))
	busy := h.seed(t, workTray("tray-002"))

	caller := annotator()
	wl := h.acquire(t, caller)
	assert.Equal(t, busy.Recognition.ID, wl.RecognitionID)

	logs, err := h.repos.WorkLog.ListByRecognition(h.dbc(), clean.Recognition.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, types.WorkLogCompleted, logs[0].Status)
	assert.Equal(t, []types.StepStatus{types.StepSkipped, types.StepSkipped}, stepStatuses(logs[0]))

	resolved, err := h.repos.TypeStatus.ResolvedTypes(h.dbc(), clean.Recognition.ID)
	require.NoError(t, err)
	assert.True(t, resolved[types.TypeFood])
	assert.True(t, resolved[types.TypeBottleOrientation])

	items, err := h.repos.WorkItem.ListByWorkLog(h.dbc(), logs[0].ID, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAcquireSkipsLeadingStepsThatNeedNoWork(t *testing.T) {
	h := newHarness(t, types.TypeBottleOrientation, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))

	wl := h.acquire(t, annotator())
	assert.Equal(t, 1, wl.CurrentStepIndex)
	assert.Equal(t, []types.StepStatus{types.StepSkipped, types.StepInProgress, types.StepPending}, stepStatuses(wl))
}

func TestAcquireFilters(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	batched := h.seed(t, testutil.RecognitionSeed{
		Key:     "tray-002",
		BatchID: "batch-9",
		Items: []testutil.ItemSeed{
			{Type: types.ItemFood, Cameras: []int{types.CameraMain}},
		},
	})

	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{BatchID: "batch-9"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, batched.Recognition.ID, res.WorkLog.RecognitionID)

	// only tray-001 has an ambiguous line, and it is still free
	res, err = h.engine.Acquire(h.ctx, annotator(), AcquireFilter{AmbiguousLinesOnly: true})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEqual(t, batched.Recognition.ID, res.WorkLog.RecognitionID)

	res, err = h.engine.Acquire(h.ctx, annotator(), AcquireFilter{AmbiguousLinesOnly: true})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestAcquireRestrictsTypes(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypePlate, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))

	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{Types: []types.ValidationType{types.TypeOcclusion}})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.WorkLog.ValidationSteps, 1)
	assert.Equal(t, types.TypeOcclusion, res.WorkLog.ValidationSteps[0].Type)
}

func TestStaleClaimIsReclaimedByAnotherCaller(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	a, b := annotator(), annotator()

	first := h.acquire(t, a)

	res, err := h.engine.Acquire(h.ctx, b, AcquireFilter{})
	require.NoError(t, err)
	assert.Nil(t, res, "a fresh claim must not be handed out twice")

	h.clock.Advance(h.engine.Policy().StaleAfter + time.Minute)
	second := h.acquire(t, b)
	assert.Equal(t, first.RecognitionID, second.RecognitionID)
	assert.NotEqual(t, first.ID, second.ID)

	old := h.workLog(t, first.ID)
	assert.Equal(t, types.WorkLogAbandoned, old.Status)
	assert.Equal(t, "stale claim reclaimed", old.AbandonReason)

	_, err = h.engine.Advance(h.ctx, a, first.ID)
	assert.Equal(t, apierr.CodeInvalidTransition, apierr.CodeOf(err))
}

func TestHeartbeatKeepsClaimFresh(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	a := annotator()
	wl := h.acquire(t, a)

	h.clock.Advance(20 * time.Minute)
	_, err := h.engine.CreateItem(h.ctx, a, wl.ID, ItemInput{Type: types.ItemOther})
	require.NoError(t, err)
	h.clock.Advance(20 * time.Minute)

	res, err := h.engine.Acquire(h.ctx, annotator(), AcquireFilter{})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, types.WorkLogInProgress, h.workLog(t, wl.ID).Status)
}

func TestSweepStaleAbandonsExpiredClaims(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	h.seed(t, workTray("tray-002"))

	keeper := annotator()
	stale := h.acquire(t, annotator())
	fresh := h.acquire(t, keeper)
	h.clock.Advance(h.engine.Policy().StaleAfter + time.Minute)
	// resuming refreshes the heartbeat
	h.acquire(t, keeper)

	n, err := h.engine.SweepStale(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	swept := h.workLog(t, stale.ID)
	assert.Equal(t, types.WorkLogAbandoned, swept.Status)
	assert.Equal(t, "stale claim swept", swept.AbandonReason)
	assert.Equal(t, types.WorkLogInProgress, h.workLog(t, fresh.ID).Status)

	n, err = h.engine.SweepStale(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAcquirePrefersFlaggedRecognitions(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	flagged := h.seed(t, workTray("tray-002"))

	_, err := h.engine.Flag(h.ctx, annotator(), flagged.Recognition.ID, string(types.FlagBBoxError), "")
	require.NoError(t, err)

	caller := annotator()
	wl := h.acquire(t, caller)
	assert.Equal(t, flagged.Recognition.ID, wl.RecognitionID, "routed stage goes ahead of key order")

	for i := 0; i < 2; i++ {
		_, err := h.engine.Advance(h.ctx, caller, wl.ID)
		require.NoError(t, err)
	}
	route, err := h.repos.Route.Get(h.dbc(), flagged.Recognition.ID)
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.Equal(t, types.QueueValidation, route.Queue)
	assert.Empty(t, route.Stage, "stage pointer cleared once worked")
}

func TestAcquireRecordsValidationMode(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	clean := h.seed(t, cleanTray("tray-001"))
	busy := h.seed(t, workTray("tray-002"))

	first := h.acquire(t, annotator())
	assert.Equal(t, clean.Recognition.ID, first.RecognitionID)
	assert.Equal(t, types.ModeQuick, first.ValidationMode)
	assert.Equal(t, types.ModeQuick, h.workLog(t, first.ID).ValidationMode)

	second := h.acquire(t, annotator())
	assert.Equal(t, busy.Recognition.ID, second.RecognitionID)
	assert.Equal(t, types.ModeEdit, h.workLog(t, second.ID).ValidationMode)
}
