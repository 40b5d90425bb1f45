package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
)

func TestReplacePriorities(t *testing.T) {
	h := newHarness(t, types.TypeFood, types.TypeOcclusion)
	h.seed(t, workTray("tray-001"))
	h.seed(t, workTray("tray-002"))
	boss := admin()

	before := h.acquire(t, annotator())

	_, err := h.engine.ReplacePriorities(h.ctx, annotator(), []PriorityEntry{{ValidationType: types.TypePlate}})
	assert.Equal(t, apierr.CodeAccessDenied, apierr.CodeOf(err))
	_, err = h.engine.ReplacePriorities(h.ctx, boss, nil)
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
	_, err = h.engine.ReplacePriorities(h.ctx, boss, []PriorityEntry{{ValidationType: types.TypePlate}, {ValidationType: types.TypePlate}})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
	_, err = h.engine.ReplacePriorities(h.ctx, boss, []PriorityEntry{{ValidationType: "TASTE_VALIDATION"}})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = h.engine.ReplacePriorities(h.ctx, boss, []PriorityEntry{{ValidationType: types.TypePlate, ValidFrom: &from, ValidUntil: &from}})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	_, err = h.engine.ReplacePriorities(h.ctx, boss, []PriorityEntry{
		{ValidationType: types.TypeOcclusion},
		{ValidationType: types.TypePlate},
	})
	require.NoError(t, err)

	active, err := h.engine.ActivePriorities(h.ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, types.TypeOcclusion, active[0].ValidationType)
	assert.Equal(t, types.TypePlate, active[1].ValidationType)

	after := h.acquire(t, annotator())
	assert.Equal(t, []types.ValidationType{types.TypeOcclusion, types.TypePlate}, []types.ValidationType{
		after.ValidationSteps[0].Type, after.ValidationSteps[1].Type,
	})

	// claims handed out earlier keep their steps
	kept := h.workLog(t, before.ID)
	assert.Equal(t, types.TypeFood, kept.ValidationSteps[0].Type)
	assert.Len(t, kept.ValidationSteps, 2)
}

func TestSeedPrioritiesOnlyWhenEmpty(t *testing.T) {
	h := newHarness(t)
	entries := []PriorityEntry{{ValidationType: types.TypeFood}, {ValidationType: types.TypePlate}}

	seeded, err := h.engine.SeedPriorities(h.ctx, entries)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = h.engine.SeedPriorities(h.ctx, []PriorityEntry{{ValidationType: types.TypeNonFood}})
	require.NoError(t, err)
	assert.False(t, seeded)

	active, err := h.engine.ActivePriorities(h.ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, types.TypeFood, active[0].ValidationType)
}

func TestFuturePriorityWindowIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.seed(t, workTray("tray-001"))
	later := h.clock.Now().Add(48 * time.Hour)

	_, err := h.engine.ReplacePriorities(h.ctx, admin(), []PriorityEntry{
		{ValidationType: types.TypeFood},
		{ValidationType: types.TypeOcclusion, ValidFrom: testutil.PtrTime(later)},
	})
	require.NoError(t, err)

	wl := h.acquire(t, annotator())
	require.Len(t, wl.ValidationSteps, 1)
	assert.Equal(t, types.TypeFood, wl.ValidationSteps[0].Type)
}
