package validation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/realtime/bus"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	ctx    context.Context
	db     *gorm.DB
	repos  repos.Repos
	bus    *bus.MemoryBus
	clock  *fakeClock
	engine *Engine
}

func newHarness(t *testing.T, order ...types.ValidationType) *harness {
	t.Helper()
	ctx := context.Background()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	if len(order) > 0 {
		testutil.SeedPriorities(t, ctx, gdb, order...)
	}
	h := &harness{
		ctx:   ctx,
		db:    gdb,
		repos: repos.New(gdb, log),
		bus:   bus.NewMemoryBus(),
		clock: &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	h.engine = New(EngineDeps{
		DB:    gdb,
		Log:   log,
		Repos: h.repos,
		Bus:   h.bus,
		Now:   h.clock.Now,
	})
	return h
}

func (h *harness) seed(t *testing.T, seed testutil.RecognitionSeed) *testutil.RecognitionFixture {
	t.Helper()
	return testutil.SeedRecognition(t, h.ctx, h.db, seed)
}

func (h *harness) dbc() dbctx.Context { return dbctx.Context{Ctx: h.ctx} }

// acquire claims work for caller and fails the test when none is handed out.
func (h *harness) acquire(t *testing.T, caller Caller) *types.WorkLog {
	t.Helper()
	res, err := h.engine.Acquire(h.ctx, caller, AcquireFilter{})
	require.NoError(t, err)
	require.NotNil(t, res, "expected a claim")
	return res.WorkLog
}

func (h *harness) workLog(t *testing.T, id uuid.UUID) *types.WorkLog {
	t.Helper()
	wl, err := h.repos.WorkLog.GetByID(h.dbc(), id)
	require.NoError(t, err)
	require.NotNil(t, wl)
	return wl
}

func annotator() Caller { return Caller{ID: uuid.New()} }

func admin() Caller { return Caller{ID: uuid.New(), IsAdmin: true} }

// workTray needs annotator action on FOOD (ambiguous line), PLATE (plate only
// on the main camera) and OCCLUSION.
func workTray(key string) testutil.RecognitionSeed {
	return testutil.RecognitionSeed{
		Key: key,
		Items: []testutil.ItemSeed{
			{Type: types.ItemFood, Cameras: []int{types.CameraMain, types.CameraQualifying}},
			{Type: types.ItemPlate, Cameras: []int{types.CameraMain}},
		},
		LineOptions: []int{2},
	}
}

// cleanTray auto-skips FOOD, PLATE, BUZZER and BOTTLE_ORIENTATION.
func cleanTray(key string) testutil.RecognitionSeed {
	return testutil.RecognitionSeed{
		Key: key,
		Items: []testutil.ItemSeed{
			{Type: types.ItemFood, Cameras: []int{types.CameraMain, types.CameraQualifying}},
		},
		LineOptions: []int{1},
	}
}

func stepStatuses(wl *types.WorkLog) []types.StepStatus {
	out := make([]types.StepStatus, 0, len(wl.ValidationSteps))
	for _, s := range wl.ValidationSteps {
		out = append(out, s.Status)
	}
	return out
}

func testDBC() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }
