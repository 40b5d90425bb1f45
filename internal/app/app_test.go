package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("STALE_CLAIM_WINDOW", "45m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STALE_SWEEP_CRON", "@every 5m")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 45*time.Minute, cfg.StaleClaimWindow)
	assert.Equal(t, 10, cfg.ClaimMaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "work-events", cfg.Redis.Channel)
	assert.Equal(t, "@every 5m", cfg.StaleSweepCron)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trayval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9090\"\nCLAIM_MAX_ATTEMPTS: 3\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.ClaimMaxAttempts)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := LoadConfig(logger.Nop())
	assert.ErrorContains(t, err, "DB_DRIVER")

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("STALE_CLAIM_WINDOW", "0s")
	_, err = LoadConfig(logger.Nop())
	assert.ErrorContains(t, err, "STALE_CLAIM_WINDOW")
}

func TestParseSweepSchedule(t *testing.T) {
	sched, err := ParseSweepSchedule("*/5 * * * *")
	require.NoError(t, err)
	from := time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC), sched.Next(from))

	_, err = ParseSweepSchedule("@every 10m")
	require.NoError(t, err)

	_, err = ParseSweepSchedule("every now and then")
	assert.ErrorContains(t, err, "STALE_SWEEP_CRON")
}

func testApp(t *testing.T) *App {
	t.Helper()
	gdb := testutil.DB(t)
	log := logger.Nop()
	reposet := repos.New(gdb, log)
	return &App{
		Log:   log,
		DB:    gdb,
		Repos: reposet,
		Services: Services{
			Engine: validation.New(validation.EngineDeps{DB: gdb, Log: log, Repos: reposet}),
		},
	}
}

func TestSeedPrioritiesFromShippedFile(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	path := filepath.Join("..", "..", "configs", "priorities.yaml")

	seeded, err := a.SeedPriorities(ctx, path, false)
	require.NoError(t, err)
	assert.True(t, seeded)

	rows, err := a.Services.Engine.ActivePriorities(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, types.TypeFood, rows[0].ValidationType)
	assert.Equal(t, types.TypeNonFood, rows[5].ValidationType)

	seeded, err = a.SeedPriorities(ctx, path, false)
	require.NoError(t, err)
	assert.False(t, seeded, "seed only applies to an empty table")
}

func TestSeedPrioritiesForceReplaces(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	_, err := a.SeedPriorities(ctx, filepath.Join("..", "..", "configs", "priorities.yaml"), false)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "short.yaml")
	require.NoError(t, os.WriteFile(path, []byte("priorities:\n  - validation_type: NONFOOD_VALIDATION\n  - validation_type: FOOD_VALIDATION\n"), 0o600))

	replaced, err := a.SeedPriorities(ctx, path, true)
	require.NoError(t, err)
	assert.True(t, replaced)

	rows, err := a.Services.Engine.ActivePriorities(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, types.TypeNonFood, rows[0].ValidationType)
}

func TestLoadPriorityFileErrors(t *testing.T) {
	_, err := LoadPriorityFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("priorities: []\n"), 0o600))
	_, err = LoadPriorityFile(empty)
	assert.ErrorContains(t, err, "no priorities")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("priorities: [\n"), 0o600))
	_, err = LoadPriorityFile(broken)
	assert.ErrorContains(t, err, "parse priority file")
}
