package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestValidationStepsWireShape(t *testing.T) {
	steps := datatypes.JSONSlice[ValidationStep]{
		{Type: TypeFood, Status: StepCompleted, Order: 0},
		{Type: TypePlate, Status: StepInProgress, Order: 1},
	}
	raw, err := json.Marshal(steps)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"FOOD_VALIDATION","status":"completed","order":0},{"type":"PLATE_VALIDATION","status":"in_progress","order":1}]`, string(raw))

	val, err := steps.Value()
	require.NoError(t, err)
	var back datatypes.JSONSlice[ValidationStep]
	require.NoError(t, back.Scan(val))
	assert.Equal(t, steps, back)
}

func TestParseValidationType(t *testing.T) {
	got, err := ParseValidationType("BUZZER_VALIDATION")
	require.NoError(t, err)
	assert.Equal(t, TypeBuzzer, got)

	_, err = ParseValidationType("buzzer")
	assert.Error(t, err)
}

func TestPriorityConfigActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, PriorityConfig{IsActive: true}.ActiveAt(now))
	assert.False(t, PriorityConfig{IsActive: false}.ActiveAt(now))
	assert.False(t, PriorityConfig{IsActive: true, ValidFrom: &after}.ActiveAt(now))
	assert.False(t, PriorityConfig{IsActive: true, ValidUntil: &now}.ActiveAt(now))
	assert.True(t, PriorityConfig{IsActive: true, ValidFrom: &before, ValidUntil: &after}.ActiveAt(now))
}

func TestWorkLogIsStale(t *testing.T) {
	now := time.Now().UTC()
	wl := &WorkLog{Status: WorkLogInProgress, HeartbeatAt: now.Add(-31 * time.Minute)}
	assert.True(t, wl.IsStale(now, 30*time.Minute))

	wl.HeartbeatAt = now.Add(-29 * time.Minute)
	assert.False(t, wl.IsStale(now, 30*time.Minute))

	wl.Status = WorkLogCompleted
	wl.HeartbeatAt = now.Add(-time.Hour)
	assert.False(t, wl.IsStale(now, 30*time.Minute))
}
