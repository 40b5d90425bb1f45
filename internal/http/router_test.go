package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	"github.com/yungbote/tray-validation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	httpH "github.com/yungbote/tray-validation-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tray-validation-backend/internal/http/middleware"
	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
)

const secret = "router-test-secret"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) (*apiClient, *testutil.RecognitionFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := t.Context()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.SeedPriorities(t, ctx, gdb, types.TypeFood, types.TypeOcclusion)
	fx := testutil.SeedRecognition(t, ctx, gdb, testutil.RecognitionSeed{
		Key: "tray-001",
		Items: []testutil.ItemSeed{
			{Type: types.ItemFood, Cameras: []int{types.CameraMain}},
		},
		LineOptions: []int{2},
	})

	engine := validation.New(validation.EngineDeps{DB: gdb, Log: log, Repos: repos.New(gdb, log)})
	router := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, secret),
		WorkHandler:       httpH.NewWorkHandler(log, engine),
		WorkingSetHandler: httpH.NewWorkingSetHandler(log, engine),
		FlagHandler:       httpH.NewFlagHandler(log, engine),
		PriorityHandler:   httpH.NewPriorityHandler(log, engine),
	})
	return &apiClient{t: t, router: router}, fx
}

func (a *apiClient) token(id uuid.UUID, admin bool) string {
	tok, err := httpMW.SignToken(secret, id, admin, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *apiClient) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func TestWorkFlowOverHTTP(t *testing.T) {
	api, fx := newAPI(t)
	alice := api.token(uuid.New(), false)

	var claim struct {
		Work    *types.WorkLog `json:"work"`
		Resumed bool           `json:"resumed"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/work/acquire", alice, nil, &claim))
	require.NotNil(t, claim.Work)
	assert.Equal(t, fx.Recognition.ID, claim.Work.RecognitionID)
	base := "/api/work/" + claim.Work.ID.String()

	var ebody errorBody
	code := api.do(http.MethodPost, base+"/annotations", alice, map[string]any{
		"image_id": fx.Main.ID,
		"bbox":     map[string]float64{"x1": 30, "y1": 10, "x2": 20, "y2": 40},
	}, &ebody)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation_error", ebody.Error.Code)

	ebody = errorBody{}
	code = api.do(http.MethodPost, base+"/jump", alice, map[string]int{"target_index": 1}, &ebody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", ebody.Error.Code)

	var adv validation.AdvanceResult
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/advance", alice, nil, &adv))
	assert.Equal(t, 1, adv.NewStepIndex)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/advance", alice, nil, &adv))
	assert.True(t, adv.AllCompleted)

	var snaps struct {
		Snapshots []*types.StepSnapshot `json:"snapshots"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, base+"/snapshots", alice, nil, &snaps))
	assert.Len(t, snaps.Snapshots, 2)

	claim.Work = nil
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/work/acquire", alice, nil, &claim))
	assert.Nil(t, claim.Work)
}

func TestWorkRoutesEnforceIdentity(t *testing.T) {
	api, _ := newAPI(t)
	alice, bob := api.token(uuid.New(), false), api.token(uuid.New(), false)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/work/acquire", "", nil, nil))

	var claim struct {
		Work *types.WorkLog `json:"work"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/work/acquire", alice, nil, &claim))
	require.NotNil(t, claim.Work)

	var ebody errorBody
	code := api.do(http.MethodPost, "/api/work/"+claim.Work.ID.String()+"/advance", bob, nil, &ebody)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "access_denied", ebody.Error.Code)

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodGet, "/api/work/not-a-uuid", alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/work/"+uuid.NewString(), alice, nil, nil))
}

func TestFlagAndPriorityRoutes(t *testing.T) {
	api, fx := newAPI(t)
	alice := api.token(uuid.New(), false)
	boss := api.token(uuid.New(), true)

	var flagged struct {
		Correction *types.CorrectionRecord `json:"correction"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/recognitions/"+fx.Recognition.ID.String()+"/flag", alice,
		map[string]string{"flag_type": "SOURCE_DATA_ERROR", "reason": "wrong tray"}, &flagged))
	require.NotNil(t, flagged.Correction)

	var claim struct {
		Work *types.WorkLog `json:"work"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/work/acquire", alice, nil, &claim))
	assert.Nil(t, claim.Work)

	resolvePath := "/api/corrections/" + flagged.Correction.ID.String() + "/resolve"
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, resolvePath, alice, nil, nil))
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, resolvePath, boss, nil, nil))

	body := map[string]any{"priorities": []map[string]string{{"validation_type": "OCCLUSION_VALIDATION"}}}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/priorities", alice, body, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/priorities", boss, body, nil))

	var list struct {
		Priorities []*types.PriorityConfig `json:"priorities"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/priorities", alice, nil, &list))
	require.Len(t, list.Priorities, 1)
	assert.Equal(t, types.TypeOcclusion, list.Priorities[0].ValidationType)
}
