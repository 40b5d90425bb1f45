package validation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
	"github.com/yungbote/tray-validation-backend/internal/realtime/bus"
)

const tracerName = "github.com/yungbote/tray-validation-backend/validation"

// ErrClaimConflict reports that another transaction won the race for a
// recognition. Acquire turns it into an empty result the caller may retry.
var ErrClaimConflict = errors.New("claim conflict")

// Caller is the identity every operation acts on behalf of.
type Caller struct {
	ID      uuid.UUID
	IsAdmin bool
}

type Policy struct {
	// StaleAfter is how long an in-progress claim may go without a heartbeat
	// before other callers may reclaim its recognition.
	StaleAfter time.Duration
	// MaxClaimAttempts bounds how many recognitions one Acquire may claim and
	// auto-complete (every step skipped) before giving up.
	MaxClaimAttempts int
	// SweepBatch caps the stale claims one SweepStale pass abandons.
	SweepBatch int
}

func DefaultPolicy() Policy {
	return Policy{
		StaleAfter:       30 * time.Minute,
		MaxClaimAttempts: 10,
		SweepBatch:       200,
	}
}

type EngineDeps struct {
	DB    *gorm.DB
	Log   *logger.Logger
	Repos repos.Repos

	Bus     bus.Bus
	Metrics *observability.Metrics
	Policy  Policy
	// Now defaults to time.Now; times are always stored in UTC.
	Now    func() time.Time
	Skips  SkipTable
	Guards GuardTable
}

// Engine is the work assignment and step progression state machine. All
// coordination state lives in the database; an Engine holds no per-session
// state and any number of them may run against one store.
type Engine struct {
	db      *gorm.DB
	log     *logger.Logger
	repos   repos.Repos
	bus     bus.Bus
	metrics *observability.Metrics
	policy  Policy
	now     func() time.Time
	skips   SkipTable
	guards  GuardTable
	tracer  trace.Tracer
}

func New(deps EngineDeps) *Engine {
	policy := deps.Policy
	def := DefaultPolicy()
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = def.StaleAfter
	}
	if policy.MaxClaimAttempts <= 0 {
		policy.MaxClaimAttempts = def.MaxClaimAttempts
	}
	if policy.SweepBatch <= 0 {
		policy.SweepBatch = def.SweepBatch
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	b := deps.Bus
	if b == nil {
		b = bus.NewNoopBus()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	skips := deps.Skips
	if skips == nil {
		skips = DefaultSkipPolicies()
	}
	guards := deps.Guards
	if guards == nil {
		guards = DefaultGuards()
	}
	return &Engine{
		db:      deps.DB,
		log:     log.With("service", "ValidationEngine"),
		repos:   deps.Repos,
		bus:     b,
		metrics: deps.Metrics,
		policy:  policy,
		now:     now,
		skips:   skips,
		guards:  guards,
		tracer:  otel.Tracer(tracerName),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) clock() time.Time { return e.now().UTC() }

func (e *Engine) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (e *Engine) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "validation."+name)
}

// finish records err on the span and maps anything outside the error
// taxonomy to an internal error, logging the cause.
func (e *Engine) finish(span trace.Span, op string, err error) error {
	defer span.End()
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		if ae.Code == apierr.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, op)
		}
		return ae
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	e.log.Error("validation operation failed", "op", op, "error", err)
	return apierr.Internal(err)
}

func (e *Engine) publish(ctx context.Context, events []realtime.WorkEvent) {
	for _, ev := range events {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.log.Warn("publish work event failed", "type", ev.Type, "error", err)
		}
	}
}

func (e *Engine) event(t realtime.EventType, wl *types.WorkLog, actor uuid.UUID) realtime.WorkEvent {
	ev := realtime.WorkEvent{Type: t, ActorID: actor, OccurredAt: e.clock()}
	if wl != nil {
		idx := wl.CurrentStepIndex
		ev.WorkLogID = wl.ID
		ev.RecognitionID = wl.RecognitionID
		ev.StepIndex = &idx
	}
	return ev
}

func requireCaller(caller Caller) error {
	if caller.ID == uuid.Nil {
		return apierr.Unauthorized("sign in to continue")
	}
	return nil
}

// canManage reports whether caller may drive the work log's progression.
func canManage(caller Caller, wl *types.WorkLog) bool {
	return caller.IsAdmin || wl.AssignedTo == caller.ID
}

// lockActive loads and locks a work log, then checks ownership and status in
// that order. Admins pass the ownership check only when allowAdmin is set.
func (e *Engine) lockActive(dbc dbctx.Context, caller Caller, workLogID uuid.UUID, allowAdmin bool) (*types.WorkLog, error) {
	wl, err := e.repos.WorkLog.LockByID(dbc, workLogID)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, apierr.NotFound("work log %s not found", workLogID)
	}
	owner := wl.AssignedTo == caller.ID
	if !owner && !(allowAdmin && caller.IsAdmin) {
		return nil, apierr.AccessDenied("work log %s is assigned to another annotator", workLogID)
	}
	if wl.Status != types.WorkLogInProgress {
		return nil, apierr.InvalidTransition("work log is %s, not in progress", wl.Status)
	}
	return wl, nil
}
