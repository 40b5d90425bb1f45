package validation

import (
	"context"
	"time"

	types "github.com/yungbote/tray-validation-backend/internal/domain"
	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
	"github.com/yungbote/tray-validation-backend/internal/platform/dbctx"
	"github.com/yungbote/tray-validation-backend/internal/platform/retry"
)

type PriorityEntry struct {
	ValidationType types.ValidationType `json:"validation_type" yaml:"validation_type"`
	ValidFrom      *time.Time           `json:"valid_from,omitempty" yaml:"valid_from,omitempty"`
	ValidUntil     *time.Time           `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
}

// ActivePriorities returns the priority rows new claims are built from.
func (e *Engine) ActivePriorities(ctx context.Context) ([]*types.PriorityConfig, error) {
	ctx, span := e.start(ctx, "ActivePriorities")
	var rows []*types.PriorityConfig
	err := retry.Read(ctx, func() error {
		var err error
		rows, err = e.repos.Priority.ListActive(dbctx.Context{Ctx: ctx}, e.clock())
		return err
	})
	if err != nil {
		return nil, e.finish(span, "active_priorities", err)
	}
	return rows, e.finish(span, "active_priorities", nil)
}

// ReplacePriorities writes entries, in order, as a new active version. Claims
// already handed out keep their step lists.
func (e *Engine) ReplacePriorities(ctx context.Context, caller Caller, entries []PriorityEntry) ([]*types.PriorityConfig, error) {
	ctx, span := e.start(ctx, "ReplacePriorities")
	if err := requireCaller(caller); err != nil {
		return nil, e.finish(span, "replace_priorities", err)
	}
	if !caller.IsAdmin {
		return nil, e.finish(span, "replace_priorities", apierr.AccessDenied("only administrators can change priorities"))
	}
	rows, err := priorityRows(entries)
	if err != nil {
		return nil, e.finish(span, "replace_priorities", err)
	}
	err = e.inTx(ctx, func(dbc dbctx.Context) error {
		version, err := e.repos.Priority.ReplaceActive(dbc, rows)
		if err != nil {
			return err
		}
		e.log.Info("priority config replaced", "version", version, "types", len(rows))
		return nil
	})
	if err != nil {
		return nil, e.finish(span, "replace_priorities", err)
	}
	return rows, e.finish(span, "replace_priorities", nil)
}

// SeedPriorities installs entries only when no priority row exists yet.
func (e *Engine) SeedPriorities(ctx context.Context, entries []PriorityEntry) (bool, error) {
	ctx, span := e.start(ctx, "SeedPriorities")
	rows, err := priorityRows(entries)
	if err != nil {
		return false, e.finish(span, "seed_priorities", err)
	}
	seeded := false
	err = e.inTx(ctx, func(dbc dbctx.Context) error {
		n, err := e.repos.Priority.Count(dbc)
		if err != nil || n > 0 {
			return err
		}
		if _, err := e.repos.Priority.ReplaceActive(dbc, rows); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	return seeded, e.finish(span, "seed_priorities", err)
}

func priorityRows(entries []PriorityEntry) ([]*types.PriorityConfig, error) {
	if len(entries) == 0 {
		return nil, apierr.Validation("at least one validation type is required")
	}
	seen := map[types.ValidationType]bool{}
	rows := make([]*types.PriorityConfig, 0, len(entries))
	for i, en := range entries {
		if !en.ValidationType.Valid() {
			return nil, apierr.Validation("unknown validation type %q", en.ValidationType)
		}
		if seen[en.ValidationType] {
			return nil, apierr.Validation("validation type %s listed twice", en.ValidationType)
		}
		if en.ValidFrom != nil && en.ValidUntil != nil && !en.ValidUntil.After(*en.ValidFrom) {
			return nil, apierr.Validation("valid_until must be after valid_from for %s", en.ValidationType)
		}
		seen[en.ValidationType] = true
		rows = append(rows, &types.PriorityConfig{
			ValidationType: en.ValidationType,
			Position:       i + 1,
			ValidFrom:      utcPtr(en.ValidFrom),
			ValidUntil:     utcPtr(en.ValidUntil),
		})
	}
	return rows, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
