package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
)

// cliCaller is the admin identity operator commands act as.
var cliCaller = validation.Caller{ID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("trayval:cli")), IsAdmin: true}

type priorityFile struct {
	Priorities []validation.PriorityEntry `yaml:"priorities"`
}

// LoadPriorityFile reads an ordered priority list from YAML.
func LoadPriorityFile(path string) ([]validation.PriorityEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priority file: %w", err)
	}
	var f priorityFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse priority file %s: %w", path, err)
	}
	if len(f.Priorities) == 0 {
		return nil, fmt.Errorf("priority file %s has no priorities", path)
	}
	return f.Priorities, nil
}

// SeedPriorities loads path and installs it. Without force the file is only
// applied when no priorities exist yet; with force it becomes a new active
// version.
func (a *App) SeedPriorities(ctx context.Context, path string, force bool) (bool, error) {
	entries, err := LoadPriorityFile(path)
	if err != nil {
		return false, err
	}
	if force {
		if _, err := a.Services.Engine.ReplacePriorities(ctx, cliCaller, entries); err != nil {
			return false, fmt.Errorf("replace priorities: %w", err)
		}
		a.Log.Info("Priorities replaced", "file", path, "count", len(entries))
		return true, nil
	}
	seeded, err := a.Services.Engine.SeedPriorities(ctx, entries)
	if err != nil {
		return false, fmt.Errorf("seed priorities: %w", err)
	}
	if seeded {
		a.Log.Info("Priorities seeded", "file", path, "count", len(entries))
	} else {
		a.Log.Debug("Priorities already present, seed skipped", "file", path)
	}
	return seeded, nil
}
