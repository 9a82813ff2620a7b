package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/config"
)

// RunOptions are the command-line overrides of a save or restore.
type RunOptions struct {
	// Types replaces entities.include when non-empty.
	Types []string
	// Selections maps a type to a selection expression, e.g. issues=5,7.
	Selections map[string]string
	// Conflicts holds type=strategy pairs.
	Conflicts   []string
	Concurrency int
	RunID       string
}

// BuildRunContext merges the configuration with the command-line overrides.
// It does no I/O; the result is validated by the engine before use.
func BuildRunContext(cfg config.Config, opts RunOptions, log *slog.Logger) (backup.RunContext, error) {
	reg := backup.DefaultRegistry()
	include := cfg.Entities.Include
	if len(opts.Types) > 0 {
		include = opts.Types
	}
	enabled, err := reg.EnabledTypes(include, cfg.Entities.Exclude)
	if err != nil {
		return backup.RunContext{}, err
	}

	exprs := map[string]string{}
	for k, v := range cfg.Selection.Types {
		exprs[k] = v
	}
	for k, v := range opts.Selections {
		if strings.TrimSpace(v) != "" {
			exprs[k] = v
		}
	}
	selections := make(map[string]backup.Selection, len(exprs))
	for typ, expr := range exprs {
		sel, err := backup.ParseSelection(expr)
		if err != nil {
			return backup.RunContext{}, &backup.ConfigError{Type: typ, Err: err}
		}
		selections[typ] = sel
	}

	pairs := map[string]string{}
	for k, v := range cfg.Conflicts {
		pairs[k] = v
	}
	for _, kv := range opts.Conflicts {
		typ, strat, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(typ) == "" {
			return backup.RunContext{}, fmt.Errorf("--conflict: want type=strategy, got %q", kv)
		}
		pairs[strings.TrimSpace(typ)] = strings.TrimSpace(strat)
	}
	strategies := make(map[string]backup.Strategy, len(pairs))
	for typ, s := range pairs {
		strat, err := backup.ParseStrategy(s)
		if err != nil {
			return backup.RunContext{}, &backup.ConfigError{Type: typ, Err: err}
		}
		strategies[typ] = strat
	}

	concurrency := cfg.Restore.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	return backup.RunContext{
		RunID:           opts.RunID,
		Registry:        reg,
		Enabled:         enabled,
		Selections:      selections,
		StrictSelection: cfg.Selection.Strict,
		Strategies:      strategies,
		Concurrency:     concurrency,
		Logger:          log,
	}, nil
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
