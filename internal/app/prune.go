package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// PrunePolicy selects archives to delete. Archives among the Keep newest are
// never deleted; of the rest, those created before now-OlderThan are.
// A zero OlderThan selects every archive beyond Keep.
type PrunePolicy struct {
	OlderThan time.Duration
	Keep      int
	DryRun    bool
}

// Prune deletes the archives selected by p and returns their names, oldest
// first.
func Prune(ctx context.Context, b Backend, p PrunePolicy, now time.Time, log *slog.Logger) ([]string, error) {
	if p.Keep < 0 {
		return nil, fmt.Errorf("prune: keep must not be negative, got %d", p.Keep)
	}
	infos, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	cutoff := now.Add(-p.OlderThan)

	var victims []string
	for i := len(infos) - 1; i >= p.Keep; i-- {
		if p.OlderThan > 0 && !infos[i].CreatedAt.Before(cutoff) {
			continue
		}
		victims = append(victims, infos[i].Name)
	}
	if p.DryRun {
		return victims, nil
	}
	for _, name := range victims {
		if _, err := b.Delete(ctx, name); err != nil {
			return nil, fmt.Errorf("prune %s: %w", name, err)
		}
		log.Info("pruned archive", "archive", name)
	}
	return victims, nil
}
