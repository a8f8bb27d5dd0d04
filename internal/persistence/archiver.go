package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/sawpanic/heliobio/internal/monitor"
)

// Archiver writes every cycle's snapshot and fired alerts to the repository
type Archiver struct {
	repo *Repository
}

// NewArchiver returns an archiver over repo
func NewArchiver(repo *Repository) (*Archiver, error) {
	if repo == nil || repo.Snapshots == nil || repo.Alerts == nil {
		return nil, fmt.Errorf("archiver requires snapshot and alert repositories")
	}
	return &Archiver{repo: repo}, nil
}

// OnCycle implements monitor.CycleObserver
func (a *Archiver) OnCycle(ctx context.Context, result monitor.CycleResult) error {
	var errs []error
	if err := a.repo.Snapshots.Insert(ctx, result.Snapshot); err != nil {
		errs = append(errs, fmt.Errorf("archive snapshot: %w", err))
	}
	for _, al := range result.Alerts {
		if err := a.repo.Alerts.Insert(ctx, al); err != nil {
			errs = append(errs, fmt.Errorf("archive alert %s: %w", al.ID, err))
		}
	}
	return errors.Join(errs...)
}
