// Package maintain runs Redloop's background sweeps: expiring stale
// advisory queries and deleting snapshots past their retention window.
package maintain

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/mwhitfield/redloop/internal/config"
	"github.com/mwhitfield/redloop/internal/decision"
	"github.com/mwhitfield/redloop/internal/snapshot"
)

// Daemon schedules and runs maintenance sweeps.
type Daemon struct {
	gate          *decision.Gate
	snaps         *snapshot.Store
	cfg           config.MaintenanceConfig
	retentionDays int
}

// New creates a Daemon over the given gate and snapshot store.
func New(gate *decision.Gate, snaps *snapshot.Store, cfg config.MaintenanceConfig, retentionDays int) *Daemon {
	return &Daemon{gate: gate, snaps: snaps, cfg: cfg, retentionDays: retentionDays}
}

// SweepResult reports what one maintenance pass did.
type SweepResult struct {
	QueriesExpired   int64
	SnapshotsRemoved int
}

// RunOnce runs both sweeps immediately.
func (d *Daemon) RunOnce() (*SweepResult, error) {
	result := &SweepResult{}

	expired, err := d.gate.ExpireOld(d.cfg.QueryExpiryDays)
	if err != nil {
		return nil, fmt.Errorf("maintain: %w", err)
	}
	result.QueriesExpired = expired

	if d.snaps != nil {
		removed, err := d.snaps.CleanupOldSnapshots(d.retentionDays)
		if err != nil {
			return nil, fmt.Errorf("maintain: %w", err)
		}
		result.SnapshotsRemoved = removed
	}

	return result, nil
}

// Start schedules the sweeps on their cron expressions and blocks until ctx
// is cancelled. Sweep failures are logged, never fatal.
func (d *Daemon) Start(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc(d.cfg.ExpireQueriesCron, func() {
		expired, err := d.gate.ExpireOld(d.cfg.QueryExpiryDays)
		if err != nil {
			log.Printf("maintain: expire queries: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("maintain: expired %d advisory queries", expired)
		}
	}); err != nil {
		return fmt.Errorf("maintain: schedule query expiry %q: %w", d.cfg.ExpireQueriesCron, err)
	}

	if d.snaps != nil {
		if _, err := c.AddFunc(d.cfg.CleanupSnapshotsCron, func() {
			removed, err := d.snaps.CleanupOldSnapshots(d.retentionDays)
			if err != nil {
				log.Printf("maintain: cleanup snapshots: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("maintain: removed %d old snapshots", removed)
			}
		}); err != nil {
			return fmt.Errorf("maintain: schedule snapshot cleanup %q: %w", d.cfg.CleanupSnapshotsCron, err)
		}
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
