package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JournalPruner drops journal entries older than a cutoff.
type JournalPruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// ColumnCompactor renumbers board columns whose orders drifted from 0..n-1.
type ColumnCompactor interface {
	CompactBoard(ctx context.Context) (int, error)
}

// MaintenanceConfig holds the cron specs (seconds field included) and the
// journal retention. An empty spec disables that job.
type MaintenanceConfig struct {
	RetentionSpec  string
	CompactionSpec string
	Retention      time.Duration
	JobTimeout     time.Duration
}

// Maintenance runs periodic housekeeping jobs.
type Maintenance struct {
	journal   JournalPruner
	compactor ColumnCompactor
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       MaintenanceConfig
	now       func() time.Time
}

func NewMaintenance(journal JournalPruner, compactor ColumnCompactor, logger *zap.Logger, cfg MaintenanceConfig) (*Maintenance, error) {
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Maintenance{
		journal:   journal,
		compactor: compactor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
		now:       time.Now,
	}

	if journal != nil && cfg.RetentionSpec != "" {
		if err := m.schedule("journal retention", cfg.RetentionSpec, m.PruneJournal); err != nil {
			return nil, err
		}
	}
	if compactor != nil && cfg.CompactionSpec != "" {
		if err := m.schedule("column compaction", cfg.CompactionSpec, m.CompactColumns); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Maintenance) schedule(name, spec string, job func(context.Context) error) error {
	_, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.JobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			m.logger.Error("maintenance job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

// Start launches the cron scheduler.
func (m *Maintenance) Start() {
	if m == nil || m.cron == nil {
		return
	}
	m.cron.Start()
	m.logger.Info("maintenance scheduler started", zap.Int("jobs", len(m.cron.Entries())))
}

// Stop waits for running jobs or ctx, whichever ends first.
func (m *Maintenance) Stop(ctx context.Context) error {
	if m == nil || m.cron == nil {
		return nil
	}
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	m.logger.Info("maintenance scheduler stopped")
	return nil
}

// PruneJournal removes entries older than the retention window.
func (m *Maintenance) PruneJournal(ctx context.Context) error {
	if m.journal == nil {
		return nil
	}
	cutoff := m.now().Add(-m.cfg.Retention)
	removed, err := m.journal.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		m.logger.Info("journal pruned", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	}
	return nil
}

// CompactColumns repairs board columns whose orders have gaps or duplicates.
func (m *Maintenance) CompactColumns(ctx context.Context) error {
	if m.compactor == nil {
		return nil
	}
	moved, err := m.compactor.CompactBoard(ctx)
	if err != nil {
		return err
	}
	if moved > 0 {
		m.logger.Warn("board columns compacted", zap.Int("tasks", moved))
	}
	return nil
}
