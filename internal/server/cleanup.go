package server

import (
	"context"
	"path/filepath"
	"time"
)

// StartRetention runs the retention sweeper until ctx is cancelled. Upload
// pairs whose stem timestamp is older than Config.Retention are deleted from
// disk, from the mirror and from the ledger. A zero Retention disables it.
func (s *Server) StartRetention(ctx context.Context) {
	if s.cfg.Retention <= 0 {
		s.log.Info("retention_disabled", nil)
		return
	}

	s.log.Info("retention_starting", map[string]interface{}{
		"interval": s.cfg.RetentionInterval.String(),
		"max_age":  s.cfg.Retention.String(),
	})

	ticker := time.NewTicker(s.cfg.RetentionInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("retention_shutting_down", nil)
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one retention pass and returns the number of files
// removed from the upload directory.
func (s *Server) sweep(ctx context.Context) int {
	start := time.Now()
	cutoff := s.clock.Now().UTC().Add(-s.cfg.Retention)

	entries, err := s.fs.ReadDir(s.cfg.UploadDir)
	if err != nil {
		s.log.Error("retention_list_failed", map[string]interface{}{"dir": s.cfg.UploadDir}, err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ts, ok := stemTime(name)
		if !ok || !ts.Before(cutoff) {
			continue
		}

		path := filepath.Join(s.cfg.UploadDir, name)
		if err := s.fs.Remove(path); err != nil {
			s.log.Warn("retention_remove_failed", map[string]interface{}{"path": path}, err)
			continue
		}
		removed++

		if s.mirror != nil {
			if err := s.mirror.Remove(ctx, name); err != nil {
				s.metrics.RecordMirrorFailure()
				s.log.Warn("retention_mirror_remove_failed", map[string]interface{}{"name": name}, err)
			}
		}
		s.log.Debug("retention_removed", map[string]interface{}{
			"path": path,
			"age":  s.clock.Now().UTC().Sub(ts).String(),
		})
	}

	var pruned int64
	if s.ledger != nil {
		pruned, err = s.ledger.Prune(ctx, cutoff)
		if err != nil {
			s.metrics.RecordLedgerFailure()
			s.log.Warn("retention_ledger_prune_failed", nil, err)
		}
	}

	s.metrics.RecordRetention(removed)
	s.log.Info("retention_complete", map[string]interface{}{
		"removed":     removed,
		"pruned_rows": pruned,
		"cutoff":      cutoff.Format(time.RFC3339),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return removed
}
