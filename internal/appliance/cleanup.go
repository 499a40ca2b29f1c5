package appliance

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// StartCleanup launches a goroutine that deletes .wav and .txt files under
// the recordings directory older than maxAgeDays, checked every interval,
// until ctx is cancelled. It is a no-op if maxAgeDays is non-positive.
func (s *Server) StartCleanup(ctx context.Context, interval time.Duration) {
	if s.maxAgeDays <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCleanup()
			}
		}
	}()
}

func (s *Server) runCleanup() {
	if s.maxAgeDays <= 0 {
		return
	}
	cutoff := s.now().AddDate(0, 0, -s.maxAgeDays)

	entries, err := os.ReadDir(s.recordingsDir)
	if err != nil {
		s.logger.Warn("cleanup: read recordings directory failed", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".wav" && ext != ".txt" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.recordingsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("cleanup: remove failed", "error", err, "path", path)
			continue
		}
		s.logger.Info("cleanup: removed expired recording artifact", "path", path)
	}
}
