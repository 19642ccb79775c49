package sweeper

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reclaims aged entries from the shared download directory. It knows
// nothing about which entries are in use; the retention threshold is the
// safety margin over a request's fetch+verify+upload time.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	cron     *cron.Cron
}

func New(dir string, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{dir: dir, maxAge: maxAge, interval: interval}
}

// Start runs one eager pass with a zero threshold to clear stale state from a
// prior run, then sweeps on the fixed period for the process lifetime.
func (s *Sweeper) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	s.Sweep(0)

	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[sweeper] cycle panic: %v", r)
			}
		}()
		s.Sweep(s.maxAge)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	log.Printf("[sweeper] started, every %s, retention %s", s.interval, s.maxAge)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Sweep deletes regular files older than maxAge and returns how many were
// removed. Per-entry errors are logged and skipped; they never abort the
// cycle.
func (s *Sweeper) Sweep(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("[sweeper] list %s: %v", s.dir, err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("[sweeper] stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("[sweeper] remove %s: %v", entry.Name(), err)
			continue
		}
		deleted++
		log.Printf("[sweeper] deleted %s (%d bytes)", entry.Name(), info.Size())
	}

	if deleted > 0 {
		log.Printf("[sweeper] cleaned %d entries", deleted)
	}
	return deleted
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Printf("[sweeper] stopped")
}
