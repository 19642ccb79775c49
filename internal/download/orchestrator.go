package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/engine"
	"github.com/masterdcs/mediagram/internal/platform"
)

// ErrEmptyPayload means the fetch finished but left no file above the
// minimum size behind.
var ErrEmptyPayload = errors.New("no valid payload found")

// Notifier delivers user-facing progress messages during a fetch.
type Notifier interface {
	Message(chatID, text string)
	ChatAction(chatID, action string)
}

// Orchestrator drives a bounded retry loop over probe, fetch, discovery and
// verification against the shared download directory.
type Orchestrator struct {
	engine   engine.Engine
	notifier Notifier
	dir      string
	policy   Policy
	minBytes int64
	settle   time.Duration
	rand     func() float64
}

func New(eng engine.Engine, n Notifier, cfg config.DownloadConfig) *Orchestrator {
	return &Orchestrator{
		engine:   eng,
		notifier: n,
		dir:      cfg.Dir,
		policy: Policy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     time.Duration(cfg.RetryBackoffSec) * time.Second,
		},
		minBytes: cfg.MinPayloadBytes,
		settle:   time.Duration(cfg.SettleDelaySec) * time.Second,
		rand:     rand.Float64,
	}
}

// Fetch resolves req to a verified payload on disk. On success the caller
// owns the returned path; on failure all artifacts matching this request's
// token have been purged.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (*engine.Metadata, string, error) {
	token := NewToken()
	plan := formatPlan(req.Type, req.Quality)

	var meta *engine.Metadata
	var payload string

	err := o.policy.Run(ctx, func(attempt int) error {
		if attempt == 0 {
			o.notifier.Message(req.ChatID, "🔍 <b>Starting download process...</b>")
		} else {
			o.notifier.Message(req.ChatID, fmt.Sprintf("🔄 Retry attempt %d/%d...", attempt+1, o.policy.MaxAttempts))
		}

		m, err := o.engine.Probe(ctx, req.URL)
		if err != nil {
			if errors.Is(err, engine.ErrUnavailable) {
				return Terminal(err)
			}
			return fmt.Errorf("cannot access content: %w", err)
		}
		meta = m

		o.notifier.Message(req.ChatID, fmt.Sprintf(
			"📥 <b>Downloading:</b> %s\n⏱️ <b>Duration:</b> %s",
			platform.SanitizeTitle(m.Title), platform.FormatDuration(m.Duration)))

		format := plan[min(attempt, len(plan)-1)]
		template := filepath.Join(o.dir, token+"_%(title).100s.%(ext)s")

		if err := o.engine.Fetch(ctx, req.URL, format, template, o.progressFunc(req)); err != nil {
			o.purge(token)
			if errors.Is(err, engine.ErrUnavailable) {
				return Terminal(err)
			}
			// Blocked and transient failures both retry; the next attempt
			// picks the next directive in the plan.
			return err
		}

		// Engines may finish writing asynchronously.
		time.Sleep(o.settle)

		path, err := o.discover(token)
		if err != nil {
			o.purge(token)
			return err
		}
		payload = path
		return nil
	})
	if err != nil {
		o.purge(token)
		return nil, "", err
	}
	return meta, payload, nil
}

// discover globs the shared directory for this request's token and returns
// the first entry above the minimum size. Undersized entries are deleted on
// sight. The tokened match is mandatory: there is no newest-file fallback,
// which under concurrency could hand back another request's file.
func (o *Orchestrator) discover(token string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(o.dir, token+"_*"))
	if err != nil {
		return "", fmt.Errorf("glob payloads: %w", err)
	}

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			log.Printf("[download] stat %s: %v", path, err)
			continue
		}
		if info.Size() <= o.minBytes {
			log.Printf("[download] discarding undersized payload %s (%d bytes)", path, info.Size())
			if err := os.Remove(path); err != nil {
				log.Printf("[download] remove undersized payload %s: %v", path, err)
			}
			continue
		}
		return path, nil
	}
	return "", ErrEmptyPayload
}

// purge removes every artifact matching the token so a later attempt's
// discovery cannot pick up stale partial data.
func (o *Orchestrator) purge(token string) {
	matches, err := filepath.Glob(filepath.Join(o.dir, token+"_*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[download] purge %s: %v", path, err)
		}
	}
}

func (o *Orchestrator) progressFunc(req Request) func(engine.Progress) {
	action := "upload_video"
	if req.Type == MediaAudio {
		action = "upload_voice"
	}
	return func(engine.Progress) {
		// Occasional, not per-callback, to avoid flooding the channel.
		if o.rand() < 0.1 {
			o.notifier.ChatAction(req.ChatID, action)
		}
	}
}
