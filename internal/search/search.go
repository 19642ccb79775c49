package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/download"
	"github.com/masterdcs/mediagram/internal/engine"
	"github.com/masterdcs/mediagram/internal/platform"
)

// Notifier delivers user-facing search messages.
type Notifier interface {
	Message(chatID, text string)
}

// Downloader runs the fetch+deliver pipeline for the picked candidate.
type Downloader func(ctx context.Context, req download.Request)

// Adapter turns a free-text query into a download of the top-ranked result.
type Adapter struct {
	engine      engine.Engine
	notifier    Notifier
	limit       int
	maxDuration int
	download    Downloader
}

func New(eng engine.Engine, n Notifier, cfg config.SearchConfig, dl Downloader) *Adapter {
	return &Adapter{
		engine:      eng,
		notifier:    n,
		limit:       cfg.Limit,
		maxDuration: cfg.MaxDurationSec,
		download:    dl,
	}
}

// Run searches for query, shows the ranked candidates, and downloads the
// first one as audio. The requester does not get to pick among them.
func (a *Adapter) Run(ctx context.Context, chatID, query string) error {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		a.notifier.Message(chatID, "❌ <b>Please enter at least 2 characters</b>")
		return fmt.Errorf("query too short")
	}

	a.notifier.Message(chatID, fmt.Sprintf("🔍 <b>Searching for:</b> <code>%s</code>", query))

	results, err := a.engine.Search(ctx, query, a.limit)
	if err != nil {
		if errors.Is(err, engine.ErrNoResults) {
			a.notifier.Message(chatID, "❌ <b>No results found</b>")
			return err
		}
		a.notifier.Message(chatID, fmt.Sprintf("❌ <b>Search error:</b> %s", truncate(err.Error(), 100)))
		return err
	}

	candidates := filterByDuration(results, a.maxDuration)
	if len(candidates) == 0 {
		a.notifier.Message(chatID, "❌ <b>No valid results found</b>")
		return engine.ErrNoResults
	}
	if len(candidates) > a.limit {
		candidates = candidates[:a.limit]
	}

	var sb strings.Builder
	sb.WriteString("🎵 <b>Top Results:</b>\n\n")
	for i, c := range candidates {
		title := c.Title
		if title == "" {
			title = "Unknown Title"
		}
		fmt.Fprintf(&sb, "%d. %s\n   ⏱️ %s\n\n", i+1, title, platform.FormatDuration(c.Duration))
	}
	sb.WriteString("⬇️ <b>Downloading first result...</b>")
	a.notifier.Message(chatID, sb.String())

	a.download(ctx, download.Request{
		ChatID:  chatID,
		URL:     candidates[0].URL,
		Type:    download.MediaAudio,
		Quality: download.QualityBest,
	})
	return nil
}

// filterByDuration drops candidates whose duration is missing or at or above
// the ceiling.
func filterByDuration(results []engine.Metadata, maxSec int) []engine.Metadata {
	kept := make([]engine.Metadata, 0, len(results))
	for _, r := range results {
		if r.Duration <= 0 || r.Duration >= maxSec {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
