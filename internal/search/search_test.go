package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/download"
	"github.com/masterdcs/mediagram/internal/engine"
)

type fakeSearchEngine struct {
	results []engine.Metadata
	err     error
	queries []string
}

func (f *fakeSearchEngine) Probe(ctx context.Context, url string) (*engine.Metadata, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSearchEngine) Fetch(ctx context.Context, url string, format engine.Format, outputTemplate string, progress func(engine.Progress)) error {
	return errors.New("not implemented")
}

func (f *fakeSearchEngine) Search(ctx context.Context, query string, limit int) ([]engine.Metadata, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Message(chatID, text string) {
	n.messages = append(n.messages, text)
}

func newTestAdapter(eng engine.Engine, n Notifier, dl Downloader) *Adapter {
	return New(eng, n, config.SearchConfig{Limit: 3, MaxDurationSec: 1800}, dl)
}

func TestRun_DownloadsTopCandidateAsAudio(t *testing.T) {
	eng := &fakeSearchEngine{results: []engine.Metadata{
		{Title: "First Hit", Duration: 200, URL: "https://youtu.be/one"},
		{Title: "Second Hit", Duration: 300, URL: "https://youtu.be/two"},
	}}
	n := &fakeNotifier{}

	var got *download.Request
	a := newTestAdapter(eng, n, func(ctx context.Context, req download.Request) {
		got = &req
	})

	if err := a.Run(context.Background(), "42", "some song"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got == nil {
		t.Fatal("download pipeline was not invoked")
	}
	if got.URL != "https://youtu.be/one" {
		t.Errorf("downloaded %q, want top candidate", got.URL)
	}
	if got.Type != download.MediaAudio || got.Quality != download.QualityBest {
		t.Errorf("profile = %s/%s, want audio/best", got.Type, got.Quality)
	}

	var listed bool
	for _, m := range n.messages {
		if strings.Contains(m, "First Hit") && strings.Contains(m, "Second Hit") {
			listed = true
		}
	}
	if !listed {
		t.Errorf("ranked list never shown, messages = %v", n.messages)
	}
}

func TestRun_FiltersLongAndMissingDurations(t *testing.T) {
	eng := &fakeSearchEngine{results: []engine.Metadata{
		{Title: "Too Long", Duration: 1800, URL: "https://youtu.be/long"},
		{Title: "No Duration", Duration: 0, URL: "https://youtu.be/none"},
		{Title: "Just Right", Duration: 1799, URL: "https://youtu.be/ok"},
	}}
	n := &fakeNotifier{}

	var got *download.Request
	a := newTestAdapter(eng, n, func(ctx context.Context, req download.Request) {
		got = &req
	})

	if err := a.Run(context.Background(), "42", "query"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got == nil || got.URL != "https://youtu.be/ok" {
		t.Fatalf("got %+v, want the only candidate under the ceiling", got)
	}
}

func TestRun_NoResults(t *testing.T) {
	eng := &fakeSearchEngine{err: engine.ErrNoResults}
	n := &fakeNotifier{}
	invoked := false
	a := newTestAdapter(eng, n, func(ctx context.Context, req download.Request) {
		invoked = true
	})

	err := a.Run(context.Background(), "42", "obscure query")
	if !errors.Is(err, engine.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if invoked {
		t.Error("download must not run without candidates")
	}
}

func TestRun_AllFilteredOut(t *testing.T) {
	eng := &fakeSearchEngine{results: []engine.Metadata{
		{Title: "Marathon", Duration: 7200, URL: "https://youtu.be/long"},
	}}
	n := &fakeNotifier{}
	a := newTestAdapter(eng, n, func(ctx context.Context, req download.Request) {
		t.Error("download must not run")
	})

	if err := a.Run(context.Background(), "42", "query"); !errors.Is(err, engine.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestRun_RejectsShortQuery(t *testing.T) {
	eng := &fakeSearchEngine{}
	n := &fakeNotifier{}
	a := newTestAdapter(eng, n, func(ctx context.Context, req download.Request) {
		t.Error("download must not run")
	})

	if err := a.Run(context.Background(), "42", " x "); err == nil {
		t.Fatal("expected error for short query")
	}
	if len(eng.queries) != 0 {
		t.Errorf("engine searched for a too-short query: %v", eng.queries)
	}
}
