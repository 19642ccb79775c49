package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/engine"
)

type fakeEngine struct {
	mu          sync.Mutex
	probeErr    error
	probeCalls  int
	fetchCalls  int
	fetchErrs   []error
	payloadName string
	payloadSize int64
	partialSize int64
	formats     []engine.Format
}

func (f *fakeEngine) Probe(ctx context.Context, url string) (*engine.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &engine.Metadata{ID: "abc", Title: "Test Song", Uploader: "Tester", Duration: 180, URL: url}, nil
}

func (f *fakeEngine) Fetch(ctx context.Context, url string, format engine.Format, outputTemplate string, progress func(engine.Progress)) error {
	f.mu.Lock()
	idx := f.fetchCalls
	f.fetchCalls++
	f.formats = append(f.formats, format)
	f.mu.Unlock()

	name := f.payloadName
	if name == "" {
		name = "Test Song.mp3"
	}
	path := strings.Replace(outputTemplate, "%(title).100s.%(ext)s", name, 1)

	if idx < len(f.fetchErrs) && f.fetchErrs[idx] != nil {
		if f.partialSize > 0 {
			os.WriteFile(path+".part", make([]byte, f.partialSize), 0644)
		}
		return f.fetchErrs[idx]
	}

	if progress != nil {
		progress(engine.Progress{Percent: 50})
	}
	return os.WriteFile(path, make([]byte, f.payloadSize), 0644)
}

func (f *fakeEngine) Search(ctx context.Context, query string, limit int) ([]engine.Metadata, error) {
	return nil, engine.ErrNoResults
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	actions  []string
}

func (n *fakeNotifier) Message(chatID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *fakeNotifier) ChatAction(chatID, action string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

func newTestOrchestrator(t *testing.T, eng engine.Engine, size int64) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	o := New(eng, &fakeNotifier{}, config.DownloadConfig{
		Dir:             dir,
		MaxAttempts:     3,
		RetryBackoffSec: 0,
		MinPayloadBytes: size,
		SettleDelaySec:  0,
	})
	return o, dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetch_Success(t *testing.T) {
	eng := &fakeEngine{payloadSize: 5000}
	o, dir := newTestOrchestrator(t, eng, 1024)

	meta, path, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaAudio, Quality: QualityBest})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if meta.Title != "Test Song" {
		t.Errorf("title = %q, want Test Song", meta.Title)
	}
	if !strings.HasPrefix(filepath.Base(path), "dl_") {
		t.Errorf("payload %q missing token prefix", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("payload missing: %v", err)
	}
	if len(listDir(t, dir)) != 1 {
		t.Errorf("dir should hold exactly the payload, got %v", listDir(t, dir))
	}
}

func TestFetch_UnavailableOnProbeIsTerminal(t *testing.T) {
	eng := &fakeEngine{probeErr: engine.ErrUnavailable}
	o, _ := newTestOrchestrator(t, eng, 1024)

	_, _, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/gone", Type: MediaVideo, Quality: QualityBest})
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if eng.probeCalls != 1 {
		t.Errorf("probe calls = %d, want 1", eng.probeCalls)
	}
	if eng.fetchCalls != 0 {
		t.Errorf("fetch calls = %d, want 0", eng.fetchCalls)
	}
}

func TestFetch_TransientThenSuccess(t *testing.T) {
	transient := errors.New("network timed out")
	eng := &fakeEngine{
		fetchErrs:   []error{transient, transient},
		payloadSize: 5000,
		partialSize: 100,
	}
	o, dir := newTestOrchestrator(t, eng, 1024)

	_, path, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaVideo, Quality: QualityBest})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if eng.fetchCalls != 3 {
		t.Errorf("fetch calls = %d, want 3", eng.fetchCalls)
	}

	// Partial artifacts from failed attempts must have been purged.
	names := listDir(t, dir)
	if len(names) != 1 || names[0] != filepath.Base(path) {
		t.Errorf("dir = %v, want only %q", names, filepath.Base(path))
	}
}

func TestFetch_BlockedRotatesDirective(t *testing.T) {
	eng := &fakeEngine{
		fetchErrs:   []error{engine.ErrBlocked},
		payloadSize: 5000,
	}
	o, _ := newTestOrchestrator(t, eng, 1024)

	_, _, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaVideo, Quality: QualityBest})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(eng.formats) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(eng.formats))
	}
	if eng.formats[0].Selector == eng.formats[1].Selector {
		t.Errorf("blocked retry reused directive %q", eng.formats[0].Selector)
	}
}

func TestFetch_AllAttemptsExhausted(t *testing.T) {
	transient := errors.New("network timed out")
	eng := &fakeEngine{fetchErrs: []error{transient, transient, transient}}
	o, dir := newTestOrchestrator(t, eng, 1024)

	_, _, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaVideo, Quality: QualityFast})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if eng.fetchCalls != 3 {
		t.Errorf("fetch calls = %d, want 3", eng.fetchCalls)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("dir should be empty after terminal failure, got %v", got)
	}
}

func TestFetch_MinSizeBoundary(t *testing.T) {
	// Exactly the threshold: rejected, deleted, never delivered.
	eng := &fakeEngine{payloadSize: 1024}
	o, dir := newTestOrchestrator(t, eng, 1024)

	_, _, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaAudio, Quality: QualityBest})
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("err = %v, want ErrEmptyPayload", err)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("undersized payloads should be deleted, dir = %v", got)
	}

	// One byte over: accepted.
	eng = &fakeEngine{payloadSize: 1025}
	o, _ = newTestOrchestrator(t, eng, 1024)
	_, path, err := o.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/abc", Type: MediaAudio, Quality: QualityBest})
	if err != nil {
		t.Fatalf("1025-byte payload rejected: %v", err)
	}
	if path == "" {
		t.Error("expected a payload path")
	}
}

func TestFetch_ConcurrentRequestsGetDistinctPayloads(t *testing.T) {
	engA := &fakeEngine{payloadSize: 5000, payloadName: "a.mp4"}
	engB := &fakeEngine{payloadSize: 5000, payloadName: "b.mp4"}
	dir := t.TempDir()

	cfg := config.DownloadConfig{Dir: dir, MaxAttempts: 3, MinPayloadBytes: 1024}
	oA := New(engA, &fakeNotifier{}, cfg)
	oB := New(engB, &fakeNotifier{}, cfg)

	var wg sync.WaitGroup
	paths := make([]string, 2)
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, paths[0], errs[0] = oA.Fetch(context.Background(), Request{ChatID: "1", URL: "https://youtu.be/a", Type: MediaVideo, Quality: QualityBest})
	}()
	go func() {
		defer wg.Done()
		_, paths[1], errs[1] = oB.Fetch(context.Background(), Request{ChatID: "2", URL: "https://youtu.be/b", Type: MediaVideo, Quality: QualityBest})
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if paths[0] == paths[1] {
		t.Fatalf("both requests resolved the same payload %q", paths[0])
	}
	if !strings.HasSuffix(paths[0], "a.mp4") || !strings.HasSuffix(paths[1], "b.mp4") {
		t.Errorf("payloads crossed: %q / %q", paths[0], paths[1])
	}
}

func TestNewToken_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := NewToken()
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
