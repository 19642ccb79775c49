package delivery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/masterdcs/mediagram/internal/bus"
	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/download"
	"github.com/masterdcs/mediagram/internal/engine"
)

type fakeUploader struct {
	mu       sync.Mutex
	fails    int // SendMedia calls that fail before succeeding
	calls    []bus.MediaKind
	captions []string
	messages []string
}

func (u *fakeUploader) SendMedia(chatID string, kind bus.MediaKind, path, caption, title string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, kind)
	u.captions = append(u.captions, caption)
	if len(u.calls) <= u.fails {
		return errors.New("upload failed")
	}
	return nil
}

func (u *fakeUploader) Message(chatID, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.messages = append(u.messages, text)
}

func (u *fakeUploader) ChatAction(chatID, action string) {}

func writePayload(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dl_123_track.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestDelivery(up Uploader) *Orchestrator {
	return New(up, config.DeliveryConfig{UploadAttempts: 2, UploadPauseSec: 0}, 1024)
}

var testMeta = &engine.Metadata{Title: "Test Song", Uploader: "Tester", Duration: 185}

func TestDeliver_AudioSuccess(t *testing.T) {
	up := &fakeUploader{}
	d := newTestDelivery(up)
	path := writePayload(t, 5000)

	err := d.Deliver(download.Request{ChatID: "1", Type: download.MediaAudio}, testMeta, path)
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if len(up.calls) != 1 || up.calls[0] != bus.MediaAudio {
		t.Errorf("calls = %v, want [audio]", up.calls)
	}
	if !strings.Contains(up.captions[0], "Test Song") {
		t.Errorf("caption missing title: %q", up.captions[0])
	}
	if !strings.Contains(up.captions[0], "3:05") {
		t.Errorf("caption missing duration: %q", up.captions[0])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("payload should be deleted after delivery")
	}
}

func TestDeliver_RetriesThenDocumentFallback(t *testing.T) {
	up := &fakeUploader{fails: 2}
	d := newTestDelivery(up)
	path := writePayload(t, 5000)

	err := d.Deliver(download.Request{ChatID: "1", Type: download.MediaVideo}, testMeta, path)
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	want := []bus.MediaKind{bus.MediaVideo, bus.MediaVideo, bus.MediaDocument}
	if len(up.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", up.calls, want)
	}
	for i, k := range want {
		if up.calls[i] != k {
			t.Errorf("call %d = %v, want %v", i, up.calls[i], k)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("payload should be deleted after delivery")
	}
}

func TestDeliver_AllChannelsFail_StillCleansUp(t *testing.T) {
	up := &fakeUploader{fails: 3}
	d := newTestDelivery(up)
	path := writePayload(t, 5000)

	err := d.Deliver(download.Request{ChatID: "1", Type: download.MediaVideo}, testMeta, path)
	if err == nil {
		t.Fatal("expected error when every upload fails")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("payload must be deleted even when delivery fails")
	}
}

func TestDeliver_RejectsUndersizedPayload(t *testing.T) {
	up := &fakeUploader{}
	d := newTestDelivery(up)
	path := writePayload(t, 500)

	err := d.Deliver(download.Request{ChatID: "1", Type: download.MediaAudio}, testMeta, path)
	if err == nil {
		t.Fatal("expected error for undersized payload")
	}
	if len(up.calls) != 0 {
		t.Errorf("undersized payload must never reach the channel, calls = %v", up.calls)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("undersized payload should be deleted")
	}
}

func TestDeliver_MissingPayload(t *testing.T) {
	up := &fakeUploader{}
	d := newTestDelivery(up)

	err := d.Deliver(download.Request{ChatID: "1", Type: download.MediaAudio}, testMeta, "/nonexistent/file")
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
	if len(up.calls) != 0 {
		t.Errorf("no uploads expected, calls = %v", up.calls)
	}
}
