package delivery

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/masterdcs/mediagram/internal/bus"
	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/download"
	"github.com/masterdcs/mediagram/internal/engine"
	"github.com/masterdcs/mediagram/internal/platform"
)

// Uploader is the delivery channel surface.
type Uploader interface {
	SendMedia(chatID string, kind bus.MediaKind, path, caption, title string) error
	Message(chatID, text string)
	ChatAction(chatID, action string)
}

// Orchestrator uploads a verified payload and guarantees the local file is
// gone afterward, whatever the outcome.
type Orchestrator struct {
	uploader Uploader
	attempts int
	pause    time.Duration
	minBytes int64
}

func New(up Uploader, cfg config.DeliveryConfig, minBytes int64) *Orchestrator {
	return &Orchestrator{
		uploader: up,
		attempts: cfg.UploadAttempts,
		pause:    time.Duration(cfg.UploadPauseSec) * time.Second,
		minBytes: minBytes,
	}
}

// Deliver uploads the payload with a caption built from its metadata. The
// payload is re-verified here: it was produced by a different process step
// and is not trusted implicitly.
func (d *Orchestrator) Deliver(req download.Request, meta *engine.Metadata, path string) error {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[delivery] cleanup %s: %v", path, err)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("payload missing: %w", err)
	}
	if info.Size() <= d.minBytes {
		return fmt.Errorf("payload empty or too small (%d bytes)", info.Size())
	}

	title := platform.SanitizeTitle(meta.Title)
	caption := buildCaption(title, meta.Uploader, meta.Duration, info.Size())

	kind := bus.MediaVideo
	if req.Type == download.MediaAudio {
		kind = bus.MediaAudio
	}

	d.uploader.Message(req.ChatID, "📤 <b>Uploading file to Telegram...</b>")
	d.uploader.ChatAction(req.ChatID, "upload_document")

	var lastErr error
	for attempt := 0; attempt < d.attempts; attempt++ {
		if attempt > 0 {
			d.uploader.Message(req.ChatID, fmt.Sprintf("⚠️ Upload failed, retrying... (Attempt %d)", attempt+1))
			time.Sleep(d.pause)
		}
		if err := d.uploader.SendMedia(req.ChatID, kind, path, caption, title); err != nil {
			log.Printf("[delivery] upload attempt %d failed: %v", attempt+1, err)
			lastErr = err
			continue
		}
		d.uploader.Message(req.ChatID, "✅ <b>Upload successful!</b>")
		return nil
	}

	// Degrade to the generic document channel once.
	if err := d.uploader.SendMedia(req.ChatID, bus.MediaDocument, path, caption, title); err != nil {
		log.Printf("[delivery] document fallback failed: %v", err)
		return fmt.Errorf("upload failed: %w", lastErr)
	}
	d.uploader.Message(req.ChatID, "✅ <b>Upload completed as document!</b>")
	return nil
}

func buildCaption(title, uploader string, duration int, size int64) string {
	if uploader == "" {
		uploader = "Unknown"
	}
	return fmt.Sprintf(`✅ <b>Download Complete!</b>

🎬 <b>Title:</b> %s
👤 <b>Uploader:</b> %s
⏱️ <b>Duration:</b> %s
📊 <b>Size:</b> %s`,
		title, uploader, platform.FormatDuration(duration), humanize.Bytes(uint64(size)))
}
