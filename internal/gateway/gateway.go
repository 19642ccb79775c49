package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/masterdcs/mediagram/internal/bus"
	"github.com/masterdcs/mediagram/internal/channel"
	"github.com/masterdcs/mediagram/internal/config"
	"github.com/masterdcs/mediagram/internal/delivery"
	"github.com/masterdcs/mediagram/internal/download"
	"github.com/masterdcs/mediagram/internal/engine"
	"github.com/masterdcs/mediagram/internal/platform"
	"github.com/masterdcs/mediagram/internal/search"
	"github.com/masterdcs/mediagram/internal/session"
	"github.com/masterdcs/mediagram/internal/sweeper"
	"github.com/masterdcs/mediagram/internal/worker"
)

const defaultChannel = "telegram"

// Options for creating a Gateway. Engine and Media allow injection for
// testing; a nil Media builds the real channel manager.
type Options struct {
	Engine     engine.Engine
	Media      channel.MediaSender
	SignalChan chan os.Signal
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	sessions   *session.Manager
	engine     engine.Engine
	channels   *channel.ChannelManager
	io         *userIO
	downloads  *download.Orchestrator
	deliver    *delivery.Orchestrator
	search     *search.Adapter
	sweeper    *sweeper.Sweeper
	pool       *worker.Pool
	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{
		cfg:        cfg,
		bus:        bus.NewMessageBus(config.DefaultBufSize),
		sessions:   session.NewManager(),
		signalChan: opts.SignalChan,
	}

	g.engine = opts.Engine
	if g.engine == nil {
		g.engine = engine.NewYtDlp(cfg.Engine.YtDlpPath)
	}

	media := opts.Media
	if media == nil {
		chMgr, err := channel.NewChannelManager(cfg.Telegram, g.bus)
		if err != nil {
			return nil, fmt.Errorf("create channel manager: %w", err)
		}
		g.channels = chMgr
		media = chMgr.Media(defaultChannel)
	}
	g.io = &userIO{bus: g.bus, media: media}

	g.downloads = download.New(g.engine, g.io, cfg.Download)
	g.deliver = delivery.New(g.io, cfg.Delivery, cfg.Download.MinPayloadBytes)
	g.search = search.New(g.engine, g.io, cfg.Search, g.runDownload)
	g.sweeper = sweeper.New(
		cfg.Download.Dir,
		time.Duration(cfg.Sweeper.RetentionMin)*time.Minute,
		time.Duration(cfg.Sweeper.IntervalMin)*time.Minute,
	)
	g.pool = worker.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize)

	return g, nil
}

// userIO is the user-facing surface handed to the orchestrators: text goes
// through the bus, media and chat actions through the channel's uploader.
type userIO struct {
	bus   *bus.MessageBus
	media channel.MediaSender
}

func (u *userIO) Message(chatID, text string) {
	u.bus.Outbound <- bus.OutboundMessage{
		Channel: defaultChannel,
		ChatID:  chatID,
		Content: text,
	}
}

func (u *userIO) ChatAction(chatID, action string) {
	if u.media == nil {
		return
	}
	if err := u.media.SendAction(chatID, action); err != nil {
		log.Printf("[gateway] chat action failed: %v", err)
	}
}

func (u *userIO) SendMedia(chatID string, kind bus.MediaKind, path, caption, title string) error {
	if u.media == nil {
		return fmt.Errorf("no media channel available")
	}
	return u.media.SendMedia(chatID, kind, path, caption, title)
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := os.MkdirAll(g.cfg.Download.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	go g.bus.DispatchOutbound(ctx)

	if g.channels != nil {
		if err := g.channels.StartAll(ctx); err != nil {
			return fmt.Errorf("start channels: %w", err)
		}
		log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())
	}

	if err := g.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	g.pool.Start(ctx)

	go g.processLoop(ctx)

	log.Printf("[gateway] running, download dir %s", g.cfg.Download.Dir)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) Shutdown() error {
	g.pool.Stop()
	g.sweeper.Stop()
	if g.channels != nil {
		_ = g.channels.StopAll()
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))
			g.handleInbound(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	chatID := msg.ChatID
	conv := g.sessions.Get(chatID)

	switch conv.Mode {
	case session.Processing:
		g.io.Message(chatID, "⏳ <b>Still working on your previous request...</b>")
		return
	case session.AwaitingURL:
		g.handleURL(ctx, chatID, msg.Content, conv)
		return
	case session.AwaitingSearch:
		g.handleSearchQuery(ctx, chatID, msg.Content)
		return
	}

	switch classifyCommand(msg.Content) {
	case CmdStart:
		g.showMenu(chatID)
	case CmdVideo:
		g.awaitURL(chatID, download.MediaVideo, download.QualityBest, "High Quality Video Download")
	case CmdFast:
		g.awaitURL(chatID, download.MediaVideo, download.QualityFast, "Fast Download (Lower Quality)")
	case CmdAudio:
		g.awaitURL(chatID, download.MediaAudio, download.QualityBest, "Audio Extraction from Video")
	case CmdHD:
		g.awaitURL(chatID, download.MediaVideo, download.QualityHD, "HD Video Download (1080p)")
	case CmdSearch:
		g.sessions.Set(chatID, session.Conversation{Mode: session.AwaitingSearch})
		g.bus.Outbound <- bus.OutboundMessage{
			Channel:        defaultChannel,
			ChatID:         chatID,
			Content:        "🎵 <b>Music Search</b>\n\nSend song lyrics or title to search:",
			RemoveKeyboard: true,
		}
	case CmdStatus:
		g.io.Message(chatID, g.statusText())
	case CmdHelp:
		g.io.Message(chatID, helpText)
	default:
		g.showMenu(chatID)
	}
}

func (g *Gateway) awaitURL(chatID string, t download.MediaType, q download.Quality, desc string) {
	g.sessions.Set(chatID, session.Conversation{
		Mode:    session.AwaitingURL,
		Type:    t,
		Quality: q,
	})

	instructions := fmt.Sprintf(`📋 <b>%s</b>

🔗 <b>Send the video URL now</b>

🌐 <b>Supported Platforms:</b>
• YouTube, Instagram, TikTok
• Facebook, Twitter, SoundCloud
• Vimeo, DailyMotion

<code>Paste your URL below...</code>`, desc)

	g.bus.Outbound <- bus.OutboundMessage{
		Channel:        defaultChannel,
		ChatID:         chatID,
		Content:        instructions,
		RemoveKeyboard: true,
	}
}

func (g *Gateway) handleURL(ctx context.Context, chatID, text string, conv session.Conversation) {
	url := strings.TrimSpace(text)

	if !platform.IsSupportedURL(url) {
		g.io.Message(chatID, "❌ <b>Unsupported URL</b>\n\nSupported platforms: YouTube, Instagram, TikTok, Facebook, Twitter, SoundCloud, etc.")
		g.sessions.Reset(chatID)
		g.showMenu(chatID)
		return
	}

	req := download.Request{
		ChatID:  chatID,
		URL:     url,
		Type:    conv.Type,
		Quality: conv.Quality,
	}
	g.dispatch(chatID, func() {
		g.runDownload(ctx, req)
	})
}

func (g *Gateway) handleSearchQuery(ctx context.Context, chatID, text string) {
	query := strings.TrimSpace(text)
	g.dispatch(chatID, func() {
		if err := g.search.Run(ctx, chatID, query); err != nil {
			log.Printf("[gateway] search for chat %s: %v", chatID, err)
		}
	})
}

// dispatch moves the chat to Processing and hands the job to the pool. The
// chat returns to Idle and sees the menu again on every outcome, panics
// included.
func (g *Gateway) dispatch(chatID string, job func()) {
	g.sessions.Set(chatID, session.Conversation{Mode: session.Processing})

	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[gateway] job panic for chat %s: %v", chatID, r)
			}
			g.sessions.Reset(chatID)
			g.showMenu(chatID)
		}()
		job()
	}

	if err := g.pool.Submit(wrapped); err != nil {
		g.sessions.Reset(chatID)
		if errors.Is(err, worker.ErrQueueFull) {
			g.io.Message(chatID, "⚠️ <b>Server busy</b> - Too many downloads in flight. Please try again in a moment.")
			return
		}
		log.Printf("[gateway] submit job for chat %s: %v", chatID, err)
		g.io.Message(chatID, "❌ <b>Could not start your request.</b> Please try again.")
	}
}

func (g *Gateway) runDownload(ctx context.Context, req download.Request) {
	meta, path, err := g.downloads.Fetch(ctx, req)
	if err != nil {
		g.io.Message(req.ChatID, fetchErrorText(err))
		return
	}

	if err := g.deliver.Deliver(req, meta, path); err != nil {
		log.Printf("[gateway] deliver for chat %s: %v", req.ChatID, err)
	}
}

func fetchErrorText(err error) string {
	switch {
	case errors.Is(err, engine.ErrUnavailable):
		return "❌ <b>Video unavailable</b> - The video may be private, deleted, or restricted."
	case errors.Is(err, engine.ErrBlocked):
		return "❌ <b>Access blocked</b> - The server is blocking requests. Please try a different video."
	case errors.Is(err, download.ErrEmptyPayload):
		return "❌ <b>No content received</b> - The download completed but the file was empty."
	default:
		return "❌ <b>Download error:</b>\n" + truncate(err.Error(), 150)
	}
}

func (g *Gateway) showMenu(chatID string) {
	welcome := `🎉 <b>Welcome to MasTerDCS</b>

⚡ <b>Available Features:</b>

• <b>Download Video</b> - High quality (720p)
• <b>Fast Download</b> - Lower quality for speed
• <b>Audio Only</b> - Extract audio from videos
• <b>Search Music</b> - Find songs by lyrics/name

<code>Choose your desired option below 👇</code>`

	g.bus.Outbound <- bus.OutboundMessage{
		Channel: defaultChannel,
		ChatID:  chatID,
		Content: welcome,
		Keyboard: [][]string{
			{menuVideo, menuFast},
			{menuAudio, menuSearch},
			{menuStatus, menuHelp},
		},
	}
}

func (g *Gateway) statusText() string {
	var files int
	var bytes int64
	if entries, err := os.ReadDir(g.cfg.Download.Dir); err == nil {
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			files++
			bytes += info.Size()
		}
	}

	return fmt.Sprintf(`📊 <b>System Status</b>

✅ <b>All Systems Operational</b>

📦 <b>Storage:</b> %d file(s), %s
⚙️ <b>Jobs:</b> %d active, %d queued

🌐 <b>Platform Support:</b>
• YouTube, Instagram, TikTok
• Facebook, Twitter, SoundCloud
• Vimeo, DailyMotion`,
		files, humanize.Bytes(uint64(bytes)), g.pool.Active(), g.pool.Queued())
}

const helpText = `🛠️ <b>Media Bot - Help Guide</b>

⚡ <b>Download Options:</b>
• <b>Download Video</b> - High quality with verification
• <b>Fast Download</b> - Lower quality, faster download
• <b>Audio Only</b> - Extract audio from videos
• /hd - HD quality (1080p)

🔍 <b>Music Search:</b>
• Search by lyrics or song title
• Automatic download of best match

💡 <b>Tips:</b>
• If download fails, it will auto-retry
• Files are verified before sending
• Large videos may take longer

<code>Choose any option from the main menu!</code>`

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
