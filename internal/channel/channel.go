package channel

import (
	"context"

	"github.com/masterdcs/mediagram/internal/bus"
)

// Channel is a chat transport that feeds inbound messages onto the bus and
// renders outbound messages back to the user.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// MediaSender is implemented by channels that can upload media payloads
// and signal typing/upload activity.
type MediaSender interface {
	SendMedia(chatID string, kind bus.MediaKind, path, caption, title string) error
	SendAction(chatID, action string) error
}

// BaseChannel carries the pieces every channel shares: its name, the bus it
// publishes to, and the sender allow-list.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]bool
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	allowed := make(map[string]bool, len(allowFrom))
	for _, id := range allowFrom {
		allowed[id] = true
	}
	return BaseChannel{
		name:      name,
		bus:       b,
		allowFrom: allowed,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// IsAllowed reports whether senderID may use the channel. An empty
// allow-list admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	return c.allowFrom[senderID]
}
