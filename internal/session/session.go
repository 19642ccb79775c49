package session

import (
	"sync"

	"github.com/masterdcs/mediagram/internal/download"
)

type Mode int

const (
	Idle Mode = iota
	AwaitingURL
	AwaitingSearch
	Processing
)

func (m Mode) String() string {
	switch m {
	case AwaitingURL:
		return "awaiting-url"
	case AwaitingSearch:
		return "awaiting-search"
	case Processing:
		return "processing"
	default:
		return "idle"
	}
}

// Conversation is one chat's current mode. Type and Quality carry the
// selected profile while a URL is awaited.
type Conversation struct {
	Mode    Mode
	Type    download.MediaType
	Quality download.Quality
}

// Manager owns the per-chat conversation states. All access goes through the
// lock; states are mutated from concurrent request-handling and completion
// contexts.
type Manager struct {
	mu     sync.Mutex
	states map[string]Conversation
}

func NewManager() *Manager {
	return &Manager{states: make(map[string]Conversation)}
}

// Get returns the chat's conversation, Idle when unseen.
func (m *Manager) Get(chatID string) Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[chatID]
}

func (m *Manager) Set(chatID string, c Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = c
}

// Reset returns the chat to Idle. Every dispatch path must end here,
// whatever the outcome; a chat stuck in Processing can never speak again.
func (m *Manager) Reset(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = Conversation{}
}
