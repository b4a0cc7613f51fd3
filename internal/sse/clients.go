// Package sse fans server-sent events out to clients subscribed to a topic.
package sse

import (
	"sync"

	"github.com/debemdeboas/the-press/internal/model"
	"github.com/rs/zerolog"
)

var sseLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

// Topics a client can subscribe to.
func PostTopic(id model.PostID) string {
	return "post:" + string(id)
}

func DraftsTopic(owner model.UserID) string {
	return "drafts:" + string(owner)
}

const clientBuffer = 8

type Client struct {
	Msg   chan string
	Topic string
}

func NewClient(topic string) *Client {
	return &Client{Msg: make(chan string, clientBuffer), Topic: topic}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

// Delete unregisters client and closes its channel. Deleting twice is a no-op.
func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Count(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for client := range s.clients {
		if client.Topic == topic {
			n++
		}
	}
	return n
}

// Broadcast sends msg to every client on topic without blocking. Clients with a
// full buffer miss the message. It returns the number of clients reached.
func (s *SSEClients) Broadcast(topic, msg string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for client := range s.clients {
		if client.Topic != topic {
			continue
		}
		select {
		case client.Msg <- msg:
			sent++
		default:
			sseLogger.Warn().Str("topic", topic).Msg("Dropped event for slow client")
		}
	}
	return sent
}
