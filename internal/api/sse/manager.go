package sse

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/model"
)

// EventSource is a game whose events can be streamed
type EventSource interface {
	ID() model.GameID
	Subscribe() (<-chan model.Event, func())
}

type attachedHub struct {
	hub         *Hub
	unsubscribe func()
}

// HubManager keeps one hub per watched game. A hub is fed by a single
// subscription to the game and is removed when the game is torn down.
type HubManager struct {
	hubs   map[model.GameID]*attachedHub
	mu     sync.Mutex
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.GameID]*attachedHub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// Attach returns the hub for the game, subscribing to it on first use
func (m *HubManager) Attach(src EventSource) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := src.ID()
	if a, ok := m.hubs[id]; ok {
		return a.hub
	}

	hub := NewHub(id, m.logger)
	events, unsubscribe := src.Subscribe()
	m.hubs[id] = &attachedHub{hub: hub, unsubscribe: unsubscribe}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		hub.Run()
	}()
	go func() {
		defer m.wg.Done()
		m.forward(hub, events)
	}()

	m.logger.Debug("sse hub attached", slog.String("game_id", string(id)))
	return hub
}

func (m *HubManager) forward(hub *Hub, events <-chan model.Event) {
	for ev := range events {
		data, err := json.Marshal(response.EventFromModel(ev))
		if err != nil {
			m.logger.Error("failed to encode event",
				slog.String("event", string(ev.Type)),
				slog.String("error", err.Error()))
			continue
		}
		hub.BroadcastEvent(string(ev.Type), data)
	}
	// The game closed its subscription: it has been torn down
	m.remove(hub.gameID, hub)
}

// GetHub returns the hub for a game, or nil if nobody is watching it
func (m *HubManager) GetHub(id model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.hubs[id]; ok {
		return a.hub
	}
	return nil
}

// Remove closes the game's hub and drops its subscription
func (m *HubManager) Remove(id model.GameID) {
	m.remove(id, nil)
}

// remove drops the hub for id; when only is set, only if it is still that hub
func (m *HubManager) remove(id model.GameID, only *Hub) {
	m.mu.Lock()
	a, ok := m.hubs[id]
	if !ok || (only != nil && a.hub != only) {
		m.mu.Unlock()
		return
	}
	delete(m.hubs, id)
	m.mu.Unlock()

	a.unsubscribe()
	a.hub.Close()
	m.logger.Debug("sse hub removed", slog.String("game_id", string(id)))
}

// Count returns the number of live hubs
func (m *HubManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hubs)
}

// Close removes every hub and waits for their goroutines to exit
func (m *HubManager) Close() {
	m.mu.Lock()
	ids := make([]model.GameID, 0, len(m.hubs))
	for id := range m.hubs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Remove(id)
	}
	m.wg.Wait()
}
