package session

import (
	"strings"
	"sync"

	"chat-client/internal/models"
)

// Tracker maintains the online flag for every known peer from periodic
// roster broadcasts. Peers keep the order of the directory fetch.
type Tracker struct {
	mu    sync.RWMutex
	peers []models.Peer
	index map[string]int
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{index: make(map[string]int)}
}

// SetPeers replaces the known peer set, excluding the caller's own
// entry. Online flags reset until the next roster broadcast.
func (t *Tracker) SetPeers(peers []models.Peer, selfID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers = t.peers[:0]
	t.index = make(map[string]int, len(peers))
	for _, p := range peers {
		if p.ID == selfID {
			continue
		}
		p.IsOnline = false
		t.index[p.ID] = len(t.peers)
		t.peers = append(t.peers, p)
	}
}

// ApplySnapshot replaces the online flag of every known peer from a
// full roster snapshot: peers absent from the broadcast go offline.
func (t *Tracker) ApplySnapshot(onlineIDs []string) {
	online := make(map[string]struct{}, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.peers {
		_, ok := online[t.peers[i].ID]
		t.peers[i].IsOnline = ok
	}
}

// Peers returns a copy of the known peers in directory order.
func (t *Tracker) Peers() []models.Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Peer, len(t.peers))
	copy(out, t.peers)
	return out
}

// Peer looks up a single peer by id.
func (t *Tracker) Peer(id string) (models.Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return models.Peer{}, false
	}
	return t.peers[i], true
}

// Search filters peers by a case-insensitive substring of name or email.
func (t *Tracker) Search(term string) []models.Peer {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return t.Peers()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []models.Peer
	for _, p := range t.peers {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Email), term) {
			out = append(out, p)
		}
	}
	return out
}
