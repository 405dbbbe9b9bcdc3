package session

import (
	"sync"

	"chat-client/internal/models"
)

// Store holds the append-only message log for the session,
// deduplicated by message id. Arrival order is preserved.
type Store struct {
	mu   sync.RWMutex
	msgs []models.Message
	seen map[string]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Ingest appends a message unless its id is already present. Returns
// whether the message was stored. The first arrival wins; redundant
// deliveries of the same id collapse to one copy.
func (s *Store) Ingest(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.msgs = append(s.msgs, msg)
	return true
}

// ReplaceHistory installs a fetched history as the base of the log.
// Messages ingested from the live connection while the fetch was
// outstanding are retained: anything already stored whose id is not in
// the history is re-appended in its original arrival order, so the two
// paths merge by id instead of the history overwriting live arrivals.
func (s *Store) ReplaceHistory(history []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]models.Message, 0, len(history)+len(s.msgs))
	seen := make(map[string]struct{}, len(history)+len(s.msgs))
	for _, msg := range history {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}
	for _, msg := range s.msgs {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		merged = append(merged, msg)
	}

	s.msgs = merged
	s.seen = seen
}

// ViewFor projects the conversation between self and one peer: every
// stored message whose sender/receiver pair is a permutation of the two
// ids, in arrival order.
func (s *Store) ViewFor(peerID, selfID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for _, msg := range s.msgs {
		if (msg.SenderID == selfID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == selfID) {
			out = append(out, msg)
		}
	}
	return out
}

// UnreadCounts returns, per peer, how many stored inbound messages are
// still unread.
func (s *Store) UnreadCounts(selfID string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, msg := range s.msgs {
		if msg.ReceiverID == selfID && !msg.Read {
			counts[msg.SenderID]++
		}
	}
	return counts
}

// MarkRead flags every stored message from peerID to selfID as read.
func (s *Store) MarkRead(peerID, selfID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].SenderID == peerID && s.msgs[i].ReceiverID == selfID {
			s.msgs[i].Read = true
		}
	}
}

// Len reports the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}
