package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-client/internal/api"
	"chat-client/internal/models"
)

// Identity is the authenticated user the session belongs to. It is
// passed explicitly at construction and never mutated.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Session wires the connection manager, presence tracker, conversation
// store and composer into one client session. A single loop consumes
// the manager's event channel and applies roster snapshots and chat
// ingests, so frame handling is ordered and observable.
type Session struct {
	self     Identity
	api      *api.Client
	conn     *Manager
	tracker  *Tracker
	store    *Store
	composer *Composer
	logger   zerolog.Logger

	mu       sync.Mutex
	selected string

	wg sync.WaitGroup
}

// New builds a Session for the given identity over the REST client and
// socket URL. reconnectDelay is the fixed retry delay of the manager.
func New(self Identity, apiClient *api.Client, socketURL string, reconnectDelay time.Duration, logger zerolog.Logger) *Session {
	conn := NewManager(socketURL, reconnectDelay, logger)
	return &Session{
		self:     self,
		api:      apiClient,
		conn:     conn,
		tracker:  NewTracker(),
		store:    NewStore(),
		composer: NewComposer(apiClient, conn),
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// Start fetches the peer directory, connects the socket and begins
// consuming events. The directory fetch failing is surfaced to the
// caller; the socket keeps retrying on its own.
func (s *Session) Start(ctx context.Context) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return err
	}

	peers := make([]models.Peer, 0, len(users))
	for _, u := range users {
		peers = append(peers, models.Peer{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	s.tracker.SetPeers(peers, s.self.ID)

	if err := s.conn.Connect(s.self.ID); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.loop()
	return nil
}

func (s *Session) loop() {
	defer s.wg.Done()
	for ev := range s.conn.Events() {
		switch ev.Type {
		case EventStateChanged:
			s.logger.Info().Str("state", ev.State.String()).Msg("connection state changed")
		case EventPresence:
			s.tracker.ApplySnapshot(ev.OnlineIDs)
		case EventChat:
			if s.store.Ingest(ev.Message) {
				s.logger.Debug().Str("id", ev.Message.ID).Str("sender", ev.Message.SenderID).Msg("message ingested")
			}
		}
	}
}

// SelectPeer makes peerID the active conversation and loads its history
// from the backend. Live frames ingested while the fetch was in flight
// survive the replace (merge by id).
func (s *Session) SelectPeer(ctx context.Context, peerID string) error {
	s.mu.Lock()
	s.selected = peerID
	s.mu.Unlock()

	history, err := s.api.GetHistory(ctx, peerID)
	if err != nil {
		return err
	}

	msgs := make([]models.Message, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, models.Message{
			ID:         h.ID,
			SenderID:   h.SenderID,
			ReceiverID: h.ReceiverID,
			Body:       h.Body,
			FileURL:    h.FileURL,
			FileType:   h.FileType,
			FileName:   h.FileName,
			Read:       true,
			Timestamp:  h.Timestamp,
		})
	}
	s.store.ReplaceHistory(msgs)
	s.store.MarkRead(peerID, s.self.ID)
	return nil
}

// SelectedPeer returns the active conversation peer, if any.
func (s *Session) SelectedPeer() (models.Peer, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return models.Peer{}, false
	}
	return s.tracker.Peer(id)
}

// Send composes a message to the currently selected peer. The target is
// captured at call time: re-selecting while an upload is in flight does
// not redirect the send.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	peerID := s.selected
	s.mu.Unlock()
	return s.composer.SendComposed(ctx, peerID, text)
}

// StageFile delegates to the composer.
func (s *Session) StageFile(f StagedFile) error { return s.composer.StageFile(f) }

// CancelStaged delegates to the composer.
func (s *Session) CancelStaged() { s.composer.CancelStaged() }

// Staged delegates to the composer.
func (s *Session) Staged() (StagedFile, bool) { return s.composer.Staged() }

// Conversation returns the view of the active conversation.
func (s *Session) Conversation() []models.Message {
	s.mu.Lock()
	peerID := s.selected
	s.mu.Unlock()
	if peerID == "" {
		return nil
	}
	return s.store.ViewFor(peerID, s.self.ID)
}

// Peers returns the roster in directory order.
func (s *Session) Peers() []models.Peer { return s.tracker.Peers() }

// SearchPeers filters the roster by name or email substring.
func (s *Session) SearchPeers(term string) []models.Peer { return s.tracker.Search(term) }

// UnreadCounts returns unread inbound messages per peer.
func (s *Session) UnreadCounts() map[string]int { return s.store.UnreadCounts(s.self.ID) }

// State reports the connection state.
func (s *Session) State() State { return s.conn.State() }

// Self returns the session identity.
func (s *Session) Self() Identity { return s.self }

// Close tears the session down: the reconnect timer is cancelled, the
// socket closed, and the event loop drained.
func (s *Session) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
