// Package session implements a realtime presence and messaging client
// session: a single reconnecting websocket, an online-peer roster, a
// deduplicated conversation log, and a composer that coordinates file
// upload with message dispatch.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrSessionClosed  = errors.New("session closed")
)

// State is the connection lifecycle state. Owned by the Manager; other
// components only read it.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// EventType classifies events published by the Manager.
type EventType string

const (
	EventStateChanged EventType = "state"
	EventPresence     EventType = "presence"
	EventChat         EventType = "chat"
)

// Event is published on the Manager's event channel and consumed by the
// session loop.
type Event struct {
	Type      EventType
	State     State
	OnlineIDs []string
	Message   models.Message
}

// Manager owns the single persistent socket. It dials, demultiplexes
// inbound frames by type, and retries with a fixed delay after every
// close until Close is called.
type Manager struct {
	socketURL string
	delay     time.Duration
	dialer    *websocket.Dialer
	logger    zerolog.Logger
	events    chan Event

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	timer  *time.Timer
	gen    int
	selfID string
	closed bool
}

// NewManager builds a Manager for the given socket base URL. delay is
// the fixed reconnect delay.
func NewManager(socketURL string, delay time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		socketURL: socketURL,
		delay:     delay,
		dialer:    websocket.DefaultDialer,
		logger:    logger.With().Str("component", "conn").Logger(),
		events:    make(chan Event, 256),
	}
}

// Events returns the channel the Manager publishes on. It is closed by
// Close once no further events can be produced.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the socket keyed by the caller's identity. A call
// while a socket is live or a dial or retry is already pending is a
// no-op.
func (m *Manager) Connect(selfID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	if m.state != StateDisconnected && m.state != StateReconnecting {
		m.mu.Unlock()
		return nil
	}
	if m.state == StateReconnecting && m.timer != nil {
		m.mu.Unlock()
		return nil
	}
	m.selfID = selfID
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	go m.dial()
	return nil
}

// Send writes an outbound frame. It fails unless the state is Connected.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.conn == nil {
		return ErrNotConnected
	}
	if err := m.conn.WriteJSON(v); err != nil {
		return err
	}
	observability.IncClientSend()
	return nil
}

// Close tears the session down: the pending retry timer is cancelled and
// the socket is closed without scheduling another attempt.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	var err error
	if m.conn != nil {
		err = m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateDisconnected)
	close(m.events)
	return err
}

func (m *Manager) dial() {
	m.mu.Lock()
	url := m.socketURL + "/" + m.selfID
	m.mu.Unlock()

	conn, _, err := m.dialer.Dial(url, nil)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("url", url).Msg("dial failed")
		m.scheduleRetryLocked()
		m.mu.Unlock()
		return
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.logger.Info().Str("url", url).Msg("connected")
	go m.readLoop(conn, gen)
}

// readLoop reads frames until the socket fails, then hands control back
// to the retry path. A decode failure drops the frame and keeps reading.
func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.logger.Warn().Err(fmt.Errorf("%w: %v", ErrMalformedFrame, err)).Msg("dropping frame")
			observability.IncClientFrame("malformed")
			continue
		}

		switch frame.Type {
		case models.FrameTypePresence:
			observability.IncClientFrame(models.FrameTypePresence)
			m.publish(Event{Type: EventPresence, OnlineIDs: frame.OnlineIDs})
		case models.FrameTypeChat:
			if frame.Message == nil {
				m.logger.Warn().Msg("chat frame without message payload")
				observability.IncClientFrame("malformed")
				continue
			}
			observability.IncClientFrame(models.FrameTypeChat)
			m.publish(Event{Type: EventChat, Message: *frame.Message})
		default:
			// Unknown frame types are ignored for forward compatibility.
			m.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown frame type")
			observability.IncClientFrame("unknown")
		}
	}
}

// handleClose transitions to Reconnecting and schedules exactly one
// retry. Stale generations (a close observed after a newer socket was
// established) are ignored.
func (m *Manager) handleClose(gen int, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.gen {
		return
	}
	m.logger.Warn().Err(cause).Msg("socket closed")
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.scheduleRetryLocked()
}

func (m *Manager) scheduleRetryLocked() {
	m.setStateLocked(StateReconnecting)
	if m.timer != nil {
		return
	}
	observability.IncClientReconnect()
	m.timer = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		m.timer = nil
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.setStateLocked(StateConnecting)
		m.mu.Unlock()
		m.dial()
	})
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	observability.SetClientConnState(s.String())
	ev := Event{Type: EventStateChanged, State: s}
	select {
	case m.events <- ev:
	default:
		m.logger.Warn().Str("state", s.String()).Msg("event channel full, dropping state event")
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.logger.Warn().Str("type", string(ev.Type)).Msg("event channel full, dropping event")
	}
}
