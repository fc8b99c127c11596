package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/logging"
)

// Connection lifecycle events published next to the server's events.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

const (
	defaultReconnectInterval = 2 * time.Second
	defaultEventBuffer       = 256
	defaultSendBuffer        = 64
	writeWait                = 10 * time.Second
	defaultPongWait          = 60 * time.Second
	maxMessageSize           = 64 << 10
)

var (
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("realtime channel closed")
	// ErrSendQueueFull is returned when outgoing events pile up while disconnected.
	ErrSendQueueFull = errors.New("realtime send queue full")
)

// RealtimeConfig configures a realtime connection.
type RealtimeConfig struct {
	URL               string
	Username          string
	ReconnectInterval time.Duration
	PongWait          time.Duration
	EventBuffer       int
	SendBuffer        int
	Dialer            *websocket.Dialer
}

// Realtime keeps a websocket to the server open, reconnecting until closed.
// On every (re)connect it announces the user and rejoins the last room.
type Realtime struct {
	cfg    RealtimeConfig
	dialer *websocket.Dialer
	log    zerolog.Logger

	events chan chat.Event
	send   chan chat.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	room string
}

// Connect starts the connection loop. It returns immediately; connection
// progress is reported through Events.
func Connect(ctx context.Context, cfg RealtimeConfig) *Realtime {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: DefaultTimeout}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Realtime{
		cfg:    cfg,
		dialer: dialer,
		log:    logging.WithUser("realtime", cfg.Username),
		events: make(chan chat.Event, cfg.EventBuffer),
		send:   make(chan chat.Envelope, cfg.SendBuffer),
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Events delivers decoded server events. It is closed after Close.
func (r *Realtime) Events() <-chan chat.Event { return r.events }

// Emit queues an outgoing event. Events queued while disconnected are sent
// after the next successful connect.
func (r *Realtime) Emit(name string, payload any) error {
	env, err := chat.NewEnvelope(name, payload)
	if err != nil {
		return err
	}
	if r.ctx.Err() != nil {
		return ErrClosed
	}
	if join, ok := payload.(chat.JoinRoom); ok {
		r.mu.Lock()
		r.room = join.RoomID
		r.mu.Unlock()
	}
	select {
	case r.send <- env:
		return nil
	case <-r.ctx.Done():
		return ErrClosed
	default:
		return ErrSendQueueFull
	}
}

// Close stops the connection loop and waits for it to exit.
func (r *Realtime) Close() error {
	r.once.Do(r.cancel)
	<-r.done
	return nil
}

func (r *Realtime) run() {
	defer close(r.done)
	defer close(r.events)

	for {
		if r.ctx.Err() != nil {
			return
		}
		err := r.connectOnce(r.ctx)
		if r.ctx.Err() != nil {
			return
		}
		r.log.Warn().Err(err).Dur("retry_in", r.cfg.ReconnectInterval).Msg("realtime connection lost")
		r.publish(chat.Event{Name: EventDisconnected})

		timer := time.NewTimer(r.cfg.ReconnectInterval)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (r *Realtime) connectOnce(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.cfg.URL, err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	if err := r.handshake(conn); err != nil {
		return err
	}
	r.log.Info().Str("url", r.cfg.URL).Msg("realtime connected")
	r.publish(chat.Event{Name: EventConnected})

	connCtx, cancel := context.WithCancel(ctx)
	writeDone := make(chan error, 1)
	go func() { writeDone <- r.writePump(connCtx, conn) }()

	err = r.readPump(conn)
	cancel()
	if werr := <-writeDone; err == nil {
		err = werr
	}
	return err
}

// handshake runs before the write pump starts, so it owns the connection.
func (r *Realtime) handshake(conn *websocket.Conn) error {
	user := strings.TrimSpace(r.cfg.Username)
	if user == "" {
		return nil
	}
	if err := writeEnvelope(conn, chat.EventUserLogin, chat.UserLogin{Username: user}); err != nil {
		return fmt.Errorf("announce user: %w", err)
	}
	r.mu.Lock()
	room := r.room
	r.mu.Unlock()
	if room != "" {
		if err := writeEnvelope(conn, chat.EventJoinRoom, chat.JoinRoom{Username: user, RoomID: room}); err != nil {
			return fmt.Errorf("rejoin %s: %w", room, err)
		}
		r.dropQueuedJoins(room)
	}
	return nil
}

// dropQueuedJoins removes join_room envelopes made redundant by the rejoin of
// room: every queued join up to the last one for room. Joins queued after it
// still go out, in order.
func (r *Realtime) dropQueuedJoins(room string) {
	var queued []chat.Envelope
drain:
	for n := len(r.send); n > 0; n-- {
		select {
		case env := <-r.send:
			queued = append(queued, env)
		default:
			break drain
		}
	}

	last := -1
	for i, env := range queued {
		if env.Event != chat.EventJoinRoom {
			continue
		}
		var join chat.JoinRoom
		if err := json.Unmarshal(env.Data, &join); err == nil && join.RoomID == room {
			last = i
		}
	}
	for i, env := range queued {
		if i <= last && env.Event == chat.EventJoinRoom {
			continue
		}
		r.requeue(env)
	}
}

func (r *Realtime) readPump(conn *websocket.Conn) error {
	pongWait := r.cfg.PongWait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.log.Warn().Err(err).Msg("invalid realtime frame")
			continue
		}
		ev, err := chat.DecodeEvent(env)
		if err != nil {
			r.log.Warn().Err(err).Str("event", env.Event).Msg("invalid realtime event")
			continue
		}
		r.publish(ev)
	}
}

func (r *Realtime) writePump(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(r.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case env := <-r.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				r.requeue(env)
				return fmt.Errorf("write %s: %w", env.Event, err)
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// requeue puts back an envelope whose write failed so the next connection sends it.
func (r *Realtime) requeue(env chat.Envelope) {
	select {
	case r.send <- env:
	default:
		r.log.Warn().Str("event", env.Event).Msg("dropping unsent event")
	}
}

func (r *Realtime) publish(ev chat.Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func writeEnvelope(conn *websocket.Conn, name string, payload any) error {
	env, err := chat.NewEnvelope(name, payload)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
