package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/omochice/chatlink/internal/credential"
	"github.com/omochice/chatlink/internal/socket"
	"github.com/omochice/chatlink/pkg/protocol"
)

// ErrNotOpen is returned by Send when no open connection exists.
// The content is dropped, not queued.
var ErrNotOpen = errors.New("not connected to server")

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// Config holds the transport settings.
type Config struct {
	// Endpoint is the ws:// or wss:// URL without the token parameter.
	Endpoint string

	// ReconnectDelay is the fixed wait between losing a connection and
	// the next attempt. Default: 3s.
	ReconnectDelay time.Duration

	// WriteTimeout bounds each Send. Zero means DefaultWriteTimeout;
	// negative disables the bound.
	WriteTimeout time.Duration
}

// Option configures optional Transport collaborators.
type Option func(*Transport)

// WithScheduler replaces the timer source used for reconnects.
func WithScheduler(s Scheduler) Option {
	return func(t *Transport) {
		t.sched = s
	}
}

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// Transport owns one logical connection to the chat endpoint and keeps it
// alive: any close or error schedules a new attempt after ReconnectDelay,
// forever, until Disconnect.
//
// Every transition happens under mu. gen identifies the current attempt;
// goroutines and timers belonging to an older attempt see a different gen
// and do nothing.
type Transport struct {
	endpoint       string
	reconnectDelay time.Duration
	writeTimeout   time.Duration

	creds  credential.Source
	dialer socket.Dialer
	sched  Scheduler
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	conn      socket.Socket
	gen       uint64
	attempts  uint64
	cancel    context.CancelFunc
	timer     Timer
	listener  Listener
	stateHook StateHook

	writeMu sync.Mutex
}

// New creates an idle Transport. creds is read once per connection attempt.
func New(cfg Config, creds credential.Source, dialer socket.Dialer, opts ...Option) *Transport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if creds == nil {
		creds = credential.Static("")
	}

	t := &Transport{
		endpoint:       cfg.Endpoint,
		reconnectDelay: cfg.ReconnectDelay,
		writeTimeout:   cfg.WriteTimeout,
		creds:          creds,
		dialer:         dialer,
		sched:          SystemScheduler{},
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.With().
		Str("component", "transport").
		Str("session", uuid.NewString()).
		Logger()
	return t
}

// Connect starts a new connection attempt and returns immediately.
// It does nothing while an attempt is already connecting or open.
func (t *Transport) Connect() {
	// The source may hit the disk, so it is read before taking mu.
	token, ok := t.creds.Token()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateConnecting, StateOpen:
		t.logger.Debug().Stringer("state", t.state).Msg("connect ignored")
		return
	}
	t.stopTimerLocked()
	t.startLocked(token, ok)
}

// Disconnect closes the connection and cancels any pending reconnect.
// The transport stays idle until Connect is called again.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.gen++
	t.stopTimerLocked()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	conn := t.conn
	t.conn = nil
	wasIdle := t.state == StateIdle
	t.setStateLocked(StateIdle)
	t.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("close after disconnect")
		}
	}
	if !wasIdle {
		t.logger.Info().Msg("disconnected")
	}
}

// Send wraps content in the message envelope and writes it. Outside the
// open state nothing is written and ErrNotOpen is returned. A failed write
// closes the connection and schedules a reconnect.
func (t *Transport) Send(content string) error {
	t.mu.Lock()
	conn, state, gen := t.conn, t.state, t.gen
	t.mu.Unlock()

	if state != StateOpen || conn == nil {
		t.logger.Warn().Stringer("state", state).Msg("send dropped: not connected")
		return ErrNotOpen
	}

	data, err := protocol.EncodeEnvelope(content)
	if err != nil {
		t.logger.Error().Err(err).Msg("send dropped")
		return err
	}

	ctx := context.Background()
	if t.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.writeTimeout)
		defer cancel()
	}

	t.writeMu.Lock()
	err = conn.Write(ctx, data)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Warn().Err(err).Msg("send failed")
		t.fail(gen, err, t.logger)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// OnMessage sets the listener for inbound frames, replacing the previous
// one. nil removes it. The listener runs on the read goroutine.
func (t *Transport) OnMessage(listener Listener) {
	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()
}

// OnStateChange sets the state hook, replacing the previous one. The hook is
// called synchronously on every transition and must not call back into t.
func (t *Transport) OnStateChange(hook StateHook) {
	t.mu.Lock()
	t.stateHook = hook
	t.mu.Unlock()
}

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Attempts returns how many connection attempts have been started.
func (t *Transport) Attempts() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

func (t *Transport) startLocked(token string, ok bool) {
	t.gen++
	t.attempts++
	gen := t.gen
	log := t.logger.With().Uint64("attempt", t.attempts).Logger()

	if !ok {
		log.Debug().Msg("no session token, connecting anonymously")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.conn = nil
	t.setStateLocked(StateConnecting)

	target, err := Endpoint(t.endpoint, token)
	if err != nil {
		// conn was cleared above, so there is no handle to close.
		t.failLocked(err, log)
		return
	}

	log.Debug().Str("endpoint", t.endpoint).Msg("connecting")
	go t.run(ctx, gen, target, log)
}

// run dials and then reads until the socket fails.
func (t *Transport) run(ctx context.Context, gen uint64, target string, log zerolog.Logger) {
	conn, err := t.dialer.Dial(ctx, target)
	if err != nil {
		t.fail(gen, err, log)
		return
	}
	if !t.opened(gen, conn) {
		_ = conn.Close()
		return
	}
	log.Info().Msg("connected")

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			t.fail(gen, err, log)
			return
		}
		t.dispatch(gen, data, log)
	}
}

func (t *Transport) opened(gen uint64, conn socket.Socket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != StateConnecting {
		return false
	}
	t.conn = conn
	t.setStateLocked(StateOpen)
	return true
}

// fail ends attempt gen. The read loop and a failed Send may both report
// the same attempt; only the first one counts.
func (t *Transport) fail(gen uint64, err error, log zerolog.Logger) {
	t.mu.Lock()
	if gen != t.gen || t.state == StateClosed {
		t.mu.Unlock()
		log.Debug().Err(err).Msg("stale attempt ended")
		return
	}
	conn := t.failLocked(err, log)
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// failLocked moves to StateClosed and schedules the next attempt. The
// returned handle must be closed by the caller after releasing mu.
func (t *Transport) failLocked(err error, log zerolog.Logger) socket.Socket {
	conn := t.conn
	t.conn = nil
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	if t.state == StateOpen {
		log.Warn().Err(err).Dur("retry_in", t.reconnectDelay).Msg("connection lost")
	} else {
		log.Warn().Err(err).Dur("retry_in", t.reconnectDelay).Msg("connection failed")
	}
	t.setStateLocked(StateClosed)

	gen := t.gen
	t.stopTimerLocked()
	t.timer = t.sched.AfterFunc(t.reconnectDelay, func() {
		t.reconnect(gen)
	})
	return conn
}

func (t *Transport) reconnect(gen uint64) {
	token, ok := t.creds.Token()

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != StateClosed {
		return
	}
	t.timer = nil
	t.startLocked(token, ok)
}

func (t *Transport) dispatch(gen uint64, data []byte, log zerolog.Logger) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
		return
	}

	t.mu.Lock()
	listener := t.listener
	current := gen == t.gen
	t.mu.Unlock()

	if !current || listener == nil {
		return
	}
	t.deliver(listener, msg, log)
}

func (t *Transport) deliver(listener Listener, msg protocol.Inbound, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Stringer("kind", msg.Kind).Msg("listener panicked")
		}
	}()
	listener(msg)
}

func (t *Transport) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	if t.stateHook != nil {
		t.stateHook(s)
	}
}

func (t *Transport) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
