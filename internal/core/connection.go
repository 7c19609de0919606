package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/coregx/fluentdb/internal/logger"
	"github.com/coregx/fluentdb/internal/tracer"
)

// ConnState is the lifecycle state of the single logical connection.
type ConnState int

// Connection states. StateDestroyed is reachable from any state and sticks
// until ReConnect.
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDestroyed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// connManager owns the one session of a DB. Dialing and statements are
// serialized by execMu, so no statement is sent before the previous result
// has been read. mu guards the state fields and is never held across I/O
// except for the final close in end.
type connManager struct {
	driver Driver
	logger logger.Logger // explicit logger; nil means "decide from cfg.Debug"
	tracer *tracer.Tracer

	execMu sync.Mutex

	mu        sync.Mutex
	idle      *sync.Cond
	cfg       Config
	conn      Conn
	state     ConnState
	destroyed bool
	active    int // admitted statements not yet finished
}

func newConnManager(driver Driver, cfg Config, log logger.Logger) *connManager {
	if log != nil {
		log = log.With("component", "connection")
	}
	m := &connManager{
		driver: driver,
		logger: log,
		cfg:    cfg,
	}
	m.idle = sync.NewCond(&m.mu)
	return m
}

// log returns the sink for connection diagnostics. Must be called with mu held.
func (m *connManager) log() logger.Logger {
	if m.logger != nil {
		return m.logger
	}
	if m.cfg.Debug {
		return logger.New(slog.Default()).With("component", "connection")
	}
	return logger.Discard
}

func (m *connManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return StateDestroyed
	}
	return m.state
}

func (m *connManager) config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// connect returns immediately when a session is up and cfg is nil. A non-nil
// cfg replaces the stored configuration and the current session.
func (m *connManager) connect(ctx context.Context, cfg *Config) error {
	m.execMu.Lock()
	defer m.execMu.Unlock()

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return ErrConnectionDestroyed
	}
	if cfg == nil && m.conn != nil && m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	if cfg != nil {
		m.cfg = *cfg
	}
	old := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if old != nil {
		// execMu is held, so nothing is in flight on the old session.
		_ = old.End(ctx)
	}

	_, err := m.dial(ctx)
	return err
}

// reconnect clears the destroyed flag, then connects.
func (m *connManager) reconnect(ctx context.Context, cfg *Config) error {
	m.mu.Lock()
	m.destroyed = false
	m.mu.Unlock()
	return m.connect(ctx, cfg)
}

// dial opens a session, retrying once when the handshake reports a lost
// connection. execMu must be held.
func (m *connManager) dial(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	cfg := m.cfg
	m.state = StateConnecting
	m.mu.Unlock()

	ctx, span := m.tracer.StartConnect(ctx, m.driver.Dialect().Name(), cfg.Host, cfg.Database)

	retried := false
	conn, err := m.driver.Connect(ctx, cfg)
	if err != nil && IsTransportLost(err) {
		m.mu.Lock()
		m.log().Warn("connection lost during handshake, retrying", "host", cfg.Host, "error", err)
		m.mu.Unlock()
		retried = true
		conn, err = m.driver.Connect(ctx, cfg)
	}
	tracer.EndConnect(span, retried, err)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.state = StateDisconnected
		m.log().Error("connection failed",
			"host", cfg.Host,
			"database", cfg.Database,
			"error", err,
		)
		return nil, err
	}

	if m.destroyed {
		// Destroy or End ran while the handshake was in progress.
		m.state = StateDisconnected
		_ = conn.Destroy()
		return nil, ErrConnectionDestroyed
	}

	m.conn = conn
	m.state = StateConnected
	m.log().Debug("connected", "host", cfg.Host, "database", cfg.Database)
	return conn, nil
}

// ensure returns the live session, dialing when there is none. execMu must be held.
func (m *connManager) ensure(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	if m.conn != nil && m.state == StateConnected {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	destroyed := m.destroyed
	m.mu.Unlock()

	if destroyed {
		return nil, ErrConnectionDestroyed
	}
	return m.dial(ctx)
}

// drop forgets conn if it is still current and closes it.
func (m *connManager) drop(conn Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	_ = conn.Destroy()
}

func (m *connManager) admit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ErrConnectionDestroyed
	}
	m.active++
	return nil
}

func (m *connManager) release() {
	m.mu.Lock()
	m.active--
	if m.active == 0 {
		m.idle.Broadcast()
	}
	m.mu.Unlock()
}

// exec runs one statement on the session, lazily connecting. A lost
// connection is re-established once and the statement re-run; reconnected
// reports that this happened.
func (m *connManager) exec(ctx context.Context, query string) (res *Result, reconnected bool, err error) {
	if err := m.admit(); err != nil {
		return nil, false, err
	}
	defer m.release()

	m.execMu.Lock()
	defer m.execMu.Unlock()

	conn, err := m.ensure(ctx)
	if err != nil {
		return nil, false, err
	}

	res, err = conn.Query(ctx, query)
	if err != nil && IsTransportLost(err) && !m.isDestroyed() {
		m.mu.Lock()
		m.log().Warn("connection lost, reconnecting", "error", err)
		m.mu.Unlock()

		m.drop(conn)
		if conn, err = m.dial(ctx); err != nil {
			return nil, true, err
		}
		reconnected = true
		res, err = conn.Query(ctx, query)
	}

	if err != nil && !IsTransportError(err) && !isContextError(err) {
		err = &SQLExecutionError{SQL: query, Err: err}
	}
	return res, reconnected, err
}

// ping checks the live session without dialing a new one.
func (m *connManager) ping(ctx context.Context) error {
	m.execMu.Lock()
	defer m.execMu.Unlock()

	m.mu.Lock()
	conn := m.conn
	live := conn != nil && m.state == StateConnected && !m.destroyed
	m.mu.Unlock()

	if !live {
		return nil
	}

	err := conn.Ping(ctx)
	if err == nil || !IsTransportLost(err) {
		return err
	}

	m.mu.Lock()
	m.log().Warn("health check found connection lost, reconnecting", "error", err)
	m.mu.Unlock()

	m.drop(conn)
	if m.isDestroyed() {
		return err
	}
	_, err = m.dial(ctx)
	return err
}

func (m *connManager) isDestroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// destroy marks the manager destroyed and closes the session without waiting.
func (m *connManager) destroy() error {
	m.mu.Lock()
	m.destroyed = true
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Destroy()
}

// end marks the manager destroyed, waits for admitted statements to finish,
// then closes the session gracefully. If ctx is done first the session is
// destroyed and ctx.Err() is returned.
func (m *connManager) end(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.idle.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	m.destroyed = true
	for m.active > 0 && ctx.Err() == nil {
		m.idle.Wait()
	}
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return errors.Join(err, m.destroy())
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.End(ctx)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
