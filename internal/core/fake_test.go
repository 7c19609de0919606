package core

import (
	"context"
	"errors"
	"sync"

	"github.com/coregx/fluentdb/internal/dialects"
)

var errLost = errors.New("server has gone away")

// fakeDriver records sessions and answers statements through handle.
type fakeDriver struct {
	dialect dialects.Dialect

	mu          sync.Mutex
	connects    int
	connectErrs []error // consumed by successive Connect calls
	conns       []*fakeConn
	configs     []Config
	handle      func(query string) (*Result, error)
	gate        chan struct{} // when set, Connect waits on it
}

func newFakeDriver(dialect string) *fakeDriver {
	return &fakeDriver{dialect: dialects.GetDialect(dialect)}
}

func (d *fakeDriver) Dialect() dialects.Dialect {
	return d.dialect
}

func (d *fakeDriver) Connect(ctx context.Context, cfg Config) (Conn, error) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.connects++
	d.configs = append(d.configs, cfg)
	if len(d.connectErrs) > 0 {
		err := d.connectErrs[0]
		d.connectErrs = d.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	c := &fakeConn{driver: d}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) connectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

func (d *fakeDriver) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fakeConn is one session of fakeDriver.
type fakeConn struct {
	driver *fakeDriver

	mu        sync.Mutex
	queries   []string
	queryErrs []error // consumed by successive Query calls
	pingErr   error
	destroyed bool
	ended     bool
	release   chan struct{} // when set, Query blocks until closed or Destroy
}

func (c *fakeConn) Query(ctx context.Context, query string) (*Result, error) {
	c.mu.Lock()
	if c.destroyed || c.ended {
		c.mu.Unlock()
		return nil, &TransportError{Op: "query", Err: ErrConnectionDestroyed}
	}
	c.queries = append(c.queries, query)
	release := c.release
	var err error
	if len(c.queryErrs) > 0 {
		err = c.queryErrs[0]
		c.queryErrs = c.queryErrs[1:]
	}
	c.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	if c.isDestroyed() {
		return nil, &TransportError{Op: "query", Err: ErrConnectionDestroyed}
	}

	c.driver.mu.Lock()
	handle := c.driver.handle
	c.driver.mu.Unlock()
	if handle != nil {
		return handle(query)
	}
	return &Result{Rows: []Row{}}, nil
}

func (c *fakeConn) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	if c.release != nil {
		select {
		case <-c.release:
		default:
			close(c.release)
		}
	}
	return nil
}

func (c *fakeConn) End(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
	return nil
}

func (c *fakeConn) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeConn) isEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

func (c *fakeConn) executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

func lostErr() error {
	return &TransportError{Op: "query", Lost: true, Err: errLost}
}

// newTestDB returns a DB over a fake MySQL transport.
func newTestDB(opts ...Option) (*DB, *fakeDriver) {
	d := newFakeDriver("mysql")
	return New(d, Config{Host: "db.local", Database: "app"}, opts...), d
}

// rows builds a Result from rows.
func rows(rs ...Row) *Result {
	return &Result{Rows: rs}
}

// block makes subsequent queries wait until unblock or Destroy.
func (c *fakeConn) block() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release = make(chan struct{})
}

func (c *fakeConn) unblock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release == nil {
		return
	}
	select {
	case <-c.release:
	default:
		close(c.release)
	}
}

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}
