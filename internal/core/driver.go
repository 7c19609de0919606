package core

import (
	"context"
	"sort"
	"sync"

	"github.com/coregx/fluentdb/internal/dialects"
)

// Driver is the transport capability injected into a DB. It knows its SQL
// dialect statically, so formatting and escaping never need a live session.
type Driver interface {
	// Dialect returns the SQL dialect spoken by the server.
	Dialect() dialects.Dialect
	// Connect opens one session. Failures are reported as *TransportError.
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

// Conn is one live session to the server. Implementations are not required
// to be safe for concurrent use; the connection manager serializes calls.
type Conn interface {
	// Query runs a single statement. Connection-level failures are reported as
	// *TransportError; anything else is treated as an SQL execution error.
	Query(ctx context.Context, query string) (*Result, error)
	// Ping checks that the session is still usable.
	Ping(ctx context.Context) error
	// Destroy closes the session immediately, aborting in-flight work.
	Destroy() error
	// End closes the session once in-flight work has finished.
	End(ctx context.Context) error
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a transport available under name for Open.
func RegisterDriver(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// LookupDriver retrieves a registered transport by name.
func LookupDriver(name string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

// Drivers returns the sorted names of the registered transports.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
