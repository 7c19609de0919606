package transport

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/coregx/fluentdb/internal/core"
	"github.com/coregx/fluentdb/internal/dialects"
)

const defaultMySQLPort = 3306

// Server-side error numbers that mean the session is gone.
const (
	erServerShutdown = 1053
	erConnKilled     = 1927
	erClientGone     = 4031
)

func init() {
	core.RegisterDriver("mysql", MySQL{})
}

// MySQL is the transport for MySQL and MariaDB servers.
type MySQL struct{}

// Dialect returns the MySQL dialect.
func (MySQL) Dialect() dialects.Dialect {
	return dialects.GetDialect("mysql")
}

// Connect opens a session described by cfg.
func (MySQL) Connect(ctx context.Context, cfg core.Config) (core.Conn, error) {
	connector, err := mysql.NewConnector(MySQLConfig(cfg))
	if err != nil {
		return nil, &core.TransportError{Op: "connect", Err: err}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return open(ctx, sql.OpenDB(connector), mysqlLost)
}

// MySQLConfig translates cfg into a go-sql-driver configuration.
// A Host starting with "/" is a unix socket path.
func MySQLConfig(cfg core.Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.UserName()
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.Timeout = cfg.Timeout
	mc.ParseTime = true

	if strings.HasPrefix(cfg.Host, "/") {
		mc.Net = "unix"
		mc.Addr = cfg.Host
	} else {
		mc.Net = "tcp"
		mc.Addr = mysqlAddr(cfg.Host, cfg.Port)
	}

	if len(cfg.Params) > 0 {
		mc.Params = maps.Clone(cfg.Params)
	}
	return mc
}

// MySQLDSN renders cfg as a go-sql-driver DSN.
func MySQLDSN(cfg core.Config) string {
	return MySQLConfig(cfg).FormatDSN()
}

func mysqlAddr(host string, port int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		if port == 0 {
			return net.JoinHostPort(h, p)
		}
		host = h
	}
	if port == 0 {
		port = defaultMySQLPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// mysqlLost reports whether err means the session to the server is gone.
func mysqlLost(err error) bool {
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, mysql.ErrPktSync) || lostConnection(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erServerShutdown, erConnKilled, erClientGone:
			return true
		}
	}
	return false
}
