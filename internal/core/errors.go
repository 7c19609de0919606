package core

import (
	"errors"
	"fmt"
)

// Predefined errors returned by fluentdb.
var (
	// ErrConnectionDestroyed is returned by every operation attempted after
	// Destroy or End and before ReConnect.
	ErrConnectionDestroyed = errors.New("connection destroyed")
	// ErrUnknownDriver is returned when a Config names a driver nobody registered.
	ErrUnknownDriver = errors.New("unknown database driver")
	// ErrInvalidOperator is latched by predicate methods given an unsupported operator.
	ErrInvalidOperator = errors.New("invalid comparison operator")
	// ErrInvalidDirection is latched by OrderBy given something other than ASC or DESC.
	ErrInvalidDirection = errors.New("invalid order direction")
	// ErrInvalidArgument is latched when a builder method receives a malformed call shape.
	ErrInvalidArgument = errors.New("invalid builder argument")
)

// TransportError reports a failure of the session to the database server
// (network, handshake, authentication). Lost marks the recoverable class
// that triggers one automatic reconnect.
type TransportError struct {
	Op   string
	Lost bool
	Err  error
}

func (e *TransportError) Error() string {
	if e.Lost {
		return e.Op + ": connection lost: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportLost reports whether err is a lost-connection transport error.
func IsTransportLost(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Lost
}

// IsTransportError reports whether err came from the transport rather than the server's SQL engine.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// SQLExecutionError is a driver-reported error for a statement (syntax,
// constraint violation, unknown column). It is terminal for that call.
type SQLExecutionError struct {
	SQL string
	Err error
}

func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.SQL, e.Err)
}

func (e *SQLExecutionError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
