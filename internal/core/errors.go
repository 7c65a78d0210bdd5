package core

import "errors"

// Error codes surfaced to the presentation layer.
const (
	ErrCodeNotConnected    = "not_connected"
	ErrCodeValidation      = "validation_failed"
	ErrCodeNoActiveRoom    = "no_active_room"
	ErrCodeTransportClosed = "transport_closed"
)

var (
	ErrNotConnected    = errors.New("socket not connected")
	ErrValidation      = errors.New("validation failed")
	ErrNoActiveRoom    = errors.New("no chatroom selected")
	ErrTransportClosed = errors.New("connection closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// NotConnected is returned when a user intent arrives while the transport is not open.
func NotConnected() *CoreError {
	return coreError(ErrCodeNotConnected, "Socket not connected", ErrNotConnected)
}

// Validation is returned when a user intent carries an empty or invalid value.
func Validation(msg string) *CoreError {
	return coreError(ErrCodeValidation, msg, ErrValidation)
}

// NoActiveRoom is returned when a message is sent without a selected chatroom.
func NoActiveRoom() *CoreError {
	return coreError(ErrCodeNoActiveRoom, "Please select a chatroom to chat in", ErrNoActiveRoom)
}

// TransportClosed describes the terminal close of the connection.
func TransportClosed() *CoreError {
	return coreError(ErrCodeTransportClosed, "Connection closed", ErrTransportClosed)
}
