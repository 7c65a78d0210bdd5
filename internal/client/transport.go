package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// ReadyState mirrors the readiness of a websocket connection.
type ReadyState int32

const (
	ReadyConnecting ReadyState = iota
	ReadyOpen
	ReadyClosing
	ReadyClosed
)

func (s ReadyState) String() string {
	switch s {
	case ReadyConnecting:
		return "CONNECTING"
	case ReadyOpen:
		return "OPEN"
	case ReadyClosing:
		return "CLOSING"
	case ReadyClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport is the single live connection to the chat endpoint. Frames are
// whole application messages.
type Transport interface {
	ReadyState() ReadyState
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	Close() error
}

// Dialer opens a Transport to url.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

var errTransportNotOpen = errors.New("transport not open")

// WSDialer dials websocket endpoints.
type WSDialer struct {
	// Timeout bounds the opening handshake. Zero means no extra bound.
	Timeout time.Duration
	// ReadLimit caps the size of one inbound frame. Zero keeps the library default.
	ReadLimit int64
}

// Dial opens a websocket connection to url.
func (d WSDialer) Dial(ctx context.Context, url string) (Transport, error) {
	dialCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	t := &wsTransport{conn: conn}
	t.state.Store(int32(ReadyOpen))
	return t, nil
}

type wsTransport struct {
	conn    *websocket.Conn
	state   atomic.Int32
	closing atomic.Bool
}

func (t *wsTransport) ReadyState() ReadyState {
	return ReadyState(t.state.Load())
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.state.Store(int32(ReadyClosed))
		if t.closing.Load() {
			return nil, fmt.Errorf("%w: %w", net.ErrClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, frame []byte) error {
	if t.ReadyState() != ReadyOpen {
		return errTransportNotOpen
	}
	if err := t.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		t.state.Store(int32(ReadyClosed))
		return err
	}
	return nil
}

func (t *wsTransport) Close() error {
	if !t.state.CompareAndSwap(int32(ReadyOpen), int32(ReadyClosing)) {
		return nil
	}
	t.closing.Store(true)
	err := t.conn.Close(websocket.StatusNormalClosure, "bye")
	t.state.Store(int32(ReadyClosed))
	return err
}

// isNormalClose reports whether err ends a connection without a failure.
func isNormalClose(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
