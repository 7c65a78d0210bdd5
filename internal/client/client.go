// Package client owns the connection to a chatroom server: it drives the
// overlay state machine from transport events, feeds decoded frames into the
// reconciliation engine and turns user intents into protocol commands.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/core"
	"github.com/vovakirdan/roomchat/internal/proto"
)

// PromptKind identifies a notification for the presentation layer.
type PromptKind int

const (
	// PromptName asks the user to choose a display name.
	PromptName PromptKind = iota
	// PromptNotice carries server text to acknowledge.
	PromptNotice
	// PromptSelectRoom asks the user to pick a chatroom before chatting.
	PromptSelectRoom
)

func (k PromptKind) String() string {
	switch k {
	case PromptName:
		return "name"
	case PromptNotice:
		return "notice"
	case PromptSelectRoom:
		return "select_room"
	default:
		return "unknown"
	}
}

// Prompt is a non-blocking notification for the user.
type Prompt struct {
	Kind PromptKind
	Text string
}

const (
	waitConnecting = "Connecting"
	promptBuffer   = 16
)

// Client is the connection lifecycle manager for one transport connection.
// Transport callbacks and user intents are serialized by mu; a Client is not
// reused after its connection closes.
type Client struct {
	mu        sync.Mutex
	store     *core.Store
	dialer    Dialer
	url       string
	transport Transport
	closed    bool
	closing   bool
	cancelRun context.CancelFunc

	prompts chan Prompt
	log     *zerolog.Logger
}

// New creates a client for url. The overlay starts at Waiting("Connecting").
func New(st *core.Store, dialer Dialer, url string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	st.SetOverlay(core.Waiting(waitConnecting))

	return &Client{
		store:   st,
		dialer:  dialer,
		url:     url,
		prompts: make(chan Prompt, promptBuffer),
		log:     logger,
	}
}

// Store returns the state store the client mutates.
func (c *Client) Store() *core.Store {
	return c.store
}

// Prompts delivers notifications for the presentation layer.
func (c *Client) Prompts() <-chan Prompt {
	return c.prompts
}

// Run dials the endpoint and pumps inbound frames until the connection
// closes or ctx is cancelled. It returns nil on a normal close, including a
// Close issued while the dial is still in flight.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancelRun = cancel
	closing := c.closing
	c.mu.Unlock()
	if closing {
		c.HandleClose(nil)
		return nil
	}

	t, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		if c.closeRequested() && errors.Is(err, context.Canceled) {
			c.HandleClose(nil)
			return nil
		}
		c.log.Error().Err(err).Str("url", c.url).Msg("connect failed")
		c.HandleClose(err)
		return fmt.Errorf("connect %s: %w", c.url, err)
	}
	c.HandleOpen(t)
	defer t.Close()

	for {
		frame, err := t.Read(ctx)
		if err != nil {
			if isNormalClose(err) {
				c.HandleClose(nil)
				return nil
			}
			c.HandleError(err)
			c.HandleClose(err)
			return fmt.Errorf("read: %w", err)
		}
		c.HandleFrame(frame)
	}
}

// Close shuts the connection down. Before the transport is open it aborts
// the dial, and a transport that opens afterwards is closed at once. The
// read loop then reports the close.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closing = true
	t := c.transport
	cancel := c.cancelRun
	c.mu.Unlock()

	if cancel != nil {
		defer cancel()
	}
	if t == nil {
		return nil
	}
	return t.Close()
}

func (c *Client) closeRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// HandleOpen records the opened transport. The overlay stays as it is until
// the server asks for a name. A transport opened after Close is shut down.
func (c *Client) HandleOpen(t Transport) {
	c.mu.Lock()
	if c.closed || c.closing {
		c.mu.Unlock()
		c.log.Debug().Str("url", c.url).Msg("closing transport opened after close")
		_ = t.Close()
		return
	}
	c.transport = t
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("connected")
}

// HandleFrame decodes one inbound frame and applies it to the store.
// Malformed frames are logged and dropped without touching state.
func (c *Client) HandleFrame(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	msg, err := proto.Decode(frame)
	if err != nil {
		var unknown *proto.UnknownEventError
		if errors.As(err, &unknown) {
			c.log.Debug().Str("event", unknown.Type).Msg("ignoring unknown event")
			return
		}
		c.log.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	switch core.Reconcile(c.store, msg) {
	case core.SignalNamePrompt:
		c.promptLocked(Prompt{Kind: PromptName, Text: "Please enter a name in order to chat."})
	case core.SignalNotice:
		if notice, ok := msg.(proto.Notice); ok {
			c.promptLocked(Prompt{Kind: PromptNotice, Text: notice.Text})
		}
	}
}

// HandleError surfaces a transport failure on the overlay.
func (c *Client) HandleError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || err == nil {
		return
	}
	c.log.Warn().Err(err).Msg("transport error")
	c.failLocked(err.Error())
}

// HandleClose moves the overlay to Error("Connection closed"). It is terminal
// for this client.
func (c *Client) HandleClose(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	ev := c.log.Info()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Msg("connection closed")
	c.store.SetOverlay(core.Failed(core.TransportClosed().Message))
}

// ShowSettings opens the identity overlay from the normal chat view.
func (c *Client) ShowSettings() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.CompareAndSetOverlay(core.OverlayOff, core.Settings())
}

// HideSettings returns to the chat view. It only acts while the settings
// overlay is shown.
func (c *Client) HideSettings() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.CompareAndSetOverlay(core.OverlaySettings, core.Off()) {
		c.log.Debug().Str("overlay", c.store.Overlay().String()).Msg("hide settings ignored")
		return false
	}
	return true
}

func (c *Client) failLocked(msg string) {
	c.store.SetOverlay(core.Failed(msg))
}

func (c *Client) promptLocked(p Prompt) {
	select {
	case c.prompts <- p:
	default:
		c.log.Warn().Str("kind", p.Kind.String()).Msg("prompt dropped, consumer too slow")
	}
}
