package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/vovakirdan/roomchat/internal/core"
	"github.com/vovakirdan/roomchat/internal/proto"
)

// SetName announces a display name to the server and records it locally.
func (c *Client) SetName(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return core.Validation("You must enter a name in order to chat")
	}
	if err := c.sendLocked(ctx, proto.SetName{Name: name}); err != nil {
		return err
	}
	c.store.SetName(name)
	return nil
}

// SendMessage posts body into the active room. An empty body is ignored.
func (c *Client) SendMessage(ctx context.Context, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if _, ok := c.store.ActiveRoom(); !ok {
		noRoom := core.NoActiveRoom()
		c.promptLocked(Prompt{Kind: PromptSelectRoom, Text: noRoom.Message})
		return noRoom
	}
	if body == "" {
		return nil
	}
	return c.sendLocked(ctx, proto.SendMessage{Body: body})
}

// CreateRoom asks the server to create a chatroom. The listing changes only
// when the server broadcasts the new room.
func (c *Client) CreateRoom(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return core.Validation("You must enter a name for the chatroom")
	}
	return c.sendLocked(ctx, proto.CreateRoom{Name: name})
}

// JoinRoom asks the server to move us into a chatroom. The active room changes
// when the server acknowledges the join.
func (c *Client) JoinRoom(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return core.Validation("You must choose a chatroom to join")
	}
	return c.sendLocked(ctx, proto.JoinRoom{Name: name})
}

func (c *Client) checkOpenLocked() error {
	if c.transport != nil && !c.closed && c.transport.ReadyState() == ReadyOpen {
		return nil
	}
	err := core.NotConnected()
	c.failLocked(err.Message)
	return err
}

// sendLocked encodes and hands one command to the transport without waiting
// for any acknowledgment.
func (c *Client) sendLocked(ctx context.Context, cmd proto.Command) error {
	frame, err := proto.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if err := c.transport.Write(ctx, frame); err != nil {
		c.log.Warn().Err(err).Msg("send failed")
		notConnected := core.NotConnected()
		c.failLocked(notConnected.Message)
		return fmt.Errorf("%w: %w", notConnected, err)
	}
	return nil
}
