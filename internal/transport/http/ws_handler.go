package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/proto"
	"github.com/vovakirdan/roomchat/internal/server"
	"github.com/vovakirdan/roomchat/internal/utils"
)

const (
	noticeMalformed   = "Malformed request."
	noticeRateLimited = "You are sending too fast. Slow down."
)

// WSHandler upgrades HTTP connections and bridges them to the hub.
type WSHandler struct {
	hub               *server.Hub
	maxMessageBytes   int64
	messagesPerMinute int
	log               *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *server.Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:               hub,
		maxMessageBytes:   cfg.MaxMessageBytes,
		messagesPerMinute: cfg.MessagesPerMinute,
		log:               logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	chatter := server.NewChatter(utils.NewID())
	if err := h.hub.RegisterClient(chatter); err != nil {
		h.log.Warn().Err(err).Msg("hub rejected chatter")
		conn.Close(websocket.StatusTryAgainLater, "service unavailable")
		return
	}
	defer h.hub.UnregisterClient(chatter)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, chatter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, chatter)
	}()

	err = <-errCh
	cancel() // stop the other goroutine

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("chatter_id", chatter.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
	<-errCh
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, chatter *server.Chatter) error {
	limiter := newRateLimiter(h.messagesPerMinute)

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		cmd, err := proto.DecodeCommand(frame)
		if err != nil {
			h.log.Debug().Err(err).Str("chatter_id", chatter.ID).Msg("malformed command")
			if err := h.notify(ctx, conn, noticeMalformed); err != nil {
				return err
			}
			continue
		}
		if !limiter.allow() {
			h.log.Debug().Str("chatter_id", chatter.ID).Msg("rate limit exceeded")
			if err := h.notify(ctx, conn, noticeRateLimited); err != nil {
				return err
			}
			continue
		}

		if err := h.hub.Submit(ctx, chatter, cmd); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, chatter *server.Chatter) error {
	for {
		select {
		case msg, ok := <-chatter.Events:
			if !ok {
				return nil
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.log.Error().Err(err).Str("chatter_id", chatter.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notify answers the connection directly, bypassing the hub.
func (h *WSHandler) notify(ctx context.Context, conn *websocket.Conn, text string) error {
	return h.write(ctx, conn, proto.Notice{Text: text})
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, msg proto.Inbound) error {
	frame, err := proto.EncodeInbound(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, frame)
}
