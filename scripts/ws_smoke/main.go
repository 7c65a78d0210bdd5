package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/roomchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/demo_chatroom", "WebSocket address")
	name := flag.String("name", "tester", "display name to answer the name query with")
	room := flag.String("room", "lobby", "chatroom to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(cmd proto.Command) error {
		frame, err := proto.Encode(cmd)
		if err != nil {
			return fmt.Errorf("encode %T: %w", cmd, err)
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		msg, err := proto.Decode(frame)
		if err != nil {
			fmt.Printf("Undecodable frame %s: %v\n", frame, err)
			continue
		}

		switch m := msg.(type) {
		case proto.Query:
			fmt.Printf("Query: %s\n", m.Subject)
			if err := send(proto.SetName{Name: *name}); err != nil {
				return err
			}
			if err := send(proto.JoinRoom{Name: *room}); err != nil {
				return err
			}
		case proto.Notice:
			fmt.Printf("Notice: %s\n", m.Text)
		case proto.JoinAck:
			fmt.Printf("Joined: %s\n", m.Room)
			if err := send(proto.SendMessage{Body: *text}); err != nil {
				return err
			}
		case proto.Event:
			switch p := m.Payload.(type) {
			case proto.Listing:
				fmt.Printf("Listing: %+v\n", p.Rooms)
			case proto.Update:
				fmt.Printf("Update: room=%s count=%d\n", p.Room, p.Count)
			case proto.ChatMessage:
				fmt.Printf("Message: user=%s text=%q\n", p.Author, p.Body)
				if p.Author == *name && p.Body == *text {
					return nil
				}
			default:
				fmt.Printf("Event: %#v\n", p)
			}
		}
	}
}
