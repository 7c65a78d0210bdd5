package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomchat/internal/client"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/core"
	"github.com/vovakirdan/roomchat/internal/server"
)

func startTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *server.Hub) {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	hub := server.NewHub(cfg.SeedRooms, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := NewServer(hub, cfg, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return ts, hub
}

func wsURL(ts *httptest.Server, path string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func awaitPrompt(t *testing.T, c *client.Client, kind client.PromptKind) client.Prompt {
	t.Helper()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case p := <-c.Prompts():
			if p.Kind == kind {
				return p
			}
		case <-timeout:
			t.Fatalf("no %s prompt received", kind)
			return client.Prompt{}
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestClientChatsThroughServer(t *testing.T) {
	ts, _ := startTestServer(t, nil)
	url := wsURL(ts, "/demo_chatroom")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := client.New(core.NewStore(), client.WSDialer{Timeout: time.Second}, url, nil)
	bob := client.New(core.NewStore(), client.WSDialer{Timeout: time.Second}, url, nil)

	done := make(chan error, 2)
	go func() { done <- alice.Run(ctx) }()
	go func() { done <- bob.Run(ctx) }()

	for name, c := range map[string]*client.Client{"alice": alice, "bob": bob} {
		awaitPrompt(t, c, client.PromptName)
		if got := c.Store().Overlay(); got != core.Settings() {
			t.Fatalf("%s: expected settings overlay, got %s", name, got)
		}
		if err := c.SetName(ctx, name); err != nil {
			t.Fatalf("%s: set name: %v", name, err)
		}
		if !c.HideSettings() {
			t.Fatalf("%s: settings not hidden", name)
		}
		waitFor(t, name+" listing", func() bool {
			_, ok := c.Store().Room("lobby")
			return ok
		})
	}

	if err := alice.JoinRoom(ctx, "lobby"); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	waitFor(t, "alice in lobby", func() bool {
		room, ok := alice.Store().ActiveRoom()
		return ok && room.Name == "lobby"
	})

	if err := bob.JoinRoom(ctx, "lobby"); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	waitFor(t, "alice sees bob", func() bool {
		for _, m := range alice.Store().Messages() {
			if m.Kind == core.MessageNewUser && m.Author == "bob" {
				return true
			}
		}
		return false
	})
	waitFor(t, "bob sees two members", func() bool {
		room, ok := bob.Store().Room("lobby")
		return ok && room.MemberCount == 2
	})

	if err := bob.SendMessage(ctx, "hello alice"); err != nil {
		t.Fatalf("bob send: %v", err)
	}
	waitFor(t, "alice receives message", func() bool {
		for _, m := range alice.Store().Messages() {
			if m == (core.Message{Kind: core.MessageChat, Author: "bob", Body: "hello alice"}) {
				return true
			}
		}
		return false
	})

	if err := alice.CreateRoom(ctx, "dev"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	waitFor(t, "bob learns about dev", func() bool {
		_, ok := bob.Store().Room("dev")
		return ok
	})

	if err := alice.Close(); err != nil {
		t.Fatalf("close alice: %v", err)
	}
	waitFor(t, "bob sees alice leave", func() bool {
		room, ok := bob.Store().Room("lobby")
		return ok && room.MemberCount == 1
	})
	waitFor(t, "alice error overlay", func() bool {
		return alice.Store().Overlay().Mode == core.OverlayError
	})
	if err := alice.SendMessage(ctx, "anyone?"); err == nil {
		t.Fatalf("expected send after close to fail")
	}

	_ = bob.Close()
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run returned error: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("client run did not return")
		}
	}
}

type rawFrame struct {
	Type     string          `json:"type"`
	Query    string          `json:"query,omitempty"`
	Notice   string          `json:"notice,omitempty"`
	Chatroom string          `json:"chatroom,omitempty"`
	Event    json.RawMessage `json:"event,omitempty"`
}

func TestWebSocketRawProtocol(t *testing.T) {
	ts, _ := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/demo_chatroom"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() rawFrame {
		t.Helper()
		var f rawFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read: %v", err)
		}
		return f
	}

	if f := read(); f.Type != "query" || f.Query != "name" {
		t.Fatalf("expected name query, got %+v", f)
	}
	if f := read(); f.Type != "event" || !strings.Contains(string(f.Event), `"chatrooms":[["lobby",0]]`) {
		t.Fatalf("expected listing, got %+v %s", f, f.Event)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"join"`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := read(); f.Type != "notice" || f.Notice != noticeMalformed {
		t.Fatalf("expected malformed notice, got %+v", f)
	}

	_ = wsjson.Write(ctx, conn, map[string]string{"type": "name", "name": "carol"})
	_ = wsjson.Write(ctx, conn, map[string]string{"type": "join", "chatroom": "nowhere"})
	if f := read(); f.Type != "notice" || f.Notice != "Chatroom nowhere not found." {
		t.Fatalf("expected not found notice, got %+v", f)
	}

	_ = wsjson.Write(ctx, conn, map[string]string{"type": "join", "chatroom": "lobby"})
	if f := read(); f.Type != "join" || f.Chatroom != "lobby" {
		t.Fatalf("expected join ack, got %+v", f)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	ts, _ := startTestServer(t, func(cfg *config.Config) {
		cfg.MessagesPerMinute = 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/demo_chatroom"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_ = wsjson.Write(ctx, conn, map[string]string{"type": "name", "name": "dave"})
	_ = wsjson.Write(ctx, conn, map[string]string{"type": "join", "chatroom": "lobby"})

	for {
		var f rawFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Type == "join" {
			t.Fatalf("join should have been rate limited")
		}
		if f.Type == "notice" {
			if f.Notice != noticeRateLimited {
				t.Fatalf("unexpected notice %q", f.Notice)
			}
			return
		}
	}
}
