// Package console is a line-oriented front end for the chat client. It
// prints store changes and prompts, and turns input lines into intents.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/client"
	"github.com/vovakirdan/roomchat/internal/core"
)

// ErrQuit is returned by Execute for the /quit command.
var ErrQuit = errors.New("quit")

// Session is the part of the chat client the console drives.
type Session interface {
	Store() *core.Store
	Prompts() <-chan client.Prompt
	SetName(ctx context.Context, name string) error
	SendMessage(ctx context.Context, body string) error
	CreateRoom(ctx context.Context, name string) error
	JoinRoom(ctx context.Context, name string) error
	ShowSettings() bool
	HideSettings() bool
}

// Console renders a Session as plain text lines.
type Console struct {
	session     Session
	defaultName string
	log         *zerolog.Logger

	mu      sync.Mutex
	out     io.Writer
	printed int
}

// New creates a console writing to out. A non-empty defaultName answers the
// server's name query without asking.
func New(session Session, out io.Writer, defaultName string, logger *zerolog.Logger) *Console {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Console{
		session:     session,
		defaultName: defaultName,
		log:         logger,
		out:         out,
	}
}

// Run prints state changes and executes lines from in until /quit, end of
// input or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	unsubscribe := c.session.Store().Subscribe(c.render)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.handlePrompts(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.printf("! %s\n", describe(err))
			}
		}
	}
}

// Execute runs one input line.
func (c *Console) Execute(ctx context.Context, line string) error {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "/") {
		return c.session.SendMessage(ctx, line)
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "name":
		if err := c.session.SetName(ctx, arg); err != nil {
			return err
		}
		c.session.HideSettings()
		return nil
	case "join":
		return c.session.JoinRoom(ctx, arg)
	case "create":
		return c.session.CreateRoom(ctx, arg)
	case "rooms":
		c.printRooms()
		return nil
	case "settings":
		if !c.session.ShowSettings() {
			return fmt.Errorf("settings unavailable in %s", c.session.Store().Overlay())
		}
		return nil
	case "quit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command /%s", cmd)
	}
}

func (c *Console) handlePrompts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-c.session.Prompts():
			c.prompt(ctx, p)
		}
	}
}

func (c *Console) prompt(ctx context.Context, p client.Prompt) {
	switch p.Kind {
	case client.PromptName:
		if c.defaultName == "" {
			c.printf("? choose a name with /name <name>\n")
			return
		}
		if err := c.session.SetName(ctx, c.defaultName); err != nil {
			c.log.Warn().Err(err).Msg("automatic name failed")
			c.printf("! %s\n", describe(err))
			return
		}
		c.session.HideSettings()
	default:
		c.printf("! %s\n", p.Text)
	}
}

// render is the store observer. It only reads the store.
func (c *Console) render(change core.Change) {
	st := c.session.Store()

	if change.Has(core.ChangeName) {
		if name, ok := st.Name(); ok {
			c.printf("* you are %s\n", name)
		}
	}
	if change.Has(core.ChangeRooms) {
		c.printRooms()
	}
	if change.Has(core.ChangeActiveRoom) {
		if room, ok := st.ActiveRoom(); ok {
			c.printf("* now chatting in %s\n", room.Name)
		}
	}
	if change.Has(core.ChangeMessages) {
		c.printMessages(st.Messages())
	}
	if change.Has(core.ChangeOverlay) {
		c.printOverlay(st.Overlay())
	}
}

func (c *Console) printMessages(msgs []core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(msgs) < c.printed {
		c.printed = 0
	}
	for _, m := range msgs[c.printed:] {
		fmt.Fprintln(c.out, formatMessage(m))
	}
	c.printed = len(msgs)
}

func (c *Console) printRooms() {
	rooms := c.session.Store().Rooms()
	parts := make([]string, 0, len(rooms))
	for _, r := range rooms {
		parts = append(parts, fmt.Sprintf("%s (%d)", r.Name, r.MemberCount))
	}
	c.printf("* rooms: %s\n", strings.Join(parts, ", "))
}

func (c *Console) printOverlay(o core.Overlay) {
	switch o.Mode {
	case core.OverlayOff:
		return
	case core.OverlaySettings:
		c.printf("* settings open, /name <name> to continue\n")
	default:
		c.printf("* %s: %s\n", o.Mode, o.Message)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func formatMessage(m core.Message) string {
	switch m.Kind {
	case core.MessageNewUser:
		return fmt.Sprintf("* %s joined", m.Author)
	case core.MessageLogoff:
		return fmt.Sprintf("* %s left", m.Author)
	default:
		return fmt.Sprintf("%s: %s", m.Author, m.Body)
	}
}

func describe(err error) string {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Message
	}
	return err.Error()
}
