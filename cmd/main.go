package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vellumchat/vellum-go/client"
	"github.com/vellumchat/vellum-go/config"
	"github.com/vellumchat/vellum-go/content"
	"github.com/vellumchat/vellum-go/domain"
	"github.com/vellumchat/vellum-go/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	credsPath := filepath.Join(configDir(), "vellum", "session.json")
	c := client.NewDefault(cfg, credsPath, logger)

	app := &app{client: c, out: os.Stdout}
	app.subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return app.run(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("terminal client exited with error")
	}
	c.Disconnect()
}

type app struct {
	client *client.Client
	out    *os.File

	rows    []chatRowRef
	current string // selected chat id
}

type chatRowRef struct {
	id   string
	name string
}

func (a *app) subscribe() {
	a.client.OnLog(func(line string) {
		fmt.Fprintf(a.out, "* %s\n", line)
	})
	a.client.OnLoginSuccess(func() {
		fmt.Fprintf(a.out, "* logged in as %s\n", a.client.CurrentUsername())
		a.printChats()
	})
	a.client.OnMessageReceived(func(msg domain.Message) {
		if msg.ChatID != a.current {
			return
		}
		a.printMessage(msg)
	})
	a.client.OnMessageDeleted(func(chatID, messageID string) {
		if chatID == a.current {
			fmt.Fprintf(a.out, "* message %s deleted\n", messageID)
		}
	})
	a.client.OnUserTyping(func(chatID, userID string) {
		if chatID != a.current {
			return
		}
		if typing := a.client.TypingUsers(chatID); len(typing) > 0 {
			names := make([]string, len(typing))
			for i, id := range typing {
				names[i] = a.client.Store().Username(id)
			}
			fmt.Fprintf(a.out, "* typing: %s\n", strings.Join(names, ", "))
		}
	})
	a.client.OnPresenceChanged(func(userID string, online bool) {
		state := "offline"
		if online {
			state = "online"
		}
		fmt.Fprintf(a.out, "* %s is %s\n", a.client.Store().Username(userID), state)
	})
}

func (a *app) run(ctx context.Context) error {
	if err := a.client.ResumeSession(ctx); err != nil {
		fmt.Fprintln(a.out, "* no stored session; use /login <user> <pass> or /register <user> <pass>")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		a.handle(ctx, line)
	}
	return scanner.Err()
}

func (a *app) handle(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		if a.current == "" {
			fmt.Fprintln(a.out, "* no chat selected, use /open <n>")
			return
		}
		if err := a.client.SendText(a.current, line); err != nil {
			fmt.Fprintf(a.out, "* send failed: %v\n", err)
		}
		return
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/login", "/register":
		if len(fields) != 3 {
			fmt.Fprintf(a.out, "* usage: %s <user> <pass>\n", fields[0])
			return
		}
		var err error
		if fields[0] == "/login" {
			err = a.client.ConnectAndLogin(ctx, fields[1], fields[2])
		} else {
			err = a.client.ConnectAndRegister(ctx, fields[1], fields[2])
		}
		if err != nil {
			fmt.Fprintf(a.out, "* %v\n", err)
		}
	case "/chats":
		a.printChats()
	case "/open":
		if len(fields) != 2 {
			fmt.Fprintln(a.out, "* usage: /open <n>")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(a.rows) {
			fmt.Fprintln(a.out, "* no such chat")
			return
		}
		a.open(a.rows[n-1])
	case "/join":
		if len(fields) != 2 {
			fmt.Fprintln(a.out, "* usage: /join <chat-id>")
			return
		}
		if err := a.client.JoinChannel(fields[1]); err != nil {
			fmt.Fprintf(a.out, "* %v\n", err)
		}
	case "/name":
		if len(fields) != 2 {
			fmt.Fprintln(a.out, "* usage: /name <username>")
			return
		}
		if err := a.client.UpdateUsername(fields[1]); err != nil {
			fmt.Fprintf(a.out, "* %v\n", err)
		}
	case "/logout":
		a.client.Logout()
		fmt.Fprintln(a.out, "* logged out")
	default:
		fmt.Fprintln(a.out, "* commands: /login /register /chats /open /join /name /logout /quit")
	}
}

func (a *app) printChats() {
	rows := a.client.ChatList()
	a.rows = a.rows[:0]
	for i, row := range rows {
		name := row.DisplayName
		if name == "" {
			name = row.ChatID
		}
		marker := " "
		if row.Online {
			marker = "+"
		}
		preview := ""
		if row.LastMessage != nil {
			parsed := content.Resolve(row.LastMessage.Content)
			switch {
			case parsed.IsTheme:
				preview = "[theme]"
			case parsed.IsFile:
				preview = "[file]"
			default:
				preview = parsed.Text
			}
		} else if row.Virtual {
			preview = "start a conversation"
		}
		fmt.Fprintf(a.out, "%2d %s %-20s %s\n", i+1, marker, name, preview)
		a.rows = append(a.rows, chatRowRef{id: row.ChatID, name: name})
	}
}

func (a *app) open(row chatRowRef) {
	a.current = row.id
	fmt.Fprintf(a.out, "--- %s ---\n", row.name)
	chat, ok := a.client.Store().Chat(row.id)
	if !ok {
		return
	}
	for _, msg := range chat.Messages {
		a.printMessage(msg)
	}
}

func (a *app) printMessage(msg domain.Message) {
	parsed := content.Resolve(msg.Content)
	sender := a.client.Store().Username(msg.SenderID)
	if msg.SenderID == a.client.CurrentUserID() {
		sender = "you"
	}
	switch {
	case parsed.IsFile:
		fmt.Fprintf(a.out, "<%s> [%s: %s] %s\n", sender, parsed.FileKind, parsed.FileName, parsed.Text)
	case parsed.IsTheme:
		fmt.Fprintf(a.out, "<%s> switched theme to %s\n", sender, parsed.ThemeName)
	default:
		fmt.Fprintf(a.out, "<%s> %s\n", sender, parsed.Text)
	}
	if parsed.IsForwarded {
		fmt.Fprintf(a.out, "     forwarded from %s\n", parsed.ForwardedFrom)
	}
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}
