package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/config"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEventsCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"events"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(events.Names())+1)
	assert.Regexp(t, `^HANDLER NAME\s+WIRE NAME$`, lines[0])
	assert.Regexp(t, `^player_message\s+PlayerMessage$`, findLine(lines, "player_message"))
	assert.Regexp(t, `^block_broken\s+BlockBroken$`, findLine(lines, "block_broken"))
}

func findLine(lines []string, prefix string) string {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix+" ") {
			return l
		}
	}
	return ""
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(out.String(), `bedrocknet version "dev (unknown)"`), out.String())
}

func TestSetupLogging(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var out bytes.Buffer
	logger, err := setupLogging(&out, config.Log{Level: "warn", JSON: true})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("conn_id", "abc"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	rec := gjson.Parse(lines[0])
	assert.Equal(t, "warn", rec.Get("level").String())
	assert.Equal(t, "shown", rec.Get("message").String())
	assert.Equal(t, "abc", rec.Get("conn_id").String())

	_, err = setupLogging(&out, config.Log{Level: "chatty"})
	assert.Error(t, err)
}

func TestPrinterEvents(t *testing.T) {
	t.Parallel()

	player := events.Player{Name: "Steve", Position: events.Position{X: 1, Y: 64, Z: -2.5}}
	generic, err := events.Decode(events.MobKilled, []byte(`{"mobType":12}`))
	require.NoError(t, err)

	tests := []struct {
		name string
		ev   events.Event
		want string
	}{
		{
			name: "chat",
			ev:   &events.Message{Message: "hi", Sender: "Steve", Type: "chat"},
			want: "[PlayerMessage] <Steve> hi\n",
		},
		{
			name: "system message",
			ev:   &events.Message{Message: "Day 3", Type: "title"},
			want: "[PlayerMessage] Day 3\n",
		},
		{
			name: "block",
			ev:   &events.BlockEvent{Name: events.BlockBroken, Player: player, Block: events.Block{Namespace: "minecraft", ID: "stone"}},
			want: "[BlockBroken] Steve minecraft:stone\n",
		},
		{
			name: "item",
			ev:   &events.ItemEvent{Name: events.ItemUsed, Player: player, Item: events.Item{Namespace: "minecraft", ID: "bread"}, Count: 1},
			want: "[ItemUsed] Steve minecraft:bread x1\n",
		},
		{
			name: "travel",
			ev:   &events.Travel{Name: events.PlayerTravelled, Player: player},
			want: "[PlayerTravelled] Steve at 1.0 64.0 -2.5\n",
		},
		{
			name: "generic",
			ev:   generic,
			want: "[MobKilled] {\"mobType\":12}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			newPrinter(&out, false).Event(context.Background(), tt.ev)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestPrinterVerboseDumpsPayload(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	newPrinter(&out, true).Event(context.Background(), &events.Message{Message: "hi", Sender: "Alex"})

	assert.Contains(t, out.String(), "[PlayerMessage] <Alex> hi\n")
	assert.Contains(t, out.String(), "Sender")
	assert.Contains(t, out.String(), `"Alex"`)
}

func TestPrinterResult(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newPrinter(&out, false)
	p.Result("say hi", &bedrocknet.CommandResult{Message: "hi"}, nil)
	p.Result("nope", &bedrocknet.CommandResult{Message: "Unknown command", StatusCode: 1}, nil)
	p.Result("say hi", nil, bedrocknet.ErrNotConnected)

	assert.Equal(t, "> hi\n> Unknown command (status 1)\n! say hi: no game client connected\n", out.String())
}

func TestPrinterBanner(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newPrinter(&out, false)
	p.Banner(bedrocknet.Lifecycle{Host: "localhost", Port: 8000}, "/")
	p.Banner(bedrocknet.Lifecycle{Host: "localhost", Port: 8000}, "/mc")

	assert.Contains(t, out.String(), ":: /connect ws://localhost:8000\n")
	assert.Contains(t, out.String(), ":: /connect ws://localhost:8000/mc\n")
}

var connectHint = regexp.MustCompile(`/connect ws://(127\.0\.0\.1:\d+)`)

func TestServe(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Host:           "127.0.0.1",
		Port:           0,
		Path:           "/",
		Subscribe:      []string{"player_message"},
		CommandTimeout: 5 * time.Second,
	}
	logger := slog.New(slog.DiscardHandler)
	out := &syncBuffer{}
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { stdinW.Close(); stdinR.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger, newPrinter(out, false), stdinR) }()

	var addr string
	require.Eventually(t, func() bool {
		m := connectHint.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		addr = m[1]
		return true
	}, 5*time.Second, 10*time.Millisecond)

	game, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	require.NoError(t, err)
	defer game.Close()
	game.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, data, err := game.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "PlayerMessage", gjson.GetBytes(data, "body.eventName").String())

	require.NoError(t, game.WriteMessage(websocket.TextMessage,
		[]byte(`{"header":{"messagePurpose":"event","eventName":"PlayerMessage"},"body":{"message":"hello","sender":"Steve"}}`)))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[PlayerMessage] <Steve> hello")
	}, 5*time.Second, 10*time.Millisecond)

	// Console commands go to the game client
	_, err = stdinW.Write([]byte("/say from console\n"))
	require.NoError(t, err)
	_, data, err = game.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "say from console", gjson.GetBytes(data, "body.commandLine").String())
	requestID := gjson.GetBytes(data, "header.requestId").String()
	require.NoError(t, game.WriteMessage(websocket.TextMessage,
		[]byte(`{"header":{"messagePurpose":"commandResponse","requestId":"`+requestID+`"},"body":{"statusCode":0,"statusMessage":"done"}}`)))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "> done")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Contains(t, out.String(), "game client")
}

func TestServeRejectsUnknownSubscription(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Host: "127.0.0.1", Path: "/", Subscribe: []string{"not_an_event"}}
	err := serve(context.Background(), cfg, slog.New(slog.DiscardHandler), newPrinter(&bytes.Buffer{}, false), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bedrocknet.ErrUnknownEvent), "got %v", err)
}
