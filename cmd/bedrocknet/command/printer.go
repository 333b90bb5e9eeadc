package command

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
)

// printer writes human readable lines for events, lifecycle changes and command results.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	dump    *pp.PrettyPrinter
	verbose bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	dump := pp.New()
	dump.SetOutput(w)
	dump.SetColoringEnabled(!color.NoColor)
	return &printer{w: w, dump: dump, verbose: verbose}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

// Banner tells the player what to type in the game chat.
func (p *printer) Banner(lc bedrocknet.Lifecycle, path string) {
	url := fmt.Sprintf("ws://%s:%d", lc.Host, lc.Port)
	if path != "/" {
		url += path
	}
	p.printf("%s\n%s %s\n%s %s\n",
		color.GreenString("WebSocket Server - running at"),
		color.HiBlackString("::"), url,
		color.HiBlackString("::"), color.New(color.Bold).Sprint("/connect "+url),
	)
}

func (p *printer) Connected(_ context.Context, lc bedrocknet.Lifecycle) {
	p.printf("%s game client %s\n", color.GreenString("+"), lc.RemoteAddr)
}

func (p *printer) Disconnected(_ context.Context, lc bedrocknet.Lifecycle) {
	how := "dropped"
	if lc.Voluntary {
		how = "left"
	}
	p.printf("%s game client %s %s\n", color.RedString("-"), lc.RemoteAddr, how)
}

// Event prints one line per event, followed by the full payload in verbose mode.
func (p *printer) Event(_ context.Context, ev events.Event) {
	tag := color.CyanString("[%s]", ev.EventName())

	switch e := ev.(type) {
	case *events.Message:
		if e.Sender != "" {
			p.printf("%s <%s> %s\n", tag, color.YellowString(e.Sender), e.Message)
		} else {
			p.printf("%s %s\n", tag, e.Message)
		}
	case *events.BlockEvent:
		p.printf("%s %s %s:%s\n", tag, e.Player.Name, e.Block.Namespace, e.Block.ID)
	case *events.ItemEvent:
		p.printf("%s %s %s:%s x%d\n", tag, e.Player.Name, e.Item.Namespace, e.Item.ID, e.Count)
	case *events.Travel:
		pos := e.Player.Position
		p.printf("%s %s at %.1f %.1f %.1f\n", tag, e.Player.Name, pos.X, pos.Y, pos.Z)
	case *events.Generic:
		p.printf("%s %s\n", tag, e.Body.Raw)
	}

	if p.verbose {
		p.mu.Lock()
		p.dump.Println(ev)
		p.mu.Unlock()
	}
}

// Result prints the outcome of a command typed on the console.
func (p *printer) Result(commandLine string, res *bedrocknet.CommandResult, err error) {
	switch {
	case err != nil:
		p.printf("%s %s: %v\n", color.RedString("!"), commandLine, err)
	case res.OK():
		p.printf("%s %s\n", color.GreenString(">"), res.Message)
	default:
		p.printf("%s %s (status %d)\n", color.RedString(">"), res.Message, res.StatusCode)
	}
}
