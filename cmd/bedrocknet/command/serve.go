package command

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luciancaetano/bedrocknet"
	"github.com/luciancaetano/bedrocknet/events"
	"github.com/luciancaetano/bedrocknet/internal/config"
	"github.com/luciancaetano/bedrocknet/internal/relay"
	"github.com/luciancaetano/bedrocknet/pkg/slogx"
	"github.com/luciancaetano/bedrocknet/ws"
)

const stopTimeout = 5 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wait for a game client to /connect and print the events it sends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			logger, err := setupLogging(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			out := newPrinter(cmd.OutOrStdout(), verbose)

			var in io.Reader
			if console, _ := cmd.Flags().GetBool("console"); console {
				in = cmd.InOrStdin()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, out, in)
		},
	}

	cmd.Flags().String("host", "localhost", "host the game client connects to")
	cmd.Flags().IntP("port", "p", 8000, "listening port")
	cmd.Flags().String("path", "/", "WebSocket path")
	cmd.Flags().StringSliceP("subscribe", "s", nil, "events to subscribe to, e.g. player_message,BlockBroken")
	cmd.Flags().Duration("command-timeout", 30*time.Second, "how long to wait for a command response, 0 waits forever")
	cmd.Flags().Int64("max-in-flight", 100, "maximum number of commands awaiting a response")
	cmd.Flags().String("nats-url", "", "relay events and commands over this NATS server")
	cmd.Flags().String("nats-prefix", "bedrock", "subject prefix of the NATS relay")
	cmd.Flags().Bool("console", false, "read commands from stdin and issue them to the game client")
	bindFlags(v, cmd, map[string]string{
		"host":            "host",
		"port":            "port",
		"path":            "path",
		"subscribe":       "subscribe",
		"command_timeout": "command-timeout",
		"max_in_flight":   "max-in-flight",
		"nats.url":        "nats-url",
		"nats.prefix":     "nats-prefix",
	})

	return cmd
}

// serve runs the broker until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, out *printer, in io.Reader) error {
	options := []ws.Option{
		ws.WithPath(cfg.Path),
		ws.WithLogger(logger),
		ws.WithCommandTimeout(cfg.CommandTimeout),
		ws.WithMaxInFlight(cfg.MaxInFlight),
		ws.OnReady(func(_ context.Context, lc bedrocknet.Lifecycle) { out.Banner(lc, cfg.Path) }),
		ws.OnConnect(out.Connected),
		ws.OnDisconnect(out.Disconnected),
	}
	if cfg.RateLimit.Enabled {
		options = append(options, ws.WithRateLimit(cfg.RateLimit.MessagesPerSecond, cfg.RateLimit.Burst))
	} else {
		options = append(options, ws.WithRateLimitConfig(ws.NoRateLimit()))
	}

	wsCfg, err := ws.NewConfig(cfg.Addr(), options...)
	if err != nil {
		return errors.Wrap(err, "configure broker")
	}
	broker := ws.New(wsCfg)

	handler := bedrocknet.EventHandler(out.Event)

	var rl *relay.Relay
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("bedrocknet"))
		if err != nil {
			return errors.Wrapf(err, "connect to NATS at %s", cfg.NATS.URL)
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("drain NATS connection", slogx.Error(err))
			}
		}()

		rl = relay.New(nc, cfg.NATS.Prefix, broker, logger)
		handler = func(ctx context.Context, ev events.Event) {
			out.Event(ctx, ev)
			rl.Forward(ctx, ev)
		}
		if err := rl.Start(); err != nil {
			return errors.Wrap(err, "start NATS relay")
		}
		defer rl.Close()
	}

	for _, name := range cfg.Subscribe {
		if err := broker.Register(ctx, name, handler); err != nil {
			return errors.Wrapf(err, "subscribe to %q", name)
		}
	}

	if err := broker.Start(ctx); err != nil {
		return errors.Wrap(err, "start broker")
	}

	if in != nil {
		go runConsole(ctx, broker, in, out)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := broker.Stop(stopCtx); err != nil {
		return errors.Wrap(err, "stop broker")
	}
	return nil
}

// runConsole issues every line read from in as a command.
func runConsole(ctx context.Context, broker bedrocknet.Broker, in io.Reader, out *printer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "/")
		if line == "" {
			continue
		}
		res, err := broker.IssueCommand(ctx, line)
		out.Result(line, res, err)
		if ctx.Err() != nil {
			return
		}
	}
}
