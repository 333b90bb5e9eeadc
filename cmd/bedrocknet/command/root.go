package command

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luciancaetano/bedrocknet/internal/config"
)

// NewRootCommand builds the bedrocknet command tree.
func NewRootCommand() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "bedrocknet",
		Short:         "WebSocket broker for Minecraft Bedrock's /connect command",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "explicit assign a configuration file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "log as JSON instead of console output")
	root.PersistentFlags().BoolP("verbose", "v", false, "dump full event payloads")
	bindFlags(v, root, map[string]string{
		"log.level": "log-level",
		"log.json":  "log-json",
	})

	root.AddCommand(
		newServeCommand(v),
		newEventsCommand(),
		newVersionCommand(),
	)
	return root
}

// bindFlags binds persistent or local flags of cmd into v under the given keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("flag %q is not defined", name))
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads the configuration selected by the --config flag.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return cfg, nil
}

// setupLogging installs zerolog behind slog as the default logger.
func setupLogging(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	out := w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	}
	log := zerolog.New(out).With().Timestamp().Logger()

	logger := slog.New(zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}
