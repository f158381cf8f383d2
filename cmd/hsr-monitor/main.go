package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hsr-monitor/internal/apperr"
)

const usage = `Usage: hsr-monitor <command> [flags]

Commands:
  run          poll once and alert on new notices (exit status reflects upstream failure)
  watch        poll on a fixed interval until interrupted
  view         show the latest notices as a table, flagging those new since the last visit
  subscribe    add an email subscriber
  subscribers  list email subscribers
  status       show the run metrics last reported to Redis
  secret       store a credential in the system keyring (secret set --key FTC_API_KEY)

Run "hsr-monitor <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "run":
		err = runCommand(args)
	case "watch":
		err = watchCommand(args)
	case "view":
		err = viewCommand(args)
	case "subscribe":
		err = subscribeCommand(args)
	case "subscribers":
		err = subscribersCommand(args)
	case "status":
		err = statusCommand(args)
	case "secret":
		err = secretCommand(args, os.Stdin)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		var ce *apperr.ConfigError
		if errors.As(err, &ce) {
			slog.Error("Invalid configuration", "error", err)
		} else {
			slog.Error("Command failed", "error", err)
		}
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger. LOG_LEVEL=debug enables
// debug output and LOG_FORMAT=json switches to the JSON handler.
func setupLogging(level, format string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if strings.ToLower(format) == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}
