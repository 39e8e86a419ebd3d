// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the configured level and format.
// Console output is colored only when w is a terminal.
func New(w io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	output := w
	switch cfg.Format {
	case "", "console":
		output = zerolog.ConsoleWriter{
			Out:     w,
			NoColor: !isTerminal(w),
		}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", cfg.Format)
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// Setup builds a stderr logger and routes the standard library log package
// through it.
func Setup(cfg config.LogConfig) (zerolog.Logger, error) {
	logger, err := New(os.Stderr, cfg)
	if err != nil {
		return logger, err
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(logger)

	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
