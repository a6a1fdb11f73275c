// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New builds a logger writing to w. format is "text" (colored console) or "json".
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %s", level)
		}
	}

	switch format {
	case "", "text":
		replacer := func(_ []string, a slog.Attr) slog.Attr {
			if err, ok := a.Value.Any().(error); ok {
				aErr := tint.Err(err)
				aErr.Key = a.Key
				return aErr
			}
			return a
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:       lvl,
			TimeFormat:  time.TimeOnly,
			ReplaceAttr: replacer,
			AddSource:   lvl == slog.LevelDebug,
			NoColor:     !isTerminal(w),
		})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	}
	return nil, fmt.Errorf("invalid log format: %s", format)
}

// Setup installs a stderr logger as the slog default and returns it
func Setup(level, format string) (*slog.Logger, error) {
	logger, err := New(os.Stderr, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
