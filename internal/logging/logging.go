package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options configures the loggers
type Options struct {
	// Level is the minimum console level (debug, info, warn, error)
	Level string
	// ErrorLogPath receives every error-level entry, appended one per line.
	// Empty disables the file.
	ErrorLogPath string
	// Console defaults to stderr
	Console io.Writer
}

// Loggers bundles the zap logger used by the HTTP layer and the slog logger
// used everywhere else. Both write through the same cores.
type Loggers struct {
	Zap  *zap.Logger
	Slog *slog.Logger

	closeFile func() error
}

// New builds the loggers
func New(opts Options) (*Loggers, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	l := &Loggers{closeFile: func() error { return nil }}
	if opts.ErrorLogPath != "" {
		f, err := os.OpenFile(opts.ErrorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening error log: %w", err)
		}
		l.closeFile = f.Close

		fileCfg := zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: ":",
			LineEnding:       zapcore.DefaultLineEnding,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileCfg), zapcore.Lock(f), zapcore.ErrorLevel))
	}

	core := zapcore.NewTee(cores...)
	l.Zap = zap.New(core)
	l.Slog = slog.New(zapslog.NewHandler(core))
	return l, nil
}

// Close flushes buffered entries and closes the error log
func (l *Loggers) Close() error {
	_ = l.Zap.Sync()
	return l.closeFile()
}
