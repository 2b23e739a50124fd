// Package logger provides the process-wide leveled logger.
//
// The API is printf-style so call sites read as plain log lines:
//
//	logger.Info("PUT: path=%s size=%d", path, size)
//
// Output is produced by zap. Configure selects the encoder (text or json) and
// the destination (stdout, stderr or a file). Until Configure is called the
// logger writes text lines to stdout at INFO level.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = newSugar("text", zapcore.Lock(os.Stdout))
	output *os.File
)

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	l, err := ParseLevel(name)
	if err != nil {
		return
	}
	level.SetLevel(l.zapLevel())
}

// CurrentLevel returns the active minimum level.
func CurrentLevel() Level {
	switch level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// Configure rebuilds the logger.
//
// Parameters:
//   - levelName: DEBUG, INFO, WARN or ERROR
//   - format: "text" (console encoder) or "json"
//   - dest: "stdout", "stderr" or a file path opened in append mode
func Configure(levelName, format, dest string) error {
	l, err := ParseLevel(levelName)
	if err != nil {
		return err
	}

	var (
		ws   zapcore.WriteSyncer
		file *os.File
	)
	switch strings.ToLower(dest) {
	case "", "stdout":
		ws = zapcore.Lock(os.Stdout)
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	default:
		file, err = os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log output %q: %w", dest, err)
		}
		ws = zapcore.Lock(file)
	}

	mu.Lock()
	oldSugar, oldOutput := sugar, output
	level.SetLevel(l.zapLevel())
	sugar = newSugar(format, ws)
	output = file
	mu.Unlock()

	// Writers hold the read lock while writing, so none is left on the old
	// core once the swap above has completed.
	_ = oldSugar.Sync()
	if oldOutput != nil {
		_ = oldOutput.Close()
	}
	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

func newSugar(format string, ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.ConsoleSeparator = " "
		encCfg.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString("[" + t.Format("2006-01-02 15:04:05") + "]")
		}
		encCfg.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString("[" + l.CapitalString() + "]")
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(enc, ws, level)).Sugar()
}

func log(l Level, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	s := sugar

	switch l {
	case LevelDebug:
		s.Debugf(format, v...)
	case LevelInfo:
		s.Infof(format, v...)
	case LevelWarn:
		s.Warnf(format, v...)
	case LevelError:
		s.Errorf(format, v...)
	}
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
