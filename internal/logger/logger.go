// Package logger provides the small leveled logger the two commands in
// this repository use for lifecycle reporting, built the way
// the teacher's own internal/logger wraps the standard log package with an
// optional rotating file sink from gopkg.in/natefinch/lumberjack.v2. The
// core packages (internal/layout, internal/bitmap, internal/fsops, ...)
// never log themselves; only the formatter and the mount driver do.
package logger

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level selects which messages a Logger emits.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
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

// Logger is a minimal leveled wrapper over *log.Logger.
type Logger struct {
	min  Level
	std  *log.Logger
	file io.Closer // non-nil when writing to a rotating file
}

// New returns a Logger writing to stderr at or above min.
func New(min Level) *Logger {
	return &Logger{min: min, std: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewRotatingFile returns a Logger writing to a lumberjack-rotated file,
// for long-running mounts (spec.md §5: the driver owns the mapping for the
// lifetime of the mount).
func NewRotatingFile(path string, min Level) *Logger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return &Logger{min: min, std: log.New(lj, "", log.LstdFlags), file: lj}
}

// Close releases the rotating file sink, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.std.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Tracef(format string, args ...any) { l.log(LevelTrace, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
