package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// "goroutine 123 [running]:" fits comfortably.
	stackBufSize = 32
	// Shortest header we can still parse an id out of.
	minStackHeaderLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10
	unknownGoroutine   = "unknown"
	consoleTimeFormat  = "15:04:05"
)

var (
	// Logger is the process wide logger. Fill loops run on worker goroutines,
	// so every event carries the goroutine id under "goid".
	Logger    zerolog.Logger
	stackPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, stackBufSize)
		},
	}
)

func init() {
	Logger = New(os.Stderr, zerolog.InfoLevel)
	log.Logger = Logger
}

// goroutineID parses the current goroutine id from the first stack line.
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return unknownGoroutine
	}
	defer stackPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	if n < minStackHeaderLen {
		return unknownGoroutine
	}

	end := goroutinePrefixLen
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == goroutinePrefixLen {
		return unknownGoroutine
	}
	return string(buf[goroutinePrefixLen:end])
}

// New builds a console logger writing to out at the given level.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: consoleTimeFormat,
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// SetOutput redirects the process logger, keeping its level.
func SetOutput(out io.Writer) {
	Logger = New(out, Logger.GetLevel())
	log.Logger = Logger
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

// Info starts an info level event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error starts an error level event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn starts a warning level event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug starts a debug level event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal starts a fatal level event; Msg exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
