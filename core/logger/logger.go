package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/falkordb/falkordb-mcp/core/domain/interfaces"
)

const (
	LogLevelError = 1
	LogLevelWarn  = 2
	LogLevelInfo  = 3
	LogLevelDebug = 4
)

const timeFormat = "2006-01-02T15:04:05.000Z"

var (
	levelMu     sync.RWMutex
	globalLevel = LogLevelInfo

	tagMu      sync.RWMutex
	tagFilters []string

	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
	logFile  *os.File
)

// Logger is the tagged logging contract used across the gateway.
type Logger = interfaces.Logger

// SetLogLevel sets the global log level (1=ERROR ... 4=DEBUG). Out of range
// values are ignored.
func SetLogLevel(level int) {
	if level < LogLevelError || level > LogLevelDebug {
		return
	}
	levelMu.Lock()
	globalLevel = level
	levelMu.Unlock()
	zerolog.SetGlobalLevel(toZerolog(level))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() int {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return globalLevel
}

// SetTagFilter parses a comma-separated filter such as "hub,stream,-http".
// Entries prefixed with "-" exclude a tag; any plain entry turns the filter
// into an allow-list.
func SetTagFilter(filter string) {
	tagMu.Lock()
	defer tagMu.Unlock()

	tagFilters = nil
	for _, tag := range strings.Split(filter, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tagFilters = append(tagFilters, tag)
		}
	}
}

func tagEnabled(tag string) bool {
	tagMu.RLock()
	defer tagMu.RUnlock()

	if len(tagFilters) == 0 {
		return true
	}

	matches := func(filter string) bool {
		return tag == filter || strings.HasPrefix(tag, filter+":")
	}

	allowList := false
	allowed := false
	for _, filter := range tagFilters {
		if excluded, ok := strings.CutPrefix(filter, "-"); ok {
			if matches(excluded) {
				return false
			}
			continue
		}
		allowList = true
		if matches(filter) {
			allowed = true
		}
	}
	return !allowList || allowed
}

// SetLogFile tees log output into a file under dir and returns its path.
func SetLogFile(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "falkordb-mcp", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "falkordb-mcp-"+time.Now().UTC().Format("20060102-150405")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}

	outputMu.Lock()
	defer outputMu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	output = io.MultiWriter(os.Stdout, file)
	return path, nil
}

// CloseLogFile stops teeing into the log file, if one is open.
func CloseLogFile() error {
	outputMu.Lock()
	defer outputMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = os.Stdout
	return err
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
}

func currentOutput() io.Writer {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return output
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func toZerolog(level int) zerolog.Level {
	switch level {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New returns a logger for tag. Filtered tags get a no-op logger.
func New(tag string) Logger {
	if !tagEnabled(tag) {
		return noopLogger{}
	}

	out := currentOutput()
	if isInteractive() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}
	return &zerologLogger{
		logger: zerolog.New(out).With().Timestamp().Str("tag", tag).Logger(),
	}
}

func enabled(level int) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level <= globalLevel
}

func (l *zerologLogger) Errorf(format string, args ...any) {
	if enabled(LogLevelError) {
		l.logger.Error().Msgf(format, args...)
	}
}

func (l *zerologLogger) Warnf(format string, args ...any) {
	if enabled(LogLevelWarn) {
		l.logger.Warn().Msgf(format, args...)
	}
}

func (l *zerologLogger) Infof(format string, args ...any) {
	if enabled(LogLevelInfo) {
		l.logger.Info().Msgf(format, args...)
	}
}

func (l *zerologLogger) Debugf(format string, args ...any) {
	if enabled(LogLevelDebug) {
		l.logger.Debug().Msgf(format, args...)
	}
}

// Successf is shown regardless of the configured level.
func (l *zerologLogger) Successf(format string, args ...any) {
	l.logger.WithLevel(zerolog.NoLevel).Str("status", "success").Msgf(format, args...)
}

func (l *zerologLogger) With(key, value string) Logger {
	return &zerologLogger{logger: l.logger.With().Str(key, value).Logger()}
}

type noopLogger struct{}

func (noopLogger) Errorf(string, ...any)     {}
func (noopLogger) Warnf(string, ...any)      {}
func (noopLogger) Infof(string, ...any)      {}
func (noopLogger) Debugf(string, ...any)     {}
func (noopLogger) Successf(string, ...any)   {}
func (n noopLogger) With(string, string) Logger { return n }
