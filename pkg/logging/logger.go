package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dougsko/rigsetup/pkg/config"
	"gopkg.in/lumberjack.v2"
)

// LogLevel represents logging levels
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name; unknown names mean info
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const timeLayout = "2006-01-02 15:04:05.000"

// Logger writes leveled, component-tagged lines to the console and/or a
// rotating file
type Logger struct {
	level      atomic.Int32
	structured bool

	mu   sync.Mutex
	out  io.Writer
	file *lumberjack.Logger
}

// NewLogger creates a new logger from configuration
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := &Logger{structured: cfg.Logging.Structured}
	l.level.Store(int32(ParseLogLevel(cfg.Logging.Level)))

	var sinks []io.Writer
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.file = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSize, // megabytes
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge, // days
			Compress:   cfg.Logging.Compress,
		}
		sinks = append(sinks, l.file)
	}

	// Console too when asked, or when there is nowhere else to write
	if cfg.Logging.Console || len(sinks) == 0 {
		sinks = append(sinks, os.Stdout)
	}
	l.out = io.MultiWriter(sinks...)
	return l, nil
}

// NewWriterLogger creates a human-format logger writing to w
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	l := &Logger{out: w}
	l.level.Store(int32(level))
	return l
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel changes the minimum level that is written
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// Enabled reports whether level is written
func (l *Logger) Enabled(level LogLevel) bool {
	return int32(level) >= l.level.Load()
}

type entry struct {
	Time      string                 `json:"time"`
	Level     string                 `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) format(e entry) string {
	if l.structured {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprintf(`{"time":%q,"level":"ERROR","component":"logging","message":%q}`, e.Time, err.Error())
		}
		return string(data)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s: %s", e.Time, e.Level, e.Component, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Fields[k])
		}
		b.WriteByte(']')
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, component, message string, fields map[string]interface{}) {
	if !l.Enabled(level) {
		return
	}

	line := l.format(entry{
		Time:      time.Now().Format(timeLayout),
		Level:     level.String(),
		Component: component,
		Message:   message,
		Fields:    fields,
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, line+"\n")
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Info logs a message, with optional fields
func (l *Logger) Info(component, message string, fields ...map[string]interface{}) {
	l.log(LevelInfo, component, message, first(fields))
}

// Debugf, Infof, Warnf and Errorf log a formatted message
func (l *Logger) Debugf(component, format string, args ...interface{}) {
	l.log(LevelDebug, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(component, format string, args ...interface{}) {
	l.log(LevelInfo, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(component, format string, args ...interface{}) {
	l.log(LevelWarn, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(component, format string, args ...interface{}) {
	l.log(LevelError, component, fmt.Sprintf(format, args...), nil)
}

// Component binds a logger to one component name
func (l *Logger) Component(name string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: name}
}

// ComponentLogger logs under a fixed component name. One made by For
// follows the global logger, so it may be created before InitGlobalLogger.
type ComponentLogger struct {
	logger    *Logger
	component string
}

func (cl *ComponentLogger) target() *Logger {
	if cl.logger != nil {
		return cl.logger
	}
	return GetGlobalLogger()
}

func (cl *ComponentLogger) Debugf(format string, args ...interface{}) {
	cl.target().Debugf(cl.component, format, args...)
}

func (cl *ComponentLogger) Infof(format string, args ...interface{}) {
	cl.target().Infof(cl.component, format, args...)
}

func (cl *ComponentLogger) Warnf(format string, args ...interface{}) {
	cl.target().Warnf(cl.component, format, args...)
}

func (cl *ComponentLogger) Errorf(format string, args ...interface{}) {
	cl.target().Errorf(cl.component, format, args...)
}

// With logs a message with fields at the given level
func (cl *ComponentLogger) With(level LogLevel, message string, fields map[string]interface{}) {
	cl.target().log(level, cl.component, message, fields)
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg *config.Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return nil
}

// GetGlobalLogger returns the global logger, an info-level console logger
// until InitGlobalLogger runs
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewWriterLogger(os.Stdout, LevelInfo)
	}
	return globalLogger
}

// CloseGlobalLogger closes the global logger
func CloseGlobalLogger() error {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}

// For returns a logger for component on the global logger
func For(component string) *ComponentLogger {
	return &ComponentLogger{component: component}
}

// Info, Infof, Warnf and Errorf log to the global logger
func Info(component, message string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(component, message, fields...)
}

func Debugf(component, format string, args ...interface{}) {
	GetGlobalLogger().Debugf(component, format, args...)
}

func Infof(component, format string, args ...interface{}) {
	GetGlobalLogger().Infof(component, format, args...)
}

func Warnf(component, format string, args ...interface{}) {
	GetGlobalLogger().Warnf(component, format, args...)
}

func Errorf(component, format string, args ...interface{}) {
	GetGlobalLogger().Errorf(component, format, args...)
}
