// Package logger writes every message to the console, to logs/combined.log
// (plus logs/error.log for errors) and to the Discord log webhooks.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m" // Bold Red
	case LevelError:
		return "\033[31m" // Red
	case LevelWarn:
		return "\033[33m" // Yellow
	case LevelSuccess:
		return "\033[32m" // Green
	case LevelInfo:
		return "\033[36m" // Cyan
	case LevelDebug:
		return "\033[35m" // Magenta
	case LevelSystem:
		return "\033[34m" // Blue
	default:
		return "\033[0m" // Reset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000 // Red
	case LevelWarn:
		return 0xFFFF00 // Yellow
	case LevelSuccess:
		return 0x00FF00 // Green
	case LevelInfo:
		return 0x0000FF // Blue
	case LevelDebug:
		return 0x800080 // Purple
	case LevelSystem:
		return 0x808080 // Grey
	default:
		return 0xFFFFFF // White
	}
}

const colorReset = "\033[0m"

// logrusLevel maps a level onto logrus. CRITICAL is written as error because
// logrus panics or exits on its own higher levels.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Fields are structured values attached to a message
type Fields = logrus.Fields

// Logger is the main logging structure
type Logger struct {
	logrus          *logrus.Logger
	errorWebhookURL string
	logsWebhookURL  string
	logFile         *os.File
	errorFile       *os.File
	client          *http.Client
	mu              sync.Mutex
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger, creating one without webhooks if Init
// was never called
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// errorFileHook copies error entries into logs/error.log
type errorFileHook struct {
	out io.Writer
}

func (h *errorFileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

func (h *errorFileHook) Fire(e *logrus.Entry) error {
	line, err := e.Logger.Formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

// NewLogger creates a new Logger instance
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	l := &Logger{
		logrus:          logrus.New(),
		errorWebhookURL: errorWebhook,
		logsWebhookURL:  logsWebhook,
		client:          &http.Client{Timeout: 5 * time.Second},
	}

	l.logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	l.logrus.SetLevel(logrus.DebugLevel)
	l.logrus.SetOutput(io.Discard)

	logsDir := filepath.Join(".", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creando el directorio de logs: %v\n", err)
		return l
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error abriendo combined.log: %v\n", err)
	} else {
		l.logrus.SetOutput(l.logFile)
	}

	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error abriendo error.log: %v\n", err)
	} else {
		l.logrus.AddHook(&errorFileHook{out: l.errorFile})
	}

	return l
}

// renderFields formats fields as sorted key=value pairs for the console
func renderFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, message, prefix string, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	extra := renderFields(fields)
	fmt.Printf("[%s] [%s%s%s] [%s]: %s%s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		level.Color(),
		level.String(),
		colorReset,
		prefix,
		message,
		extra,
	)

	l.logrus.WithFields(fields).
		WithField("prefix", prefix).
		WithField("severity", level.String()).
		Log(level.logrusLevel(), message)

	go l.sendToWebhook(level, message+extra, prefix)
}

func (l *Logger) webhookFor(level LogLevel) string {
	if level <= LevelError {
		return l.errorWebhookURL
	}
	return l.logsWebhookURL
}

type webhookEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Timestamp   string            `json:"timestamp"`
	Footer      map[string]string `json:"footer"`
}

func (l *Logger) sendToWebhook(level LogLevel, message, prefix string) {
	url := l.webhookFor(level)
	if url == "" {
		return
	}

	payload := map[string][]webhookEmbed{
		"embeds": {{
			Title:       fmt.Sprintf("[%s] %s", level.String(), prefix),
			Description: fmt.Sprintf("```%s```", message),
			Color:       level.DiscordColor(),
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer:      map[string]string{"text": "💫 Developed by PancyStudio | PancyMod"},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	resp, err := l.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Close closes the log files
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logrus.SetOutput(io.Discard)
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	if l.errorFile != nil {
		l.errorFile.Close()
		l.errorFile = nil
	}
}

func (l *Logger) Critical(message, prefix string) { l.log(LevelCritical, message, prefix, nil) }
func (l *Logger) Error(message, prefix string)    { l.log(LevelError, message, prefix, nil) }
func (l *Logger) Warn(message, prefix string)     { l.log(LevelWarn, message, prefix, nil) }
func (l *Logger) Success(message, prefix string)  { l.log(LevelSuccess, message, prefix, nil) }
func (l *Logger) Info(message, prefix string)     { l.log(LevelInfo, message, prefix, nil) }
func (l *Logger) Debug(message, prefix string)    { l.log(LevelDebug, message, prefix, nil) }
func (l *Logger) System(message, prefix string)   { l.log(LevelSystem, message, prefix, nil) }

// Entry is a logger bound to a set of fields
type Entry struct {
	l      *Logger
	fields Fields
}

// WithFields returns an Entry that appends fields to every message
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{l: l, fields: fields}
}

func (e *Entry) Error(message, prefix string)   { e.l.log(LevelError, message, prefix, e.fields) }
func (e *Entry) Warn(message, prefix string)    { e.l.log(LevelWarn, message, prefix, e.fields) }
func (e *Entry) Success(message, prefix string) { e.l.log(LevelSuccess, message, prefix, e.fields) }
func (e *Entry) Info(message, prefix string)    { e.l.log(LevelInfo, message, prefix, e.fields) }
func (e *Entry) Debug(message, prefix string)   { e.l.log(LevelDebug, message, prefix, e.fields) }

// Package-level shortcuts on the global logger

func Critical(message, prefix string) { Get().Critical(message, prefix) }
func Error(message, prefix string)    { Get().Error(message, prefix) }
func Warn(message, prefix string)     { Get().Warn(message, prefix) }
func Success(message, prefix string)  { Get().Success(message, prefix) }
func Info(message, prefix string)     { Get().Info(message, prefix) }
func Debug(message, prefix string)    { Get().Debug(message, prefix) }
func System(message, prefix string)   { Get().System(message, prefix) }

// WithFields binds fields on the global logger
func WithFields(fields Fields) *Entry { return Get().WithFields(fields) }
