package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (sessions, saved collages, errors)
	LevelLive    = 2 // Live info (state changes, captures, uploads)
	LevelVerbose = 3 // Verbose (timings, config, retries)
	LevelTrace   = 4 // Trace (GPIO, serial lines, very low level)
)

// LogFile is the file the booth appends its log to, in the working directory.
const LogFile = "photobooth.log"

// Logger is a leveled logger. Components receive one at construction;
// a nil *Logger discards everything.
type Logger struct {
	mu     sync.Mutex
	level  int
	logger *log.Logger
}

// New creates a logger writing to w with the given level (0-4).
// 0 = no output
// 1 = important info (sessions, collages, errors)
// 2 = live info (state transitions, captures, uploads)
// 3 = verbose (timings, retries, config)
// 4 = trace (GPIO, serial, very low level)
func New(w io.Writer, debugLevel int) *Logger {
	return &Logger{
		level:  debugLevel,
		logger: log.New(w, "[PhotoBooth] ", log.LstdFlags|log.Lmicroseconds),
	}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelOff)
}

// OpenLogFile opens (or creates) path for appending.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// SetOutput redirects the logger, e.g. to add the web status stream.
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// Level returns the current debug level.
func (l *Logger) Level() int {
	if l == nil {
		return LevelOff
	}
	return l.level
}

// IsEnabled returns true if debug level is >= the requested level.
func (l *Logger) IsEnabled(minLevel int) bool {
	return l != nil && l.level >= minLevel
}

func (l *Logger) printf(minLevel int, format string, args ...interface{}) {
	if !l.IsEnabled(minLevel) {
		return
	}
	l.logger.Printf(format, args...)
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func (l *Logger) Info(format string, args ...interface{}) {
	l.printf(LevelInfo, "[INFO] "+format, args...)
}

// Warn prints a level 1 warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf(LevelInfo, "[WARN] "+format, args...)
}

// Summary prints an important summary (level 1).
func (l *Logger) Summary(title string) {
	l.printf(LevelInfo, "═══════════════════════════════════════")
	l.printf(LevelInfo, "  %s", title)
	l.printf(LevelInfo, "═══════════════════════════════════════")
}

// Value prints a named value in formatted form (level 1).
func (l *Logger) Value(name string, value interface{}) {
	l.printf(LevelInfo, "[INFO]   %s = %v", name, value)
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func (l *Logger) Live(format string, args ...interface{}) {
	l.printf(LevelLive, "[LIVE] "+format, args...)
}

// Transition prints a session state change (level 2).
func (l *Logger) Transition(sessionID, from, to string) {
	l.printf(LevelLive, "[LIVE] Session %s: %s -> %s", sessionID, from, to)
}

// Shot prints a photo capture (level 2).
func (l *Logger) Shot(n int, path string) {
	l.printf(LevelLive, "[LIVE] Photo %d captured: %s", n, path)
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.printf(LevelVerbose, "[VERBOSE] "+format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func (l *Logger) PrintStruct(name string, v interface{}) {
	l.printf(LevelVerbose, "[VERBOSE] %s: %+v", name, v)
}

// Section prints a section separator (level 3).
func (l *Logger) Section(name string) {
	l.printf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	l.printf(LevelVerbose, "  %s", name)
	l.printf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// Step prints a numbered step (level 3).
func (l *Logger) Step(num int, description string) {
	l.printf(LevelVerbose, "[VERBOSE] Step %d: %s", num, description)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message.
func (l *Logger) Trace(format string, args ...interface{}) {
	l.printf(LevelTrace, "[TRACE] "+format, args...)
}

// GPIO prints a GPIO operation (level 4).
func (l *Logger) GPIO(operation string, pin int, value interface{}) {
	l.printf(LevelTrace, "[GPIO] %s pin=%d value=%v", operation, pin, value)
}

// --- General functions ---

// Error prints an error (level 1+).
func (l *Logger) Error(err error) {
	l.printf(LevelInfo, "[ERROR] %v", err)
}

// Errorf prints a formatted error (level 1+).
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(LevelInfo, "[ERROR] "+format, args...)
}
