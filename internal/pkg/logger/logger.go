package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// Logger provides structured JSON logging with optional PII redaction.
// Recipient addresses routinely pass through this system, so redaction is
// on by default.
type Logger struct {
	level     Level
	out       io.Writer
	mu        sync.Mutex
	redactPII bool
}

var defaultLogger = &Logger{level: INFO, out: os.Stderr, redactPII: true}

// New returns a logger writing JSON entries to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: w, redactPII: true}
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { defaultLogger.redactPII = r }

// Debug emits a DEBUG-level structured log entry to the default logger.
func Debug(msg string, fields ...interface{}) { defaultLogger.Log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry to the default logger.
func Info(msg string, fields ...interface{}) { defaultLogger.Log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry to the default logger.
func Warn(msg string, fields ...interface{}) { defaultLogger.Log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry to the default logger.
func Error(msg string, fields ...interface{}) { defaultLogger.Log(ERROR, msg, fields...) }

// Log emits an entry at the given level. Fields are alternating key/value
// pairs; a trailing key without a value is dropped.
func (l *Logger) Log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail returns an address safe to log: the local part is reduced to
// its first two characters (or dropped entirely when that short), the domain
// kept. Anything that is not addr-shaped comes back fully masked.
func RedactEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 || strings.IndexByte(email[at+1:], '@') >= 0 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || strings.Contains(key, "recipient") {
		return RedactEmail(val)
	}
	// Redact any embedded emails in generic fields
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
