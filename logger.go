package kestrel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"
)

// Logger logs information generated at runtime: a `text/template`-based
// line formatter, level filtering, and a `sync.Pool`-backed buffer to
// avoid per-line allocation under load, per `spec.md` §5/`SPEC_FULL.md`
// §2.1.
type Logger struct {
	template   *template.Template
	bufferPool *sync.Pool
	mutex      *sync.Mutex

	Output  io.Writer
	Level   LogLevel
	AppName string

	// fields are extra key/value pairs appended to every line logged
	// through this Logger -- populated by With when a per-request clone
	// is made.
	fields []field
}

type field struct {
	key   string
	value interface{}
}

// LogLevel is the severity of a log line.
type LogLevel uint8

// log levels, lowest to highest severity.
const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}

	return "UNKNOWN"
}

// ParseLogLevel parses s (case-insensitively) into a LogLevel. It returns
// LevelInfo if s does not match any known level name.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

const defaultLoggerFormat = `{"app_name":"{{.app_name}}","time":"{{.time}}",` +
	`"level":"{{.level}}"}`

// NewLogger returns a new Logger writing JSON lines to os.Stdout at
// LevelInfo. appName is attached to every line logged through it.
func NewLogger(appName string) *Logger {
	return &Logger{
		template: template.Must(
			template.New("logger").Parse(defaultLoggerFormat),
		),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
		mutex:   &sync.Mutex{},
		Output:  os.Stdout,
		Level:   LevelInfo,
		AppName: appName,
	}
}

// applyLogLevelEnv overrides l.Level from the LOG_LEVEL environment
// variable, looked up case-insensitively, when the variable is set.
func (l *Logger) applyLogLevelEnv() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}

		if strings.EqualFold(kv[:i], "LOG_LEVEL") {
			l.Level = ParseLogLevel(kv[i+1:])
			return
		}
	}
}

// With returns a clone of l with keysAndValues (alternating key, value,
// key, value, ...) appended to the fields logged on every subsequent
// line. l itself is never mutated, so concurrent requests sharing the
// same base Logger never race on each other's per-request fields, per
// `spec.md` §5.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	clone := &Logger{
		template:   l.template,
		bufferPool: l.bufferPool,
		mutex:      l.mutex,
		Output:     l.Output,
		Level:      l.Level,
		AppName:    l.AppName,
		fields:     make([]field, 0, len(l.fields)+len(keysAndValues)/2),
	}

	clone.fields = append(clone.fields, l.fields...)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, _ := keysAndValues[i].(string)
		clone.fields = append(clone.fields, field{key: key, value: keysAndValues[i+1]})
	}

	return clone
}

// Tracef logs a TRACE level line.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// Debugf logs a DEBUG level line.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Infof logs an INFO level line.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warnf logs a WARN level line.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Errorf logs an ERROR level line.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// log renders lvl's line and writes it to l.Output, skipping it
// entirely if lvl is below l.Level.
func (l *Logger) log(lvl LogLevel, format string, args ...interface{}) {
	if lvl < l.Level {
		return
	}

	message := fmt.Sprintf(format, args...)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer l.bufferPool.Put(buf)

	data := map[string]interface{}{
		"app_name": l.AppName,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"level":    lvl.String(),
	}

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	s := buf.Bytes()
	if i := bytes.LastIndexByte(s, '}'); i >= 0 {
		buf.Truncate(i)
	}

	buf.WriteString(`,"message":`)
	mb, _ := json.Marshal(message)
	buf.Write(mb)

	for _, f := range l.fields {
		buf.WriteByte(',')
		kb, _ := json.Marshal(f.key)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(f.value)
		if err != nil {
			vb, _ = json.Marshal(fmt.Sprint(f.value))
		}
		buf.Write(vb)
	}

	buf.WriteString("}\n")

	l.Output.Write(buf.Bytes())
}
