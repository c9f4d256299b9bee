package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the process-wide logrus output. An empty file logs to stdout.
func Setup(level, file string) error {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("unknown logging level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	var out io.Writer = os.Stdout
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	log.SetOutput(out)
	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: log.FieldMap{
			log.FieldKeyTime: "timestamp",
			log.FieldKeyMsg:  "message",
		},
	})
	return nil
}

type Logger struct {
	entry *log.Entry
}

func New(service string) *Logger {
	return &Logger{entry: log.WithFields(log.Fields{
		"service":  service,
		"hostname": hostname(),
	})}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) log(level log.Level, action string, fields map[string]any, err error) {
	e := l.entry.WithField("action", action)
	if fields != nil {
		e = e.WithFields(fields)
	}
	if err != nil {
		e = e.WithField("error", map[string]any{"msg": err.Error(), "type": fmt.Sprintf("%T", err)})
	}
	e.Log(level, action)
}

func (l *Logger) Info(action string, fields map[string]any)  { l.log(log.InfoLevel, action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any) { l.log(log.DebugLevel, action, fields, nil) }
func (l *Logger) Warn(action string, err error, fields map[string]any) {
	l.log(log.WarnLevel, action, fields, err)
}
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(log.ErrorLevel, action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }
