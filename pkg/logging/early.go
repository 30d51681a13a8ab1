package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog writes plain lines to stderr before the structured logger exists,
// i.e. while the configuration is still being loaded.
type EarlyLog struct {
	service string
	out     io.Writer
}

func NewEarlyLog(service string) *EarlyLog {
	return &EarlyLog{service: service, out: os.Stderr}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.write("ERROR", msg, args...)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write("WARN", msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write("INFO", msg, args...)
}

func (l *EarlyLog) write(level, msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s: %s\n", l.service, level, fmt.Sprintf(msg, args...))
}
