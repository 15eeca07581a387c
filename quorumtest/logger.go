package quorumtest

import (
	"fmt"
	"sync"

	"github.com/tendermint/tendermint/libs/log"
)

// Logger is a log.Logger that keeps all messages in memory so tests can
// inspect them.
type Logger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	keyvals []interface{}
}

// LogEntry is a single recorded message.
type LogEntry struct {
	Level   string
	Msg     string
	Keyvals []interface{}
}

var _ log.Logger = (*Logger)(nil)

// NewLogger returns an empty recording logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.add("debug", msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.add("info", msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.add("error", msg, keyvals) }

// With returns a logger sharing the same records that adds keyvals to
// every message.
func (l *Logger) With(keyvals ...interface{}) log.Logger {
	kv := append(append([]interface{}(nil), l.keyvals...), keyvals...)
	return &Logger{mu: l.mu, entries: l.entries, keyvals: kv}
}

func (l *Logger) add(level, msg string, keyvals []interface{}) {
	kv := append(append([]interface{}(nil), l.keyvals...), keyvals...)
	l.mu.Lock()
	*l.entries = append(*l.entries, LogEntry{Level: level, Msg: msg, Keyvals: kv})
	l.mu.Unlock()
}

// Entries returns a copy of all recorded messages.
func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), *l.entries...)
}

// Messages returns all recorded messages of a level, formatted as
// "msg key=value ...".
func (l *Logger) Messages(level string) []string {
	var res []string
	for _, e := range l.Entries() {
		if e.Level != level {
			continue
		}
		line := e.Msg
		for i := 0; i+1 < len(e.Keyvals); i += 2 {
			line += fmt.Sprintf(" %v=%v", e.Keyvals[i], e.Keyvals[i+1])
		}
		res = append(res, line)
	}
	return res
}
