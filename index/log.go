package index

import (
	"log"
	"os"
)

// Logger is the log sink injected into an Index (source spec §9 "Global
// mutable state": "the original logs via a process-wide logger singleton
// ... Inject both: a log sink and a clock"). The default implementation
// wraps the standard library's *log.Logger with the same flags the teacher
// sets in its command-line entrypoints (log.Ldate|log.Ltime|log.Lmicroseconds).
type Logger interface {
	Printf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type stdLogger struct {
	*log.Logger
}

// NewStdLogger returns a Logger backed by the standard library, matching the
// teacher's own log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds) idiom.
func NewStdLogger(prefix string) Logger {
	return &stdLogger{Logger: log.New(os.Stderr, prefix, log.Ldate|log.Ltime|log.Lmicroseconds)}
}

func (l *stdLogger) Printf(format string, args ...interface{}) { l.Logger.Printf(format, args...) }
func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.Logger.Printf("WARN "+format, args...)
}
func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Printf("ERROR "+format, args...)
}

// discardLogger is used as the default when no Logger is supplied, so tests
// don't need to wire one up explicitly.
type discardLogger struct{}

func (discardLogger) Printf(string, ...interface{}) {}
func (discardLogger) Warnf(string, ...interface{})  {}
func (discardLogger) Errorf(string, ...interface{}) {}

// DiscardLogger is a Logger that drops everything.
var DiscardLogger Logger = discardLogger{}
