package dispatch

import (
	"io"
	"log"
)

var (
	opsLogger  *log.Logger
	diagLogger *log.Logger
)

func init() {
	SetLogWriters(log.Writer(), nil)
}

// SetLogWriters configures the two logging streams for the dispatch
// package: ops carries actionable warnings (send failures, timeouts), diag
// carries throttle/drop accounting. Pass nil to disable a stream.
func SetLogWriters(ops, diag io.Writer) {
	opsLogger = newLogger("[dispatch] ", ops)
	diagLogger = newLogger("[dispatch] ", diag)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs to the ops stream.
func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// diagf logs to the diag stream.
func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
