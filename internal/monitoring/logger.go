// Package monitoring holds the diagnostic log sink shared by the classifier
// packages.
package monitoring

import "log"

// LogFunc is a printf-style log sink.
type LogFunc func(format string, v ...interface{})

// Logf receives every diagnostic line. It starts as log.Printf.
var Logf LogFunc = log.Printf

// SetLogger swaps the sink; nil discards output.
func SetLogger(f LogFunc) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// For returns a logger that tags each line with component, e.g.
// "[isodata] iteration 3". The sink is looked up on every call, so a later
// SetLogger still applies.
func For(component string) LogFunc {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
