// Package logging builds the service's stdout loggers, one per component
// (api-service, worker-service, sqs).
package logging

import (
	"log"
	"os"
	"strings"
)

// NewStdLogger returns a stdout logger whose lines carry a UTC timestamp
// with microseconds and the component name. A missing trailing space on the
// component is added so call sites can pass the bare name.
func NewStdLogger(component string) *log.Logger {
	prefix := component
	if prefix != "" && !strings.HasSuffix(prefix, " ") {
		prefix += " "
	}
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
