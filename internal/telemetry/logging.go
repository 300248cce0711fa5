// Package telemetry sets up structured logging and Prometheus metrics for
// cmd/regimewatch; spec.md §1 places logging setup out of the core's scope,
// but the ambient stack still needs it wired the way the teacher wires it.
package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging configures the global zerolog logger: RFC3339 timestamps and
// a console writer, matching cmd/cryptorun/main.go's setup.
func InitLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
