package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process logger and installs it as the zerolog
// global. Console output goes to stderr, matching the logging
// profiles, so stdout stays free for operator-facing output like the
// deck summary.
func InitLogger(app string) zerolog.Logger {
	logger := consoleLogger(os.Stderr, app)
	log.Logger = logger
	return logger
}

func consoleLogger(w io.Writer, app string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(writer).With().Timestamp().Str("app", app).Logger()
}
