package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Setup installs the default logger for a service process: structured json
// records to the given stream (usually a log file) fanned out with a human
// readable text handler on stderr.
func Setup(stream io.Writer, service string) {
	jsonHandler := slog.NewJSONHandler(stream, &slog.HandlerOptions{Level: slog.LevelDebug}).
		WithAttrs([]slog.Attr{slog.String("service", service)})

	textHandler := slog.NewTextHandler(os.Stderr, nil)

	slog.SetDefault(slog.New(slogmulti.Fanout(jsonHandler, textHandler)))
}
