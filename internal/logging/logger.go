package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON stdout logger at level as the slog default. Extra
// handlers, such as a DBHandler, receive the same records.
func Setup(level slog.Level, extra ...slog.Handler) {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}
	slog.SetDefault(slog.New(handler))
}
